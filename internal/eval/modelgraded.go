package eval

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Completer is the completion collaborator consumed by the model-graded
// evaluator: one prompt in, full response text out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a plain function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// GradingSpec is a model-graded grading configuration: a prompt template with
// named placeholders and a letter-grade to score mapping. Read-only during
// evaluation.
type GradingSpec struct {
	Prompt       string             `yaml:"prompt"`
	ChoiceScores map[string]float64 `yaml:"choice_scores"`
}

// DefaultChoiceScores is applied when a spec omits choice_scores.
func DefaultChoiceScores() map[string]float64 {
	return map[string]float64{"A": 1, "B": 0.8, "C": 0.6, "D": 0.4, "F": 0}
}

// Sample is one unit of evaluation input.
type Sample struct {
	Input        string `json:"input"`
	Ideal        string `json:"ideal,omitempty"`
	Subject      string `json:"subject,omitempty"`
	GradeLevel   string `json:"grade_level,omitempty"`
	Topic        string `json:"topic,omitempty"`
	EvalCriteria string `json:"eval_criteria,omitempty"`
}

// EvalResult records one evaluated sample. Immutable after creation.
type EvalResult struct {
	Prompt     string
	Completion string
	Ideal      string
	Score      float64
	Grade      string
	Metadata   map[string]any
	Duration   time.Duration
}

// EvalSummary aggregates a model-graded run.
type EvalSummary struct {
	Total        int
	AverageScore float64
	MeanTime     time.Duration
	Grades       map[string]int
	Passed       int
	PassRate     float64
	PassingScore float64
}

// Ordered patterns looking for an explicit letter grade. First match wins.
var gradePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:FINAL\s+)?GRADE:\s*([A-F])`),
	regexp.MustCompile(`(?:OVERALL\s+)?GRADE\s+(?:IS\s+)?([A-F])`),
	regexp.MustCompile(`\b([A-F])\b(?:\s*[-:]|\s+GRADE)`),
}

// ModelGraded grades completions by asking the completion collaborator
// itself to assign a letter grade, degrading to heuristic scoring when the
// grading call fails.
type ModelGraded struct {
	spec      GradingSpec
	completer Completer
	logger    *zap.Logger
}

// NewModelGraded constructs an evaluator over a grading spec and completer.
func NewModelGraded(spec GradingSpec, completer Completer, logger *zap.Logger) *ModelGraded {
	if logger == nil {
		logger = zap.NewNop()
	}
	if spec.ChoiceScores == nil {
		spec.ChoiceScores = DefaultChoiceScores()
	}
	return &ModelGraded{spec: spec, completer: completer, logger: logger}
}

// EvaluateSample runs the generate and grade stages for one sample. It never
// returns an error: a generate-stage failure yields a zero-score result with
// an "ERROR: "-prefixed completion, and a grade-stage failure falls back to
// heuristic scoring of the generated text.
func (m *ModelGraded) EvaluateSample(ctx context.Context, sample Sample) EvalResult {
	start := time.Now()

	completion, err := m.completer.Complete(ctx, sample.Input)
	if err != nil {
		m.logger.Warn("completion failed", zap.Error(err))
		return EvalResult{
			Prompt:     sample.Input,
			Completion: "ERROR: " + err.Error(),
			Ideal:      sample.Ideal,
			Score:      0.0,
			Metadata:   map[string]any{"error": err.Error()},
			Duration:   time.Since(start),
		}
	}

	grade, score := m.gradeCompletion(ctx, completion, sample)

	return EvalResult{
		Prompt:     sample.Input,
		Completion: completion,
		Ideal:      sample.Ideal,
		Score:      score,
		Grade:      grade,
		Metadata: map[string]any{
			"subject":       sample.Subject,
			"grade_level":   sample.GradeLevel,
			"topic":         sample.Topic,
			"eval_criteria": sample.EvalCriteria,
		},
		Duration: time.Since(start),
	}
}

// gradeCompletion runs the grade stage: format the grading prompt, ask the
// collaborator, extract the letter, map to a score. Any failure falls back to
// heuristic scoring over the generated completion alone.
func (m *ModelGraded) gradeCompletion(ctx context.Context, completion string, sample Sample) (string, float64) {
	gradingPrompt := fillTemplate(m.spec.Prompt, map[string]string{
		"lesson_plan_output": completion,
		"subject":            orUnknown(sample.Subject),
		"grade_level":        orUnknown(sample.GradeLevel),
		"topic":              orUnknown(sample.Topic),
	})

	graderResponse, err := m.completer.Complete(ctx, gradingPrompt)
	if err != nil {
		m.logger.Warn("grading call failed, using fallback scoring", zap.Error(err))
		return FallbackScore(completion)
	}

	grade := ExtractGrade(graderResponse)
	// Guarded lookup: ExtractGrade always returns a known letter, but an
	// exotic choice_scores table may not map it.
	score, ok := m.spec.ChoiceScores[grade]
	if !ok {
		score = 0.0
	}
	return grade, score
}

// ExtractGrade pulls a letter grade A-F out of unstructured grader text.
// Matching is three-tiered: structured patterns, loose substring checks in
// letter order A through F, then a default of "C" for ungradable text.
// Consumers depend on the default-to-C behavior; do not tighten it.
func ExtractGrade(response string) string {
	upper := strings.ToUpper(response)

	for _, pat := range gradePatterns {
		if match := pat.FindStringSubmatch(upper); match != nil {
			return match[1]
		}
	}

	for _, letter := range []string{"A", "B", "C", "D", "F"} {
		if strings.Contains(upper, " "+letter+" ") ||
			strings.HasSuffix(upper, " "+letter) ||
			strings.Contains(upper, "GRADE "+letter) {
			return letter
		}
	}

	return "C"
}

// FallbackScore grades a completion heuristically, independent of any model
// call: word count plus presence of the required lesson-plan terms.
func FallbackScore(completion string) (string, float64) {
	words := len(strings.Fields(completion))
	lower := strings.ToLower(completion)

	found := 0
	for _, term := range []string{"objective", "materials", "activities", "assessment"} {
		if strings.Contains(lower, term) {
			found++
		}
	}

	switch {
	case words >= 200 && found >= 3:
		return "B", 0.8
	case words >= 100 && found >= 2:
		return "C", 0.6
	case words >= 50 && found >= 1:
		return "D", 0.4
	default:
		return "F", 0.0
	}
}

// Summarize aggregates model-graded results, including grade distribution and
// pass rate at the given score threshold.
func Summarize(results []EvalResult, passingScore float64) EvalSummary {
	s := EvalSummary{
		Total:        len(results),
		Grades:       make(map[string]int),
		PassingScore: passingScore,
	}

	var scoreSum float64
	var timeSum time.Duration
	for _, r := range results {
		scoreSum += r.Score
		timeSum += r.Duration
		grade := r.Grade
		if grade == "" {
			grade = "N/A"
		}
		s.Grades[grade]++
		if r.Score >= passingScore {
			s.Passed++
		}
	}

	if s.Total > 0 {
		s.AverageScore = scoreSum / float64(s.Total)
		s.MeanTime = timeSum / time.Duration(s.Total)
		s.PassRate = float64(s.Passed) / float64(s.Total)
	}
	return s
}

// GradeOrder returns the summary's grade keys in a stable display order.
func (s EvalSummary) GradeOrder() []string {
	keys := make([]string, 0, len(s.Grades))
	for k := range s.Grades {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fillTemplate substitutes metadata placeholders in sorted key order and the
// completion text last, so placeholder-like text inside the completion is
// never re-expanded and the result does not depend on map iteration order.
func fillTemplate(template string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if k == "lesson_plan_output" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := template
	for _, k := range keys {
		out = strings.ReplaceAll(out, "{"+k+"}", vars[k])
	}
	if v, ok := vars["lesson_plan_output"]; ok {
		out = strings.ReplaceAll(out, "{lesson_plan_output}", v)
	}
	return out
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

// String renders a one-line result for progress output.
func (r EvalResult) String() string {
	grade := r.Grade
	if grade == "" {
		grade = "N/A"
	}
	return fmt.Sprintf("%s (%.2f) [%.2fs]", grade, r.Score, r.Duration.Seconds())
}

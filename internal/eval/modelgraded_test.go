package eval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractGradeStructuredPatterns(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Grade: A", "A"},
		{"final grade: b", "B"},
		{"Overall grade is D after review", "D"},
		{"I would assign F - the plan lacks structure", "F"},
		{"the grade is B.", "B"},
		{"GRADE:C", "C"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, ExtractGrade(tc.in), "input %q", tc.in)
	}
}

func TestExtractGradeLooseFallbacks(t *testing.T) {
	require.Equal(t, "A", ExtractGrade("this deserves an A for effort"))
	require.Equal(t, "B", ExtractGrade("solid work, clearly B"))
	require.Equal(t, "A", ExtractGrade("I'd say grade a overall"))
}

func TestExtractGradeDefaultsToC(t *testing.T) {
	require.Equal(t, "C", ExtractGrade("This lesson plan is well structured."))
	require.Equal(t, "C", ExtractGrade(""))
}

func TestExtractGradeIdempotentOnUppercase(t *testing.T) {
	in := "FINAL GRADE: B"
	require.Equal(t, ExtractGrade(in), ExtractGrade(strings.ToUpper(in)))
}

func TestFallbackScoreTiers(t *testing.T) {
	rich := strings.Repeat("word ", 200) + "objective materials activities assessment"
	grade, score := FallbackScore(rich)
	require.Equal(t, "B", grade)
	require.Equal(t, 0.8, score)

	medium := strings.Repeat("word ", 100) + "objective materials"
	grade, score = FallbackScore(medium)
	require.Equal(t, "C", grade)
	require.Equal(t, 0.6, score)

	// Exactly 60 words, one required term.
	thin := strings.Repeat("word ", 59) + "materials"
	require.Len(t, strings.Fields(thin), 60)
	grade, score = FallbackScore(thin)
	require.Equal(t, "D", grade)
	require.Equal(t, 0.4, score)

	grade, score = FallbackScore("too short")
	require.Equal(t, "F", grade)
	require.Equal(t, 0.0, score)
}

// scriptedCompleter returns canned responses in order, then errors.
type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func testSpec() GradingSpec {
	return GradingSpec{
		Prompt: "Grade this {subject} lesson for {grade_level} on {topic}:\n{lesson_plan_output}",
	}
}

func TestEvaluateSampleGradesViaModel(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{
			"Objectives, materials, activities and assessment are all covered.",
			"Well organized and complete. Grade: A",
		},
	}
	m := NewModelGraded(testSpec(), completer, zap.NewNop())

	res := m.EvaluateSample(context.Background(), Sample{
		Input:      "Create a lesson plan about fractions",
		Subject:    "Mathematics",
		GradeLevel: "4th Grade",
		Topic:      "Fractions",
	})

	require.Equal(t, "A", res.Grade)
	require.Equal(t, 1.0, res.Score)
	require.Equal(t, 2, completer.calls, "generate then grade")
	require.Contains(t, completer.prompts[1], "Mathematics")
	require.Contains(t, completer.prompts[1], "Objectives, materials")
	require.Equal(t, "Mathematics", res.Metadata["subject"])
}

func TestEvaluateSampleFillsUnknownPlaceholders(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{"some plan", "Grade: B"},
	}
	m := NewModelGraded(testSpec(), completer, zap.NewNop())

	m.EvaluateSample(context.Background(), Sample{Input: "anything"})
	require.Contains(t, completer.prompts[1], "Unknown")
	require.NotContains(t, completer.prompts[1], "{subject}")
}

func TestEvaluateSampleGenerateFailure(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{errors.New("endpoint unreachable")}}
	m := NewModelGraded(testSpec(), completer, zap.NewNop())

	res := m.EvaluateSample(context.Background(), Sample{Input: "prompt"})
	require.True(t, strings.HasPrefix(res.Completion, "ERROR: "))
	require.Equal(t, 0.0, res.Score)
	require.Empty(t, res.Grade)
	require.Equal(t, "endpoint unreachable", res.Metadata["error"])
	require.Equal(t, 1, completer.calls, "grading is skipped when generation fails")
}

func TestEvaluateSampleGradeFailureUsesFallback(t *testing.T) {
	completion := strings.Repeat("word ", 100) + "objective materials"
	completer := &scriptedCompleter{
		responses: []string{completion, ""},
		errs:      []error{nil, errors.New("grader down")},
	}
	m := NewModelGraded(testSpec(), completer, zap.NewNop())

	res := m.EvaluateSample(context.Background(), Sample{Input: "prompt"})
	require.Equal(t, "C", res.Grade)
	require.Equal(t, 0.6, res.Score)
	require.Equal(t, completion, res.Completion)
}

func TestEvaluateSampleUnmappedGradeScoresZero(t *testing.T) {
	spec := testSpec()
	spec.ChoiceScores = map[string]float64{"A": 1}
	completer := &scriptedCompleter{responses: []string{"plan", "Grade: B"}}
	m := NewModelGraded(spec, completer, zap.NewNop())

	res := m.EvaluateSample(context.Background(), Sample{Input: "prompt"})
	require.Equal(t, "B", res.Grade)
	require.Equal(t, 0.0, res.Score)
}

func TestSummarizeGradeDistributionAndPassRate(t *testing.T) {
	results := []EvalResult{
		{Grade: "A", Score: 1.0},
		{Grade: "B", Score: 0.8},
		{Grade: "C", Score: 0.6},
		{Grade: "F", Score: 0.0},
		{Score: 0.0}, // generate-stage failure, no grade
	}

	s := Summarize(results, 0.6)
	require.Equal(t, 5, s.Total)
	require.Equal(t, 3, s.Passed)
	require.InDelta(t, 0.6, s.PassRate, 1e-9)
	require.InDelta(t, 0.48, s.AverageScore, 1e-9)
	require.Equal(t, 1, s.Grades["N/A"])
	require.Equal(t, []string{"A", "B", "C", "F", "N/A"}, s.GradeOrder())
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 0.6)
	require.Zero(t, s.Total)
	require.Zero(t, s.AverageScore)
	require.Zero(t, s.PassRate)
}

func TestFillTemplateCompletionSubstitutedLast(t *testing.T) {
	// A completion containing placeholder-like text must come through
	// verbatim regardless of map iteration order.
	vars := map[string]string{
		"lesson_plan_output": "a plan mentioning {subject} literally",
		"subject":            "Mathematics",
		"grade_level":        "7th Grade",
		"topic":              "Fractions",
	}
	for i := 0; i < 50; i++ {
		out := fillTemplate("Assess {lesson_plan_output} for {subject}, {grade_level}, {topic}.", vars)
		require.Equal(t,
			"Assess a plan mentioning {subject} literally for Mathematics, 7th Grade, Fractions.",
			out)
	}
}

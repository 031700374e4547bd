package eval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EvalDefinition is one entry in a registry evals document.
type EvalDefinition struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Metrics     []string `yaml:"metrics"`
	Args        EvalArgs `yaml:"args"`
}

// EvalArgs points an eval at its sample data and grading spec.
type EvalArgs struct {
	SamplesJSONL    string `yaml:"samples_jsonl"`
	ModelGradedSpec string `yaml:"modelgraded_spec"`
}

// Registry resolves eval names to definitions, grading specs, and sample
// files rooted at a registry directory (evals/, modelgraded/, data/).
type Registry struct {
	root string
}

// NewRegistry opens a registry rooted at dir.
func NewRegistry(dir string) *Registry {
	return &Registry{root: dir}
}

// LookupEval scans every evals/*.yaml document for the named eval.
func (r *Registry) LookupEval(name string) (EvalDefinition, error) {
	pattern := filepath.Join(r.root, "evals", "*.yaml")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return EvalDefinition{}, fmt.Errorf("scan evals: %w", err)
	}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return EvalDefinition{}, fmt.Errorf("read %s: %w", file, err)
		}

		var doc map[string]EvalDefinition
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return EvalDefinition{}, fmt.Errorf("parse %s: %w", file, err)
		}
		if def, ok := doc[name]; ok {
			return def, nil
		}
	}

	return EvalDefinition{}, fmt.Errorf("eval %q not found under %s", name, pattern)
}

// GradingSpecFor loads the grading spec referenced by an eval definition.
// An empty reference falls back to the default lesson plan quality spec.
func (r *Registry) GradingSpecFor(def EvalDefinition) (GradingSpec, error) {
	ref := def.Args.ModelGradedSpec
	if ref == "" {
		ref = filepath.Join("lesson_plan_quality", "spec.yaml")
	}
	return LoadGradingSpec(filepath.Join(r.root, "modelgraded", ref))
}

// SamplesFor loads the JSONL samples referenced by an eval definition.
func (r *Registry) SamplesFor(def EvalDefinition) ([]Sample, error) {
	if def.Args.SamplesJSONL == "" {
		return nil, fmt.Errorf("eval %q does not reference a samples file", def.ID)
	}
	return LoadSamples(filepath.Join(r.root, "data", def.Args.SamplesJSONL))
}

// LoadGradingSpec reads a YAML grading spec. Missing choice_scores default to
// the standard A-F mapping; a missing prompt is an error.
func LoadGradingSpec(path string) (GradingSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GradingSpec{}, fmt.Errorf("read grading spec: %w", err)
	}

	var spec GradingSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return GradingSpec{}, fmt.Errorf("parse grading spec %s: %w", path, err)
	}
	if strings.TrimSpace(spec.Prompt) == "" {
		return GradingSpec{}, fmt.Errorf("grading spec %s is missing a prompt", path)
	}
	if spec.ChoiceScores == nil {
		spec.ChoiceScores = DefaultChoiceScores()
	}
	return spec, nil
}

// LoadSamples reads one JSON object per line. Blank lines are skipped; a
// malformed line is an error (partial sample sets would skew summaries).
func LoadSamples(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}
	defer f.Close()

	var samples []Sample
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var s Sample
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, line, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return samples, nil
}

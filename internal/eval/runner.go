package eval

import (
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Outcome classifies a single test execution.
type Outcome string

const (
	OutcomePass  Outcome = "pass"
	OutcomeFail  Outcome = "fail"
	OutcomeError Outcome = "error"
)

// TestFunc is a callable registered with the runner. Args carry the test
// case's argument mapping.
type TestFunc func(args map[string]any) (any, error)

// TestCase defines one named check against a registered function.
type TestCase struct {
	Name     string
	Function string
	Args     map[string]any
	// Expected is the reference value. When nil the test passes as long as
	// the call returns cleanly; output presence is not checked.
	Expected any
	// Metric names a registered metric. Unresolvable names fall back to
	// exact_match; callers rely on that default for unknown identifiers.
	Metric string
	// CustomMetric takes precedence over Metric when set.
	CustomMetric func(output, expected any) bool
	// Timeout is advisory metadata only; the runner does not enforce it.
	Timeout  time.Duration
	Metadata map[string]any
}

// Suite is an ordered collection of test cases with optional hooks.
type Suite struct {
	Name        string
	Description string
	Tests       []TestCase
	Setup       func() error
	Teardown    func() error
}

// TestResult records one test execution. Results are never mutated after
// creation.
type TestResult struct {
	TestName     string
	FunctionName string
	Outcome      Outcome
	Output       any
	Expected     any
	Duration     time.Duration
	Err          string
	Metadata     map[string]any
}

// SuiteSummary aggregates outcome counts over a result set.
type SuiteSummary struct {
	Total       int
	Passed      int
	Failed      int
	Errors      int
	SuccessRate float64
	MeanTime    time.Duration
}

// Runner executes test cases against registered functions. It accumulates
// results for the lifetime of the instance; create a fresh Runner to reset
// history. Not safe for concurrent use.
type Runner struct {
	functions map[string]TestFunc
	metrics   map[string]Metric
	results   []TestResult
	logger    *zap.Logger
}

// NewRunner creates a runner with the built-in exact_match and contains
// metrics registered.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		functions: make(map[string]TestFunc),
		metrics:   make(map[string]Metric),
		logger:    logger,
	}
	r.RegisterMetric(ExactMatch{})
	r.RegisterMetric(Contains{})
	return r
}

// RegisterFunction makes a callable available under name. Last write wins.
func (r *Runner) RegisterFunction(name string, fn TestFunc) {
	r.functions[name] = fn
}

// RegisterMetric adds a metric under its own name. Last write wins.
func (r *Runner) RegisterMetric(m Metric) {
	r.metrics[m.Name()] = m
}

// RunTest executes a single test case and returns its result.
func (r *Runner) RunTest(tc TestCase) (result TestResult) {
	fn, ok := r.functions[tc.Function]
	if !ok {
		return TestResult{
			TestName:     tc.Name,
			FunctionName: tc.Function,
			Outcome:      OutcomeError,
			Expected:     tc.Expected,
			Err:          fmt.Sprintf("function %q not registered", tc.Function),
		}
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = TestResult{
				TestName:     tc.Name,
				FunctionName: tc.Function,
				Outcome:      OutcomeError,
				Expected:     tc.Expected,
				Duration:     time.Since(start),
				Err:          fmt.Sprintf("panic: %v", rec),
				Metadata:     map[string]any{"stack": string(debug.Stack())},
			}
		}
	}()

	output, err := fn(tc.Args)
	elapsed := time.Since(start)
	if err != nil {
		return TestResult{
			TestName:     tc.Name,
			FunctionName: tc.Function,
			Outcome:      OutcomeError,
			Expected:     tc.Expected,
			Duration:     elapsed,
			Err:          fmt.Sprintf("%T: %v", err, err),
			Metadata:     tc.Metadata,
		}
	}

	outcome := OutcomePass
	if tc.Expected != nil {
		var metric Metric
		switch {
		case tc.CustomMetric != nil:
			metric = Custom{Func: tc.CustomMetric, Label: "custom"}
		default:
			named, ok := r.metrics[tc.Metric]
			if !ok {
				named = ExactMatch{}
			}
			metric = named
		}
		if !metric.Evaluate(output, tc.Expected) {
			outcome = OutcomeFail
		}
	}

	return TestResult{
		TestName:     tc.Name,
		FunctionName: tc.Function,
		Outcome:      outcome,
		Output:       output,
		Expected:     tc.Expected,
		Duration:     elapsed,
		Metadata:     tc.Metadata,
	}
}

// RunSuite runs every test case in declaration order. A setup failure aborts
// the suite and yields no results; a teardown failure is logged without
// touching the collected results.
func (r *Runner) RunSuite(suite Suite) []TestResult {
	if suite.Setup != nil {
		if err := suite.Setup(); err != nil {
			r.logger.Error("suite setup failed",
				zap.String("suite", suite.Name),
				zap.Error(err))
			return nil
		}
	}

	results := make([]TestResult, 0, len(suite.Tests))
	for _, tc := range suite.Tests {
		res := r.RunTest(tc)
		results = append(results, res)
		r.results = append(r.results, res)
	}

	if suite.Teardown != nil {
		if err := suite.Teardown(); err != nil {
			r.logger.Warn("suite teardown failed",
				zap.String("suite", suite.Name),
				zap.Error(err))
		}
	}

	return results
}

// Results returns the accumulated history across all RunSuite/RunTest calls.
func (r *Runner) Results() []TestResult {
	out := make([]TestResult, len(r.results))
	copy(out, r.results)
	return out
}

// Summary computes aggregate statistics. A nil results slice summarizes the
// runner's accumulated history.
func (r *Runner) Summary(results []TestResult) SuiteSummary {
	if results == nil {
		results = r.results
	}

	s := SuiteSummary{Total: len(results)}
	var totalTime time.Duration
	for _, res := range results {
		switch res.Outcome {
		case OutcomePass:
			s.Passed++
		case OutcomeFail:
			s.Failed++
		case OutcomeError:
			s.Errors++
		}
		totalTime += res.Duration
	}

	if s.Total > 0 {
		s.SuccessRate = float64(s.Passed) / float64(s.Total)
		s.MeanTime = totalTime / time.Duration(s.Total)
	}
	return s
}

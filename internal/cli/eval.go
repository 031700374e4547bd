package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/planforge/planforge/internal/agent"
	"github.com/planforge/planforge/internal/eval"
	"github.com/planforge/planforge/internal/lesson"
	"github.com/planforge/planforge/internal/llm/configbuilder"
	"github.com/planforge/planforge/internal/logging"
)

// NewEvalCmd runs a registered model-graded eval end to end.
func NewEvalCmd(opts *Options) *cobra.Command {
	var maxSamples int
	var registryPath string

	cmd := &cobra.Command{
		Use:   "eval <name>",
		Short: "Run a model-graded eval from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort

			root := cfg.Eval.RegistryPath
			if registryPath != "" {
				root = registryPath
			}
			registry := eval.NewRegistry(root)

			def, err := registry.LookupEval(args[0])
			if err != nil {
				return err
			}
			spec, err := registry.GradingSpecFor(def)
			if err != nil {
				return err
			}
			samples, err := registry.SamplesFor(def)
			if err != nil {
				return err
			}
			if maxSamples > 0 && len(samples) > maxSamples {
				samples = samples[:maxSamples]
			}

			llmRegistry, err := configbuilder.BuildRegistryFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("build registry: %w", err)
			}
			agentCore := agent.New(llmRegistry, cfg.Agent)
			planner := lesson.NewPlanner(agentCore, "eval-"+uuid.NewString())
			completer := lesson.NewCompletionFn(planner, logger)

			grader := eval.NewModelGraded(spec, completer, logger)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running eval %q over %d samples\n", def.ID, len(samples))

			results := make([]eval.EvalResult, 0, len(samples))
			for i, sample := range samples {
				result := grader.EvaluateSample(cmd.Context(), sample)
				fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(samples), result)
				results = append(results, result)
			}

			if len(results) == 0 {
				return fmt.Errorf("eval %q produced no results", def.ID)
			}

			summary := eval.Summarize(results, cfg.Eval.PassingScore)
			fmt.Fprintf(out, "\nSamples:       %d\n", summary.Total)
			fmt.Fprintf(out, "Average score: %.3f\n", summary.AverageScore)
			fmt.Fprintf(out, "Pass rate:     %.0f%% (threshold %.2f)\n", summary.PassRate*100, summary.PassingScore)
			fmt.Fprintf(out, "Mean duration: %s\n", summary.MeanTime)
			fmt.Fprintln(out, "Grades:")
			for _, grade := range summary.GradeOrder() {
				fmt.Fprintf(out, "  %s: %d\n", grade, summary.Grades[grade])
			}

			if summary.AverageScore < cfg.Eval.PassingScore {
				return fmt.Errorf("eval %q failed: average score %.3f below %.2f",
					def.ID, summary.AverageScore, cfg.Eval.PassingScore)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxSamples, "max-samples", 0, "Limit the number of samples (0 = all)")
	cmd.Flags().StringVar(&registryPath, "registry", "", "Override eval registry root directory")
	return cmd
}

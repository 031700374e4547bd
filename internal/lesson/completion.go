package lesson

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/planforge/planforge/internal/eval"
)

// CompletionFn adapts a Planner to the eval harness. When the prompt
// carries enough detail to recover subject, topic, and grade level it
// generates a full lesson plan; otherwise it falls back to plain chat.
type CompletionFn struct {
	planner *Planner
	logger  *zap.Logger
}

// NewCompletionFn builds a CompletionFn around the given planner.
func NewCompletionFn(planner *Planner, logger *zap.Logger) *CompletionFn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionFn{planner: planner, logger: logger}
}

var _ eval.Completer = (*CompletionFn)(nil)

// Complete generates a completion for one eval prompt. Each call resets
// the planner's conversation so samples do not bleed into each other.
func (c *CompletionFn) Complete(ctx context.Context, prompt string) (string, error) {
	c.planner.Reset()

	params := ExtractParams(prompt)
	if params.Complete() {
		c.logger.Debug("routing prompt to lesson plan generation",
			zap.String("subject", params.Subject),
			zap.String("topic", params.Topic),
			zap.String("grade_level", params.GradeLevel))
		plan, err := c.planner.GeneratePlan(ctx, PlanRequest{
			Subject:    params.Subject,
			Topic:      params.Topic,
			GradeLevel: params.GradeLevel,
		})
		if err != nil {
			return "", fmt.Errorf("generate lesson plan: %w", err)
		}
		return plan, nil
	}

	c.logger.Debug("prompt missing lesson parameters, using plain chat")
	reply, err := c.planner.Chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return reply, nil
}

package lesson

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planforge/planforge/internal/agent"
	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/llm"
	llmmock "github.com/planforge/planforge/internal/llm/mock"
)

func newTestPlanner(chatFn func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)) *Planner {
	reg := llm.NewRegistry()
	reg.RegisterProvider("mock", &llmmock.Provider{ChatFn: chatFn})
	reg.RegisterModel("default", llm.ModelRoute{Provider: "mock", Model: "m"}, true)
	a := agent.New(reg, config.AgentConfig{SystemPrompt: SystemPrompt})
	return NewPlanner(a, "test")
}

func TestExtractParams(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   Params
	}{
		{
			name:   "full lesson request",
			prompt: "Create a lesson plan about photosynthesis for 7th grade science students",
			want:   Params{Subject: "Science", Topic: "photosynthesis for 7th", GradeLevel: "7th Grade"},
		},
		{
			name:   "grade N form",
			prompt: "I need a math lesson covering fractions in grade 4",
			want:   Params{Subject: "Mathematics", Topic: "covering fractions in", GradeLevel: "4th Grade"},
		},
		{
			name:   "no parameters",
			prompt: "hello there",
			want:   Params{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractParams(tc.prompt))
		})
	}
}

func TestExtractParamsTopicHeuristics(t *testing.T) {
	// Indicators match as raw substrings, so "on" inside "revolution"
	// anchors the topic. Crude, but mirrors how real prompts get parsed.
	got := ExtractParams("Teach the American Revolution to 8th graders")
	require.Empty(t, got.Subject)
	require.Equal(t, "to 8th graders", got.Topic)
	require.Equal(t, "8th Grade", got.GradeLevel)
}

func TestExtractParamsCommonTopicFallback(t *testing.T) {
	got := ExtractParams("8th grade history: American Revolution!")
	require.Equal(t, "History", got.Subject)
	require.Equal(t, "8th Grade", got.GradeLevel)
	require.Equal(t, "American Revolution", got.Topic)
}

func TestGeneratePlanDefaultsDuration(t *testing.T) {
	var seen string
	p := newTestPlanner(func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		seen = req.Messages[len(req.Messages)-1].Content
		return llm.ChatResponse{Content: "plan"}, nil
	})

	out, err := p.GeneratePlan(context.Background(), PlanRequest{
		Subject: "Science", Topic: "Photosynthesis", GradeLevel: "7th Grade",
	})
	require.NoError(t, err)
	require.Equal(t, "plan", out)
	require.Contains(t, seen, "Duration: 50 minutes")
	require.Contains(t, seen, "Subject: Science")
}

func TestGenerateActivityAndAssessmentDefaults(t *testing.T) {
	var prompts []string
	p := newTestPlanner(func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		prompts = append(prompts, req.Messages[len(req.Messages)-1].Content)
		return llm.ChatResponse{Content: "ok"}, nil
	})

	_, err := p.GenerateActivity(context.Background(), "Math", "Fractions", "")
	require.NoError(t, err)
	_, err = p.CreateAssessment(context.Background(), "Math", "Fractions", "")
	require.NoError(t, err)

	require.Contains(t, prompts[0], "hands-on learning activity")
	require.Contains(t, prompts[1], "formative assessment")
}

func TestCompletionFnRoutesToLessonPlan(t *testing.T) {
	var seen string
	p := newTestPlanner(func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		seen = req.Messages[len(req.Messages)-1].Content
		return llm.ChatResponse{Content: "a full lesson plan"}, nil
	})
	fn := NewCompletionFn(p, nil)

	out, err := fn.Complete(context.Background(), "Create a lesson plan about photosynthesis for 7th grade science students")
	require.NoError(t, err)
	require.Equal(t, "a full lesson plan", out)
	require.Contains(t, seen, "comprehensive lesson plan")
	require.Contains(t, seen, "Grade Level: 7th Grade")
}

func TestCompletionFnFallsBackToChat(t *testing.T) {
	var seen string
	p := newTestPlanner(func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		seen = req.Messages[len(req.Messages)-1].Content
		return llm.ChatResponse{Content: "chat reply"}, nil
	})
	fn := NewCompletionFn(p, nil)

	out, err := fn.Complete(context.Background(), "What makes a good warm-up?")
	require.NoError(t, err)
	require.Equal(t, "chat reply", out)
	require.Equal(t, "What makes a good warm-up?", seen)
}

func TestCompletionFnResetsBetweenSamples(t *testing.T) {
	var lens []int
	p := newTestPlanner(func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		lens = append(lens, len(req.Messages))
		return llm.ChatResponse{Content: "reply"}, nil
	})
	fn := NewCompletionFn(p, nil)

	for i := 0; i < 3; i++ {
		_, err := fn.Complete(context.Background(), "sample prompt number "+strings.Repeat("x", i))
		require.NoError(t, err)
	}
	// Every call sees the same fresh history: system prompt plus one user turn.
	require.Equal(t, []int{2, 2, 2}, lens)
}

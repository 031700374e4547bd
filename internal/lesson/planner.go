// Package lesson builds lesson plans through the chat agent and adapts it to
// the evaluation harness as a completion function.
package lesson

import (
	"context"
	"fmt"
	"strings"

	"github.com/planforge/planforge/internal/agent"
)

// SystemPrompt instructs the model to act as a lesson plan designer.
const SystemPrompt = `You are an expert educational consultant and lesson plan designer.
Your role is to create comprehensive, engaging, and pedagogically sound lesson plans.

When creating lesson plans, always include:
1. Clear learning objectives
2. Target audience/grade level
3. Duration and timing
4. Required materials
5. Step-by-step activities
6. Assessment methods
7. Differentiation strategies

Make your lesson plans practical, engaging, and aligned with educational standards.`

// PlanRequest describes one lesson plan to generate.
type PlanRequest struct {
	Subject                string
	Topic                  string
	GradeLevel             string
	Duration               string
	AdditionalRequirements string
}

// Planner is a specialized wrapper over the chat agent for lesson planning.
type Planner struct {
	agent     *agent.Agent
	sessionID string
}

// NewPlanner creates a planner bound to its own agent session.
func NewPlanner(a *agent.Agent, sessionID string) *Planner {
	return &Planner{agent: a, sessionID: sessionID}
}

// GeneratePlan produces a full lesson plan for the request.
func (p *Planner) GeneratePlan(ctx context.Context, req PlanRequest) (string, error) {
	if req.Duration == "" {
		req.Duration = "50 minutes"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a comprehensive lesson plan with the following specifications:\n\n")
	fmt.Fprintf(&b, "Subject: %s\nTopic: %s\nGrade Level: %s\nDuration: %s\n",
		req.Subject, req.Topic, req.GradeLevel, req.Duration)
	if req.AdditionalRequirements != "" {
		fmt.Fprintf(&b, "\nAdditional Requirements: %s\n", req.AdditionalRequirements)
	}
	b.WriteString("\nPlease provide a detailed lesson plan that includes all the essential components mentioned in my instructions.")

	return p.agent.Chat(ctx, p.sessionID, b.String())
}

// GenerateActivity produces a single learning activity.
func (p *Planner) GenerateActivity(ctx context.Context, subject, topic, activityType string) (string, error) {
	if activityType == "" {
		activityType = "hands-on"
	}
	prompt := fmt.Sprintf(`Design a %s learning activity for:
Subject: %s
Topic: %s

The activity should be engaging, educational, and practical to implement in a classroom setting.`,
		activityType, subject, topic)
	return p.agent.Chat(ctx, p.sessionID, prompt)
}

// CreateAssessment produces an assessment for the lesson.
func (p *Planner) CreateAssessment(ctx context.Context, subject, topic, assessmentType string) (string, error) {
	if assessmentType == "" {
		assessmentType = "formative"
	}
	prompt := fmt.Sprintf(`Create a %s assessment for:
Subject: %s
Topic: %s

Include clear rubrics and success criteria.`, assessmentType, subject, topic)
	return p.agent.Chat(ctx, p.sessionID, prompt)
}

// AdaptForGrade rewrites existing lesson content for a different grade level.
func (p *Planner) AdaptForGrade(ctx context.Context, content, targetGrade string) (string, error) {
	prompt := fmt.Sprintf(`Adapt the following lesson content for %s students:

%s

Adjust the complexity, vocabulary, activities, and expectations to be appropriate for this grade level.`,
		targetGrade, content)
	return p.agent.Chat(ctx, p.sessionID, prompt)
}

// Chat sends a free-form message through the planner's session.
func (p *Planner) Chat(ctx context.Context, message string) (string, error) {
	return p.agent.Chat(ctx, p.sessionID, message)
}

// Reset clears the planner's conversation back to the system prompt.
func (p *Planner) Reset() {
	p.agent.ResetSession(p.sessionID)
}

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/insight"
	"github.com/starford/planner/internal/models"
)

// Output budgets per call site.
const (
	InsightsMaxTokens  = 2000
	FeedbackMaxTokens  = 2000
	BreakdownMaxTokens = 2500
)

var fence = regexp.MustCompile("```(?:json)?[ \t]*\r?\n?")

// Decode strips Markdown code fences from a reply and unmarshals the JSON
// object it contains.
func Decode[T any](text string) (T, error) {
	var v T
	s := strings.TrimSpace(fence.ReplaceAllString(text, ""))
	if !strings.HasPrefix(s, "{") {
		start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
		if start < 0 || end < start {
			return v, apperr.Collaborator("parse reply", 0, fmt.Errorf("no JSON object in reply"))
		}
		s = s[start : end+1]
	}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return v, apperr.Collaborator("parse reply", 0, err)
	}
	return v, nil
}

// Insights asks gen for insights about s. Failures are returned inside
// the outcome so the caller can fall back to the rules.
func Insights(ctx context.Context, gen Generator, model string, s insight.Snapshot) insight.Outcome {
	text, err := gen.Generate(ctx, Request{Model: model, Prompt: InsightsPrompt(s), MaxTokens: InsightsMaxTokens})
	if err != nil {
		return insight.Failed(err)
	}
	reply, err := Decode[struct {
		Insights []models.Insight `json:"insights"`
	}](text)
	if err != nil {
		return insight.Failed(err)
	}
	return insight.Generated(reply.Insights)
}

// FeedbackResult is the reply to a feedback submission.
type FeedbackResult struct {
	Analysis        string           `json:"analysis"`
	Suggestions     []string         `json:"suggestions"`
	UpdatedInsights []models.Insight `json:"updatedInsights"`
}

// Feedback relays user feedback. There is no rule-based fallback.
func Feedback(ctx context.Context, gen Generator, model string, c Counts, text string) (FeedbackResult, error) {
	if strings.TrimSpace(text) == "" {
		return FeedbackResult{}, apperr.Validation("feedback", "must not be empty")
	}
	reply, err := gen.Generate(ctx, Request{Model: model, Prompt: FeedbackPrompt(c, text), MaxTokens: FeedbackMaxTokens})
	if err != nil {
		return FeedbackResult{}, err
	}
	res, err := Decode[FeedbackResult](reply)
	if err != nil {
		return FeedbackResult{}, err
	}
	if res.Suggestions == nil {
		res.Suggestions = []string{}
	}
	if res.UpdatedInsights == nil {
		res.UpdatedInsights = []models.Insight{}
	}
	return res, nil
}

// BreakdownResult is the proposed decomposition of a goal.
type BreakdownResult struct {
	Analysis string             `json:"analysis"`
	SubGoals []models.GoalDraft `json:"subGoals"`
}

// Breakdown asks gen to split g into sub-goals. There is no fallback.
func Breakdown(ctx context.Context, gen Generator, model string, g models.Goal) (BreakdownResult, error) {
	reply, err := gen.Generate(ctx, Request{Model: model, Prompt: BreakdownPrompt(g), MaxTokens: BreakdownMaxTokens})
	if err != nil {
		return BreakdownResult{}, err
	}
	res, err := Decode[BreakdownResult](reply)
	if err != nil {
		return BreakdownResult{}, err
	}
	if res.SubGoals == nil {
		res.SubGoals = []models.GoalDraft{}
	}
	return res, nil
}

package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/planner/internal/ai"
	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/clock"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/planservice"
)

// GoalRequest is the body for creating or updating a goal.
type GoalRequest struct {
	Name        string `json:"name" example:"Run a marathon" validate:"required"`
	Type        string `json:"type" example:"yearly" validate:"required"`
	Category    string `json:"category,omitempty" example:"health"`
	Description string `json:"description,omitempty"`
	Deadline    string `json:"deadline,omitempty" example:"2025-12-31"`
	Progress    int    `json:"progress" example:"25"`
}

func (r GoalRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Type, validation.Required),
		validation.Field(&r.Deadline, validation.Date(time.DateOnly)),
	)
}

func (r GoalRequest) model() models.Goal {
	return models.Goal{
		Name:        r.Name,
		Type:        models.GoalType(r.Type),
		Category:    r.Category,
		Description: r.Description,
		Deadline:    r.Deadline,
		Progress:    r.Progress,
	}
}

// ActivityRequest is the body for creating or updating a daily activity.
type ActivityRequest struct {
	Name      string `json:"name" example:"Standup" validate:"required"`
	StartTime string `json:"startTime" example:"09:00" validate:"required"`
	Duration  int    `json:"duration" example:"30" validate:"required"`
}

func (r ActivityRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.StartTime, validation.Required, validation.By(func(any) error {
			_, err := clock.Parse(r.StartTime)
			return err
		})),
		validation.Field(&r.Duration, validation.Required, validation.Min(1)),
	)
}

func (r ActivityRequest) model() models.Activity {
	start, _ := clock.Parse(r.StartTime)
	return models.Activity{Name: r.Name, StartTime: start, Duration: r.Duration}
}

// TaskRequest is the body for creating or updating a task.
type TaskRequest struct {
	Name          string    `json:"name" example:"Review PR" validate:"required"`
	GoalID        models.ID `json:"goalId,omitempty"`
	Category      string    `json:"category,omitempty" example:"meeting"`
	Priority      int       `json:"priority" example:"3"`
	EstimatedTime int       `json:"estimatedTime,omitempty" example:"45"`
	Completed     bool      `json:"completed"`
	Preparation   string    `json:"preparation,omitempty"`
	Guidance      string    `json:"guidance,omitempty"`
	ScheduledDate string    `json:"scheduledDate,omitempty" example:"2025-03-14"`
}

func (r TaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Priority, validation.Min(0), validation.Max(3)),
		validation.Field(&r.EstimatedTime, validation.Min(0)),
		validation.Field(&r.ScheduledDate, validation.Date(time.DateOnly)),
	)
}

func (r TaskRequest) model() models.Task {
	return models.Task{
		Name:          r.Name,
		GoalID:        r.GoalID,
		Category:      r.Category,
		Priority:      models.Priority(r.Priority),
		EstimatedTime: r.EstimatedTime,
		Completed:     r.Completed,
		Preparation:   r.Preparation,
		Guidance:      r.Guidance,
		ScheduledDate: r.ScheduledDate,
	}
}

// CompleteRequest toggles a task. An empty body marks it completed.
type CompleteRequest struct {
	Completed *bool `json:"completed,omitempty"`
}

// FeedbackRequest carries free-text user feedback.
type FeedbackRequest struct {
	Feedback string `json:"feedback" example:"I never finish my evening tasks" validate:"required"`
}

func (r FeedbackRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Feedback, validation.Required, validation.Length(1, 4000)),
	)
}

// ApplyBreakdownRequest lists the proposed sub-goals to create.
type ApplyBreakdownRequest struct {
	SubGoals []models.GoalDraft `json:"subGoals" validate:"required"`
}

func (r ApplyBreakdownRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SubGoals, validation.Required),
	)
}

// SettingsRequest updates the text-generation settings.
type SettingsRequest = models.Settings

// ScheduleResponse is a synthesized day.
type ScheduleResponse = planservice.ScheduleView

// WeekResponse is the multi-day view.
type WeekResponse struct {
	From string      `json:"from" example:"2025-03-14"`
	Days []DayPlanVM `json:"days"`
}

// DayPlanVM is one day of the weekly view.
type DayPlanVM struct {
	Date        string                 `json:"date" example:"2025-03-14"`
	Entries     []models.ScheduleEntry `json:"entries"`
	Unscheduled []models.Task          `json:"unscheduled"`
}

// InsightsResponse carries insights and where they came from. Warning
// explains a fallback to the rules.
type InsightsResponse struct {
	Insights []models.Insight `json:"insights"`
	Source   string           `json:"source,omitempty" example:"rules"`
	Warning  string           `json:"warning,omitempty"`
}

// FeedbackResponse is the collaborator's reply to feedback.
type FeedbackResponse = ai.FeedbackResult

// BreakdownResponse is the proposed decomposition of a goal.
type BreakdownResponse = ai.BreakdownResult

// validate runs v.Validate and wraps a failure as a validation error.
func validate(v validation.Validatable) error {
	if err := v.Validate(); err != nil {
		return &apperr.ValidationError{Reason: "invalid request", Err: err}
	}
	return nil
}

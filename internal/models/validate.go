package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/planner/internal/clock"
)

func goalTypeValues() []any {
	out := make([]any, len(GoalTypes))
	for i, t := range GoalTypes {
		out[i] = t
	}
	return out
}

// Validate checks the user-editable fields of g.
func (g Goal) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&g.Type, validation.Required, validation.In(goalTypeValues()...)),
		validation.Field(&g.Progress, validation.Min(0), validation.Max(100)),
		validation.Field(&g.Deadline, validation.Date(time.DateOnly)),
	)
}

// Validate checks that a lies within one day.
func (a Activity) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.StartTime, validation.Min(clock.DayStart), validation.Max(clock.DayEnd-1)),
		validation.Field(&a.Duration, validation.Required, validation.Min(1), validation.Max(int(clock.DayEnd))),
	)
}

// Validate checks the user-editable fields of t. A zero priority or
// estimate is allowed and means "use the default".
func (t Task) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&t.Priority, validation.In(PriorityLow, PriorityMedium, PriorityHigh)),
		validation.Field(&t.EstimatedTime, validation.Min(0), validation.Max(int(clock.DayEnd))),
		validation.Field(&t.ScheduledDate, validation.Date(time.DateOnly)),
	)
}

// Validate checks the provider name.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Provider, validation.In(ProviderClaude, ProviderOpenAI, ProviderQwen, ProviderDeepSeek)),
		validation.Field(&s.Endpoint, validation.Length(0, 2048)),
		validation.Field(&s.Model, validation.Length(0, 200)),
	)
}

// Package models defines the planner's domain types.
package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/starford/planner/internal/clock"
)

// ID is an opaque record identifier. Older backups carry numeric ids, so
// decoding accepts both JSON strings and numbers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// GoalType is the planning horizon of a goal.
type GoalType string

const (
	GoalLongTerm  GoalType = "long-term"
	GoalYearly    GoalType = "yearly"
	GoalQuarterly GoalType = "quarterly"
	GoalMonthly   GoalType = "monthly"
	GoalWeekly    GoalType = "weekly"
)

// GoalTypes lists the valid goal types.
var GoalTypes = []GoalType{GoalLongTerm, GoalYearly, GoalQuarterly, GoalMonthly, GoalWeekly}

// Goal is a long-lived objective. ParentGoalID is a weak reference to the
// goal it was broken down from; it may dangle.
type Goal struct {
	ID           ID        `json:"id"`
	Name         string    `json:"name"`
	Type         GoalType  `json:"type"`
	Category     string    `json:"category,omitempty"`
	Description  string    `json:"description,omitempty"`
	Deadline     string    `json:"deadline,omitempty"`
	Progress     int       `json:"progress"`
	CreatedAt    time.Time `json:"createdAt"`
	ParentGoalID ID        `json:"parentGoalId,omitempty"`
}

// SetProgress stores p clamped to [0,100].
func (g *Goal) SetProgress(p int) {
	g.Progress = ClampProgress(p)
}

// ClampProgress clamps p to [0,100].
func ClampProgress(p int) int {
	return min(max(p, 0), 100)
}

// FindGoal looks up a goal by id.
func FindGoal(goals []Goal, id ID) (Goal, bool) {
	for _, g := range goals {
		if g.ID == id {
			return g, true
		}
	}
	return Goal{}, false
}

// Activity is a fixed daily commitment.
type Activity struct {
	ID        ID            `json:"id"`
	Name      string        `json:"name"`
	StartTime clock.Minutes `json:"startTime"`
	Duration  int           `json:"duration"`
}

// End returns the minute the activity finishes.
func (a Activity) End() clock.Minutes {
	return a.StartTime + clock.Minutes(a.Duration)
}

// Priority ranks a task: 1 low, 2 medium, 3 high.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// DefaultEstimate is used when a task carries no estimate.
const DefaultEstimate = 60

// Task is a unit of work in the backlog.
type Task struct {
	ID            ID        `json:"id"`
	Name          string    `json:"name"`
	GoalID        ID        `json:"goalId,omitempty"`
	Category      string    `json:"category,omitempty"`
	Priority      Priority  `json:"priority"`
	EstimatedTime int       `json:"estimatedTime,omitempty"`
	Completed     bool      `json:"completed"`
	CreatedAt     time.Time `json:"createdAt"`
	Preparation   string    `json:"preparation,omitempty"`
	Guidance      string    `json:"guidance,omitempty"`
	ScheduledDate string    `json:"scheduledDate,omitempty"`
}

// Estimate returns the estimated minutes, falling back to DefaultEstimate.
func (t Task) Estimate() int {
	if t.EstimatedTime == 0 {
		return DefaultEstimate
	}
	return t.EstimatedTime
}

// EntryKind tells which collection a schedule entry came from.
type EntryKind string

const (
	KindActivity EntryKind = "activity"
	KindTask     EntryKind = "task"
)

// EntryItem is the snapshot of the originating record carried by an entry.
type EntryItem struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	Preparation string   `json:"preparation,omitempty"`
	Guidance    string   `json:"guidance,omitempty"`
}

// ScheduleEntry is one block of the synthesized day.
type ScheduleEntry struct {
	Kind      EntryKind     `json:"type"`
	Item      EntryItem     `json:"item"`
	StartTime clock.Minutes `json:"startTime"`
	Duration  int           `json:"duration"`
}

// End returns the minute the entry finishes.
func (e ScheduleEntry) End() clock.Minutes {
	return e.StartTime + clock.Minutes(e.Duration)
}

// ActivityEntry builds the entry for a.
func ActivityEntry(a Activity) ScheduleEntry {
	return ScheduleEntry{
		Kind:      KindActivity,
		Item:      EntryItem{ID: a.ID, Name: a.Name},
		StartTime: a.StartTime,
		Duration:  a.Duration,
	}
}

// TaskEntry builds the entry for t placed at start for duration minutes.
func TaskEntry(t Task, start clock.Minutes, duration int) ScheduleEntry {
	return ScheduleEntry{
		Kind: KindTask,
		Item: EntryItem{
			ID:          t.ID,
			Name:        t.Name,
			Category:    t.Category,
			Priority:    t.Priority,
			Preparation: t.Preparation,
			Guidance:    t.Guidance,
		},
		StartTime: start,
		Duration:  duration,
	}
}

// InsightType classifies a finding.
type InsightType string

const (
	InsightAutomation InsightType = "automation"
	InsightWarning    InsightType = "warning"
	InsightEfficiency InsightType = "efficiency"
	InsightSuccess    InsightType = "success"
)

// Insight is a derived diagnostic finding.
type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    string      `json:"priority"`
	Actionable  string      `json:"actionable,omitempty"`
}

// GoalDraft is a sub-goal proposed by the text generator.
type GoalDraft struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Deadline    string   `json:"deadline,omitempty"`
	KeyActions  []string `json:"keyActions,omitempty"`
}

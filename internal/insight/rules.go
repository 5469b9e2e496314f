// Package insight inspects a planning snapshot with a fixed table of rules.
package insight

import (
	"fmt"
	"math"
	"strings"

	"github.com/starford/planner/internal/clock"
	"github.com/starford/planner/internal/models"
)

// MeetingCategory is the task category counted by the meeting density rule.
const MeetingCategory = "meeting"

// meetingLimit is the number of meeting tasks tolerated before the rule fires.
const meetingLimit = 3

// Snapshot is the read-only input to the rules.
type Snapshot struct {
	Goals      []models.Goal
	Activities []models.Activity
	Tasks      []models.Task
	Schedule   []models.ScheduleEntry
}

// Rule is one predicate plus formatter. Check reports false when the rule
// has nothing to say about the snapshot.
type Rule struct {
	Name  string
	Check func(Snapshot) (models.Insight, bool)
}

// DefaultRules are evaluated in order. Append new rules at the end.
var DefaultRules = []Rule{
	{Name: "duplicate-tasks", Check: duplicateTasks},
	{Name: "overload", Check: overload},
	{Name: "meeting-density", Check: meetingDensity},
}

// Analyzer evaluates a rule table.
type Analyzer struct {
	Rules []Rule
}

// Analyze runs every rule in order and collects the findings.
func (a Analyzer) Analyze(s Snapshot) []models.Insight {
	out := []models.Insight{}
	for _, r := range a.Rules {
		if in, ok := r.Check(s); ok {
			out = append(out, in)
		}
	}
	return out
}

// Analyze runs DefaultRules.
func Analyze(s Snapshot) []models.Insight {
	return Analyzer{Rules: DefaultRules}.Analyze(s)
}

// DuplicateCount returns how many task names repeat an earlier name,
// compared case-insensitively.
func DuplicateCount(tasks []models.Task) int {
	seen := make(map[string]struct{}, len(tasks))
	n := 0
	for _, t := range tasks {
		key := strings.ToLower(t.Name)
		if _, ok := seen[key]; ok {
			n++
			continue
		}
		seen[key] = struct{}{}
	}
	return n
}

func duplicateTasks(s Snapshot) (models.Insight, bool) {
	n := DuplicateCount(s.Tasks)
	if n == 0 {
		return models.Insight{}, false
	}
	return models.Insight{
		Type:        models.InsightAutomation,
		Title:       "Duplicate tasks found",
		Description: fmt.Sprintf("Detected %d duplicate tasks. Consider a template or an automated workflow.", n),
		Priority:    "high",
	}, true
}

// Workload returns the summed task estimates (completed tasks included) and
// the minutes of the day left after fixed activities.
func Workload(s Snapshot) (taskMinutes, availableMinutes int) {
	for _, t := range s.Tasks {
		taskMinutes += t.EstimatedTime
	}
	busy := 0
	for _, a := range s.Activities {
		busy += a.Duration
	}
	return taskMinutes, int(clock.DayEnd) - busy
}

func overload(s Snapshot) (models.Insight, bool) {
	total, available := Workload(s)
	if total <= available {
		return models.Insight{}, false
	}
	return models.Insight{
		Type:  models.InsightWarning,
		Title: "Task time overload",
		Description: fmt.Sprintf("Tasks need %d hours but only %d hours are available. Re-evaluate priorities.",
			hours(total), hours(available)),
		Priority: "high",
	}, true
}

func meetingDensity(s Snapshot) (models.Insight, bool) {
	n := 0
	for _, t := range s.Tasks {
		if t.Category == MeetingCategory {
			n++
		}
	}
	if n <= meetingLimit {
		return models.Insight{}, false
	}
	return models.Insight{
		Type:        models.InsightEfficiency,
		Title:       "Meeting heavy day",
		Description: "Many meetings today. Merge related meetings or switch to asynchronous updates.",
		Priority:    "medium",
	}, true
}

func hours(minutes int) int {
	return int(math.Round(float64(minutes) / 60))
}

// Package schedule merges fixed activities and the task backlog into a
// conflict-free daily timetable.
package schedule

import (
	"slices"

	"github.com/starford/planner/internal/clock"
	"github.com/starford/planner/internal/models"
)

// MinGap is the smallest free interval a task is placed into.
const MinGap = 30

// Result is the outcome of one synthesis run.
type Result struct {
	Entries []models.ScheduleEntry
	// Backlog holds the tasks that were not placed.
	Backlog *Backlog
}

// Synthesize sweeps the day once in activity start order. Before each
// activity it places at most one task into the free gap, provided the gap
// is at least MinGap minutes. A task longer than its gap is cut to fit and
// the rest of its estimate is dropped. Nothing is placed after the last
// activity, so with no activities the schedule is empty.
//
// After each activity the cursor moves to that activity's end, even when
// an earlier, longer activity ends later. Tasks are never placed before
// the workday anchor; activities that start earlier are emitted as they are.
//
// The inputs are not modified.
func Synthesize(activities []models.Activity, tasks []models.Task) Result {
	sorted := slices.Clone(activities)
	slices.SortStableFunc(sorted, func(a, b models.Activity) int {
		return int(a.StartTime) - int(b.StartTime)
	})

	backlog := NewBacklog(tasks)
	entries := make([]models.ScheduleEntry, 0, len(sorted)*2)
	cursor := clock.WorkdayAnchor

	for _, a := range sorted {
		start := max(cursor, clock.WorkdayAnchor)
		gap := int(a.StartTime - start)
		if gap >= MinGap && backlog.Len() > 0 {
			t, _ := backlog.Pop()
			entries = append(entries, models.TaskEntry(t, start, min(gap, t.Estimate())))
		}
		entries = append(entries, models.ActivityEntry(a))
		cursor = a.End()
	}

	return Result{Entries: entries, Backlog: backlog}
}

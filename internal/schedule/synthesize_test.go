package schedule

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/starford/planner/internal/clock"
	"github.com/starford/planner/internal/models"
)

func activity(name, start string, dur int) models.Activity {
	return models.Activity{ID: models.ID(name), Name: name, StartTime: clock.MustParse(start), Duration: dur}
}

func task(name string, prio models.Priority, est int) models.Task {
	return models.Task{ID: models.ID(name), Name: name, Priority: prio, EstimatedTime: est}
}

func TestSynthesize_StandupScenario(t *testing.T) {
	acts := []models.Activity{activity("Standup", "09:00", 15)}
	tasks := []models.Task{task("Write report", models.PriorityHigh, 90)}

	res := Synthesize(acts, tasks)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, models.KindTask, res.Entries[0].Kind)
	assert.Equal(t, "Write report", res.Entries[0].Item.Name)
	assert.Equal(t, clock.Minutes(480), res.Entries[0].StartTime)
	// 09:00 is minute 540, so the gap from 08:00 is 60: min(60, 90).
	assert.Equal(t, 60, res.Entries[0].Duration)

	assert.Equal(t, models.KindActivity, res.Entries[1].Kind)
	assert.Equal(t, clock.Minutes(540), res.Entries[1].StartTime)
	assert.Equal(t, 15, res.Entries[1].Duration)

	// The partially placed task is consumed.
	assert.Equal(t, 0, res.Backlog.Len())
}

func TestSynthesize_NoActivitiesMeansEmptySchedule(t *testing.T) {
	tasks := []models.Task{task("a", 3, 30), task("b", 1, 30)}
	res := Synthesize(nil, tasks)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 2, res.Backlog.Len())
}

func TestSynthesize_OneTaskPerGap(t *testing.T) {
	acts := []models.Activity{activity("Lunch", "12:00", 60)}
	tasks := []models.Task{task("a", 2, 30), task("b", 2, 30), task("c", 2, 30)}

	res := Synthesize(acts, tasks)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, "a", res.Entries[0].Item.Name)
	assert.Equal(t, 30, res.Entries[0].Duration)
	left := res.Backlog.Tasks()
	require.Len(t, left, 2)
	assert.Equal(t, "b", left[0].Name)
	assert.Equal(t, "c", left[1].Name)
}

func TestSynthesize_GapBelowThresholdSkipped(t *testing.T) {
	acts := []models.Activity{activity("Early", "08:29", 31), activity("Gym", "09:30", 30)}
	res := Synthesize(acts, []models.Task{task("x", 1, 20)})

	require.Len(t, res.Entries, 3)
	assert.Equal(t, "Early", res.Entries[0].Item.Name)
	assert.Equal(t, "x", res.Entries[1].Item.Name)
	assert.Equal(t, clock.Minutes(540), res.Entries[1].StartTime)
	assert.Equal(t, 20, res.Entries[1].Duration)
}

func TestSynthesize_PriorityOrderStable(t *testing.T) {
	acts := []models.Activity{
		activity("A", "09:00", 30),
		activity("B", "10:00", 30),
		activity("C", "11:00", 30),
	}
	tasks := []models.Task{task("low", 1, 30), task("hi1", 3, 30), task("hi2", 3, 30)}

	res := Synthesize(acts, tasks)

	var placed []string
	for _, e := range res.Entries {
		if e.Kind == models.KindTask {
			placed = append(placed, e.Item.Name)
		}
	}
	assert.Equal(t, []string{"hi1", "hi2", "low"}, placed)
}

func TestSynthesize_CompletedTasksIgnored(t *testing.T) {
	done := task("done", 3, 30)
	done.Completed = true
	res := Synthesize([]models.Activity{activity("A", "10:00", 30)}, []models.Task{done})
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 0, res.Backlog.Len())
}

func TestSynthesize_DefaultEstimate(t *testing.T) {
	res := Synthesize([]models.Activity{activity("A", "12:00", 30)}, []models.Task{task("x", 2, 0)})
	require.Len(t, res.Entries, 2)
	assert.Equal(t, models.DefaultEstimate, res.Entries[0].Duration)
}

func TestSynthesize_EarlyActivityNotClipped(t *testing.T) {
	acts := []models.Activity{activity("Run", "06:30", 30), activity("Call", "09:00", 30)}
	res := Synthesize(acts, []models.Task{task("x", 2, 120)})

	require.Len(t, res.Entries, 3)
	assert.Equal(t, clock.Minutes(390), res.Entries[0].StartTime)
	assert.Equal(t, clock.Minutes(480), res.Entries[1].StartTime)
	assert.Equal(t, 60, res.Entries[1].Duration)
}

func TestSynthesize_CursorFollowsLastActivity(t *testing.T) {
	// The 08:30 activity lies inside the 08:00-10:00 block; the cursor moves
	// to its end (08:45), not to the end of the enclosing block.
	acts := []models.Activity{
		activity("Workshop", "08:00", 120),
		activity("Call", "08:30", 15),
		activity("Review", "10:30", 30),
	}
	res := Synthesize(acts, []models.Task{task("Deep work", 2, 200)})

	require.Len(t, res.Entries, 4)
	assert.Equal(t, "Workshop", res.Entries[0].Item.Name)
	assert.Equal(t, "Call", res.Entries[1].Item.Name)
	assert.Equal(t, "Deep work", res.Entries[2].Item.Name)
	assert.Equal(t, clock.Minutes(525), res.Entries[2].StartTime)
	assert.Equal(t, 105, res.Entries[2].Duration)
	assert.Equal(t, "Review", res.Entries[3].Item.Name)
}

func TestSynthesize_OverlapLeavesNoGap(t *testing.T) {
	acts := []models.Activity{activity("Long", "09:00", 120), activity("Short", "09:30", 30)}
	res := Synthesize(acts, []models.Task{task("x", 2, 30), task("y", 2, 30)})

	require.Len(t, res.Entries, 3)
	assert.Equal(t, "x", res.Entries[0].Item.Name)
	assert.Equal(t, clock.Minutes(480), res.Entries[0].StartTime)
	assert.Equal(t, 1, res.Backlog.Len())
}

func TestSynthesize_DoesNotMutateInputs(t *testing.T) {
	acts := []models.Activity{activity("B", "11:00", 30), activity("A", "09:00", 30)}
	tasks := []models.Task{task("low", 1, 30), task("hi", 3, 30)}

	Synthesize(acts, tasks)

	assert.Equal(t, "B", acts[0].Name)
	assert.Equal(t, "low", tasks[0].Name)
}

// genActivities produces activities in shuffled order. About half of the
// draws lay them end to end with gaps; the rest place them at random, so
// overlapping and enclosed activities occur.
func genActivities() *rapid.Generator[[]models.Activity] {
	return rapid.Custom(func(t *rapid.T) []models.Activity {
		if rapid.Bool().Draw(t, "overlapping") {
			return genOverlapping().Draw(t, "acts")
		}
		return genDisjoint().Draw(t, "acts")
	})
}

func genDisjoint() *rapid.Generator[[]models.Activity] {
	return rapid.Custom(func(t *rapid.T) []models.Activity {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		cursor := rapid.IntRange(0, 600).Draw(t, "first")
		out := make([]models.Activity, 0, n)
		for i := range n {
			dur := rapid.IntRange(5, 120).Draw(t, fmt.Sprintf("dur%d", i))
			if cursor+dur > int(clock.DayEnd) {
				break
			}
			out = append(out, models.Activity{
				ID:        models.ID(fmt.Sprintf("a%d", i)),
				Name:      fmt.Sprintf("act-%d", i),
				StartTime: clock.Minutes(cursor),
				Duration:  dur,
			})
			cursor += dur + rapid.IntRange(0, 180).Draw(t, fmt.Sprintf("gap%d", i))
		}
		return rapid.Permutation(out).Draw(t, "order")
	})
}

func genOverlapping() *rapid.Generator[[]models.Activity] {
	return rapid.Custom(func(t *rapid.T) []models.Activity {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		out := make([]models.Activity, n)
		for i := range out {
			out[i] = models.Activity{
				ID:        models.ID(fmt.Sprintf("a%d", i)),
				Name:      fmt.Sprintf("act-%d", i),
				StartTime: clock.Minutes(rapid.IntRange(0, 1380).Draw(t, fmt.Sprintf("start%d", i))),
				Duration:  rapid.IntRange(5, 300).Draw(t, fmt.Sprintf("dur%d", i)),
			}
		}
		return out
	})
}

func disjoint(acts []models.Activity) bool {
	sorted := slices.Clone(acts)
	slices.SortFunc(sorted, func(a, b models.Activity) int { return int(a.StartTime) - int(b.StartTime) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].End() > sorted[i].StartTime {
			return false
		}
	}
	return true
}

func genTasks() *rapid.Generator[[]models.Task] {
	return rapid.Custom(func(t *rapid.T) []models.Task {
		n := rapid.IntRange(0, 10).Draw(t, "tasks")
		out := make([]models.Task, n)
		for i := range out {
			out[i] = models.Task{
				ID:            models.ID(fmt.Sprintf("t%d", i)),
				Name:          fmt.Sprintf("task-%d", i),
				Priority:      models.Priority(rapid.IntRange(1, 3).Draw(t, fmt.Sprintf("prio%d", i))),
				EstimatedTime: rapid.IntRange(0, 240).Draw(t, fmt.Sprintf("est%d", i)),
				Completed:     rapid.Bool().Draw(t, fmt.Sprintf("done%d", i)),
			}
		}
		return out
	})
}

func TestSynthesizeProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		acts := genActivities().Draw(t, "activities")
		tasks := genTasks().Draw(t, "tasks")

		res := Synthesize(acts, tasks)

		// Activity entries appear in start order and each activity exactly once.
		var prev clock.Minutes = -1
		seen := 0
		for _, e := range res.Entries {
			if e.Kind != models.KindActivity {
				continue
			}
			if e.StartTime < prev {
				t.Fatalf("activity %s at %s before %s", e.Item.Name, e.StartTime, prev)
			}
			prev = e.StartTime
			seen++
		}
		if seen != len(acts) {
			t.Fatalf("activities emitted = %d, want %d", seen, len(acts))
		}

		// With disjoint activities, consecutive entries never overlap.
		if disjoint(acts) {
			for i := 1; i < len(res.Entries); i++ {
				if res.Entries[i-1].End() > res.Entries[i].StartTime {
					t.Fatalf("entry %d ends %s after entry %d starts %s", i-1, res.Entries[i-1].End(), i, res.Entries[i].StartTime)
				}
			}
		}

		// A task starts where the previous activity ended (or at the anchor)
		// and ends by the start of the activity that follows it.
		for i, e := range res.Entries {
			if e.Kind != models.KindTask {
				continue
			}
			want := clock.WorkdayAnchor
			if i > 0 {
				want = max(want, res.Entries[i-1].End())
			}
			if e.StartTime != want {
				t.Fatalf("task at %s, want %s", e.StartTime, want)
			}
			next := res.Entries[i+1]
			if next.Kind != models.KindActivity || e.End() > next.StartTime {
				t.Fatalf("task %s-%s runs into %s", e.StartTime, e.End(), next.StartTime)
			}
		}

		// Placed tasks plus backlog account for every pending task.
		pending := 0
		for _, tk := range tasks {
			if !tk.Completed {
				pending++
			}
		}
		placed := len(res.Entries) - seen
		if placed+res.Backlog.Len() != pending {
			t.Fatalf("placed %d + backlog %d != pending %d", placed, res.Backlog.Len(), pending)
		}

		// No task is placed before the anchor.
		for _, e := range res.Entries {
			if e.Kind == models.KindTask && e.StartTime < clock.WorkdayAnchor {
				t.Fatalf("task at %s before anchor", e.StartTime)
			}
		}

		// Idempotent over the same snapshot.
		again := Synthesize(acts, tasks)
		if fmt.Sprint(again.Entries) != fmt.Sprint(res.Entries) {
			t.Fatalf("second run differs")
		}
	})
}

func TestPlanWeek(t *testing.T) {
	from := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)
	acts := []models.Activity{activity("Standup", "09:00", 15)}
	onMonday := task("undated", 2, 30)
	tue := task("tuesday", 3, 60)
	tue.ScheduledDate = "2025-06-03"
	outside := task("later", 3, 60)
	outside.ScheduledDate = "2025-07-01"

	plans := PlanWeek(acts, []models.Task{onMonday, tue, outside}, from, 7)

	require.Len(t, plans, 7)
	assert.Equal(t, "2025-06-02", plans[0].Day)
	require.Len(t, plans[0].Entries, 2)
	assert.Equal(t, "undated", plans[0].Entries[0].Item.Name)
	require.Len(t, plans[1].Entries, 2)
	assert.Equal(t, "tuesday", plans[1].Entries[0].Item.Name)
	assert.Equal(t, 60, plans[1].Entries[0].Duration)
	for _, p := range plans[2:] {
		assert.Len(t, p.Entries, 1)
		assert.Empty(t, p.Unscheduled)
	}
}

func TestUpcoming(t *testing.T) {
	today := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	mk := func(name, date string, done bool) models.Task {
		return models.Task{Name: name, ScheduledDate: date, Completed: done}
	}
	tasks := []models.Task{
		mk("c", "2025-06-09", false),
		mk("a", "2025-06-02", false),
		mk("past", "2025-06-01", false),
		mk("done", "2025-06-03", true),
		mk("b", "2025-06-04", false),
		mk("bad", "June 4", false),
		mk("far", "2025-06-10", false),
	}

	got := Upcoming(tasks, today, 7)

	var names []string
	for _, tk := range got {
		names = append(names, tk.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

package schedule

import (
	"slices"
	"strings"
	"time"

	"github.com/starford/planner/internal/models"
)

// DateLayout is the calendar date format used by Task.ScheduledDate.
const DateLayout = time.DateOnly

// DayPlan is the synthesized schedule of one calendar day.
type DayPlan struct {
	Date        time.Time              `json:"-"`
	Day         string                 `json:"date"`
	Entries     []models.ScheduleEntry `json:"entries"`
	Unscheduled []models.Task          `json:"unscheduled"`
}

// PlanWeek runs Synthesize for each of days consecutive dates starting at
// from. A day receives the pending tasks scheduled on it; tasks without a
// date are offered on the first day. Tasks dated outside the window are
// ignored.
func PlanWeek(activities []models.Activity, tasks []models.Task, from time.Time, days int) []DayPlan {
	if days <= 0 {
		return []DayPlan{}
	}
	byDay := make(map[string][]models.Task, days)
	first := from.Format(DateLayout)
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		day := strings.TrimSpace(t.ScheduledDate)
		if day == "" {
			day = first
		}
		byDay[day] = append(byDay[day], t)
	}

	plans := make([]DayPlan, 0, days)
	for i := range days {
		date := from.AddDate(0, 0, i)
		key := date.Format(DateLayout)
		res := Synthesize(activities, byDay[key])
		plans = append(plans, DayPlan{
			Date:        date,
			Day:         key,
			Entries:     res.Entries,
			Unscheduled: res.Backlog.Tasks(),
		})
	}
	return plans
}

// Upcoming returns pending tasks dated within [today, today+days], ordered
// by date. Undated or unparseable dates are skipped.
func Upcoming(tasks []models.Task, today time.Time, days int) []models.Task {
	start := truncateDay(today)
	end := start.AddDate(0, 0, days)
	out := []models.Task{}
	for _, t := range tasks {
		if t.Completed || t.ScheduledDate == "" {
			continue
		}
		d, err := time.ParseInLocation(DateLayout, t.ScheduledDate, today.Location())
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b models.Task) int {
		return strings.Compare(a.ScheduledDate, b.ScheduledDate)
	})
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

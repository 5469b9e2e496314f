package main

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/planner/internal/backup"
	"github.com/starford/planner/internal/calendar"
	"github.com/starford/planner/internal/clock"
	"github.com/starford/planner/internal/models"
)

func TestRenderDay(t *testing.T) {
	entries := []models.ScheduleEntry{
		models.TaskEntry(models.Task{ID: "t1", Name: "Review PR"}, clock.WorkdayAnchor, 45),
		models.ActivityEntry(models.Activity{ID: "a1", Name: "Standup", StartTime: clock.MustParse("09:00"), Duration: 30}),
	}
	out := renderDay("2025-03-14", entries, []models.Task{{Name: "Plan sprint"}})
	for _, want := range []string{"2025-03-14", "08:00-08:45", "Review PR", "09:00-09:30", "Standup", "Plan sprint"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDayEmpty(t *testing.T) {
	out := renderDay("2025-03-14", nil, nil)
	if !strings.Contains(out, "add daily activities") {
		t.Errorf("output = %q", out)
	}
}

func TestRenderInsights(t *testing.T) {
	out := renderInsights([]models.Insight{{Title: "Task time overload", Description: "Too much", Priority: "high"}})
	if !strings.Contains(out, "[high] Task time overload") || !strings.Contains(out, "Too much") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(renderInsights(nil), "no findings") {
		t.Error("empty insights should say so")
	}
}

func TestRenderReport(t *testing.T) {
	out := renderReport(backup.Report{Replaced: []string{"goals", "tasks"}, Skipped: []string{"schedule"}})
	if !strings.Contains(out, "replaced: goals, tasks") || !strings.Contains(out, "skipped: schedule") {
		t.Errorf("output = %q", out)
	}
	out = renderReport(backup.Report{Replaced: []string{"tasks"}, Repaired: []string{"tasks"}})
	if !strings.Contains(out, "repaired: tasks") {
		t.Errorf("output = %q", out)
	}
	if renderReport(backup.Report{}) != "replaced: none" {
		t.Error("empty report")
	}
}

func TestRenderCalendar(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	doc := &calendar.Document{
		Name: "My Planner",
		TZID: "Asia/Shanghai",
		Events: []calendar.Event{{
			Summary: "Standup",
			Start:   time.Date(2025, 3, 14, 9, 0, 0, 0, loc),
			End:     time.Date(2025, 3, 14, 9, 30, 0, 0, loc),
		}},
	}
	out := renderCalendar(doc)
	if !strings.Contains(out, "2025-03-14 09:00-09:30") || !strings.Contains(out, "Standup") {
		t.Errorf("output = %q", out)
	}
}

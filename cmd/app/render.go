package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/planner/internal/backup"
	"github.com/starford/planner/internal/calendar"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/schedule"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	taskStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
)

func renderDay(date string, entries []models.ScheduleEntry, unscheduled []models.Task) string {
	var b strings.Builder
	if len(entries) == 0 {
		b.WriteString(mutedStyle.Render("no entries: add daily activities first"))
	}
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		span := timeStyle.Render(fmt.Sprintf("%s-%s", e.StartTime, e.End()))
		style := activityStyle
		if e.Kind == models.KindTask {
			style = taskStyle
		}
		b.WriteString(span + "  " + style.Render(e.Item.Name))
	}
	if len(unscheduled) > 0 {
		names := make([]string, len(unscheduled))
		for i, t := range unscheduled {
			names[i] = t.Name
		}
		b.WriteString("\n\n" + mutedStyle.Render("not scheduled: "+strings.Join(names, ", ")))
	}
	return titleStyle.Render(date) + "\n" + panelStyle.Render(b.String())
}

func renderWeek(days []schedule.DayPlan) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = renderDay(d.Day, d.Entries, d.Unscheduled)
	}
	return strings.Join(parts, "\n")
}

func renderInsights(in []models.Insight) string {
	if len(in) == 0 {
		return mutedStyle.Render("no findings")
	}
	lines := make([]string, len(in))
	for i, x := range in {
		style := severityLow
		switch x.Priority {
		case "high":
			style = severityHigh
		case "medium":
			style = severityMedium
		}
		lines[i] = style.Render(fmt.Sprintf("[%s] %s", x.Priority, x.Title)) + "\n  " + x.Description
	}
	return titleStyle.Render("Insights") + "\n" + strings.Join(lines, "\n")
}

func renderReport(rep backup.Report) string {
	out := "replaced: " + strings.Join(rep.Replaced, ", ")
	if len(rep.Replaced) == 0 {
		out = "replaced: none"
	}
	if len(rep.Repaired) > 0 {
		out += "\n" + severityMedium.Render("repaired: "+strings.Join(rep.Repaired, ", "))
	}
	if len(rep.Skipped) > 0 {
		out += "\n" + severityMedium.Render("skipped: "+strings.Join(rep.Skipped, ", "))
	}
	return out
}

func renderCalendar(doc *calendar.Document) string {
	var b strings.Builder
	for i, e := range doc.Events {
		if i > 0 {
			b.WriteByte('\n')
		}
		span := timeStyle.Render(e.Start.Format("2006-01-02 15:04") + "-" + e.End.Format("15:04"))
		b.WriteString(span + "  " + e.Summary)
	}
	if len(doc.Events) == 0 {
		b.WriteString(mutedStyle.Render("no events"))
	}
	title := doc.Name
	if title == "" {
		title = "Calendar"
	}
	return titleStyle.Render(title+" ("+doc.TZID+")") + "\n" + panelStyle.Render(b.String())
}

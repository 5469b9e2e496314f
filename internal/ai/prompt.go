package ai

import (
	"fmt"
	"strings"

	"github.com/starford/planner/internal/insight"
	"github.com/starford/planner/internal/models"
)

const insightShape = `{
  "type": "automation|efficiency|warning|success",
  "title": "title",
  "description": "details",
  "priority": "high|medium|low",
  "actionable": "a concrete next step"
}`

// InsightsPrompt asks for an analysis of the whole snapshot.
func InsightsPrompt(s insight.Snapshot) string {
	var b strings.Builder

	b.WriteString("As a productivity consultant, analyse the user's goals, tasks and daily routine and give in-depth insights.\n\n")

	b.WriteString("Goals:\n")
	for _, g := range s.Goals {
		fmt.Fprintf(&b, "- %s (%s, progress: %d%%)\n", g.Name, g.Type, g.Progress)
	}

	b.WriteString("\nDaily activities:\n")
	for _, a := range s.Activities {
		fmt.Fprintf(&b, "- %s at %s, %d minutes\n", a.Name, a.StartTime, a.Duration)
	}

	b.WriteString("\nOpen tasks:\n")
	for _, t := range s.Tasks {
		if t.Completed {
			continue
		}
		fmt.Fprintf(&b, "- %s (priority: %d, estimate: %d minutes)\n", t.Name, t.Priority, t.Estimate())
	}

	b.WriteString(`
Cover:
1. repetitive work that could be automated or streamlined
2. time management advice
3. whether the tasks support the goals
4. concrete actions to improve efficiency
5. likely time sinks

Reply with JSON only, in this shape:
{
  "insights": [
`)
	b.WriteString(indent(insightShape, "    "))
	b.WriteString("\n  ]\n}\n")
	return b.String()
}

// Counts summarises the state for the feedback prompt.
type Counts struct {
	Goals        int
	OpenTasks    int
	Activities   int
	CurrentCount int
}

// FeedbackPrompt relays free-text user feedback.
func FeedbackPrompt(c Counts, feedback string) string {
	var b strings.Builder

	b.WriteString("I use a productivity planner and want to give feedback on my situation.\n\n")
	b.WriteString("Current state:\n")
	fmt.Fprintf(&b, "- goals: %d\n", c.Goals)
	fmt.Fprintf(&b, "- open tasks: %d\n", c.OpenTasks)
	fmt.Fprintf(&b, "- daily activities: %d\n", c.Activities)
	fmt.Fprintf(&b, "- current insights: %d\n", c.CurrentCount)

	b.WriteString("\nFeedback:\n")
	b.WriteString(strings.TrimSpace(feedback))
	b.WriteString(`

Based on the feedback:
1. analyse the real needs and pain points
2. give targeted suggestions
3. produce updated insights if needed

Reply with JSON only, in this shape:
{
  "analysis": "analysis of the feedback",
  "suggestions": ["suggestion 1", "suggestion 2"],
  "updatedInsights": [
`)
	b.WriteString(indent(insightShape, "    "))
	b.WriteString("\n  ]\n}\n")
	return b.String()
}

// BreakdownPrompt asks for sub-goals of g.
func BreakdownPrompt(g models.Goal) string {
	var b strings.Builder

	b.WriteString("As a goal-setting expert, break the following goal into smaller, actionable sub-goals.\n\n")
	b.WriteString("Goal:\n")
	fmt.Fprintf(&b, "- name: %s\n", g.Name)
	fmt.Fprintf(&b, "- type: %s\n", g.Type)
	fmt.Fprintf(&b, "- category: %s\n", orNone(g.Category, "uncategorised"))
	fmt.Fprintf(&b, "- description: %s\n", orNone(g.Description, "none"))
	fmt.Fprintf(&b, "- deadline: %s\n", orNone(g.Deadline, "none"))

	fmt.Fprintf(&b, `
Break this %s goal down at a suitable granularity:
1. a long-term goal becomes 3-5 yearly goals
2. a yearly goal becomes 4-6 quarterly goals
3. a quarterly goal becomes 3-4 monthly goals
4. every sub-goal is specific, measurable, achievable, relevant and time-bound
5. sub-goals form a logical path to the main goal
6. give every sub-goal a realistic deadline

Reply with JSON only, in this shape:
{
  "analysis": "how the goal was decomposed",
  "subGoals": [
    {
      "name": "sub-goal name",
      "type": "yearly|quarterly|monthly|weekly",
      "category": "category",
      "description": "details",
      "deadline": "YYYY-MM-DD",
      "keyActions": ["action 1", "action 2"]
    }
  ]
}
`, g.Type)
	return b.String()
}

func orNone(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

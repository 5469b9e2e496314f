package insight

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/planner/internal/models"
)

func named(names ...string) []models.Task {
	out := make([]models.Task, len(names))
	for i, n := range names {
		out[i] = models.Task{Name: n, Priority: models.PriorityMedium}
	}
	return out
}

func TestDuplicateRule(t *testing.T) {
	got := Analyze(Snapshot{Tasks: named("Review", "review")})
	require.Len(t, got, 1)
	assert.Equal(t, models.InsightAutomation, got[0].Type)
	assert.Equal(t, "high", got[0].Priority)
	assert.Contains(t, got[0].Description, "Detected 1 duplicate")

	assert.Empty(t, Analyze(Snapshot{Tasks: named("a", "b", "c")}))
}

func TestDuplicateCountEveryRepeat(t *testing.T) {
	assert.Equal(t, 3, DuplicateCount(named("x", "X", "x", "y", "Y")))
	assert.Equal(t, 0, DuplicateCount(nil))
}

func TestOverloadRule(t *testing.T) {
	acts := []models.Activity{{Name: "a", Duration: 60}, {Name: "b", Duration: 60}}
	tasks := []models.Task{{Name: "t1", EstimatedTime: 500}, {Name: "t2", EstimatedTime: 400}}

	assert.Empty(t, Analyze(Snapshot{Activities: acts, Tasks: tasks}), "900 < 1320 must not fire")

	tasks = append(tasks, models.Task{Name: "t3", EstimatedTime: 500, Completed: true})
	got := Analyze(Snapshot{Activities: acts, Tasks: tasks})
	require.Len(t, got, 1)
	assert.Equal(t, models.InsightWarning, got[0].Type)
	assert.Contains(t, got[0].Description, "23 hours")
	assert.Contains(t, got[0].Description, "22 hours")
}

func TestWorkload(t *testing.T) {
	total, avail := Workload(Snapshot{
		Activities: []models.Activity{{Duration: 120}},
		Tasks:      []models.Task{{EstimatedTime: 900}, {EstimatedTime: 0}},
	})
	assert.Equal(t, 900, total)
	assert.Equal(t, 1320, avail)
}

func TestMeetingDensityRule(t *testing.T) {
	meetings := func(n int) []models.Task {
		out := make([]models.Task, n)
		for i := range out {
			out[i] = models.Task{Name: string(rune('a' + i)), Category: MeetingCategory}
		}
		return out
	}
	assert.Empty(t, Analyze(Snapshot{Tasks: meetings(3)}))

	got := Analyze(Snapshot{Tasks: meetings(4)})
	require.Len(t, got, 1)
	assert.Equal(t, models.InsightEfficiency, got[0].Type)
	assert.Equal(t, "medium", got[0].Priority)
}

func TestRuleOrder(t *testing.T) {
	tasks := []models.Task{
		{Name: "Sync", Category: MeetingCategory, EstimatedTime: 400},
		{Name: "sync", Category: MeetingCategory, EstimatedTime: 400},
		{Name: "Plan", Category: MeetingCategory, EstimatedTime: 400},
		{Name: "Retro", Category: MeetingCategory, EstimatedTime: 400},
	}
	got := Analyze(Snapshot{Tasks: tasks})
	require.Len(t, got, 3)
	assert.Equal(t, models.InsightAutomation, got[0].Type)
	assert.Equal(t, models.InsightWarning, got[1].Type)
	assert.Equal(t, models.InsightEfficiency, got[2].Type)
}

func TestAnalyzerAppendRule(t *testing.T) {
	a := Analyzer{Rules: append(DefaultRules[:len(DefaultRules):len(DefaultRules)], Rule{
		Name: "all-done",
		Check: func(s Snapshot) (models.Insight, bool) {
			for _, t := range s.Tasks {
				if !t.Completed {
					return models.Insight{}, false
				}
			}
			return models.Insight{Type: models.InsightSuccess, Title: "Clear", Priority: "low"}, len(s.Tasks) > 0
		},
	})}
	got := a.Analyze(Snapshot{Tasks: []models.Task{{Name: "x", Completed: true}}})
	require.Len(t, got, 1)
	assert.Equal(t, models.InsightSuccess, got[0].Type)
	assert.Len(t, DefaultRules, 3)
}

func TestResolveFallsBackToRules(t *testing.T) {
	snap := Snapshot{Tasks: named("Review", "review")}
	boom := errors.New("upstream down")

	out := Resolve(Failed(boom), snap)
	assert.Equal(t, SourceRules, out.Source)
	assert.ErrorIs(t, out.Err, boom)
	require.Len(t, out.Insights, 1)

	gen := Generated([]models.Insight{{Type: models.InsightSuccess, Title: "ok"}})
	out = Resolve(gen, snap)
	assert.Equal(t, SourceGenerated, out.Source)
	assert.NoError(t, out.Err)
	assert.Equal(t, "ok", out.Insights[0].Title)
}

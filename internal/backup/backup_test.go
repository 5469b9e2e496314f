package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/clock"
	"github.com/starford/planner/internal/models"
)

var exportedAt = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

func sampleState() State {
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	task := models.Task{ID: "t1", Name: "Write report", GoalID: "g1", Priority: 3, EstimatedTime: 90, CreatedAt: created, Guidance: "one page"}
	act := models.Activity{ID: "a1", Name: "Standup", StartTime: 540, Duration: 15}
	return State{
		Goals:      []models.Goal{{ID: "g1", Name: "Ship v1", Type: models.GoalQuarterly, Progress: 40, CreatedAt: created}},
		Activities: []models.Activity{act},
		Tasks:      []models.Task{task},
		Schedule:   []models.ScheduleEntry{models.TaskEntry(task, 480, 45), models.ActivityEntry(act)},
		Insights:   []models.Insight{{Type: models.InsightWarning, Title: "t", Description: "d", Priority: "high"}},
	}
}

func TestExportShape(t *testing.T) {
	out, err := Export(sampleState(), exportedAt)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &raw))
	for _, k := range []string{KeyGoals, KeyActivities, KeyTasks, KeySchedule, KeyInsights, KeyExportDate} {
		assert.Contains(t, raw, k)
	}
	assert.Equal(t, `"2025-06-01T12:30:00Z"`, string(raw[KeyExportDate]))
	assert.Contains(t, string(out), "\n  \"goals\": [")
	assert.Contains(t, string(raw[KeyActivities]), `"startTime": "09:00"`)
}

func TestExportEmptyStateUsesArrays(t *testing.T) {
	out, err := Export(State{}, exportedAt)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"goals": []`)
	assert.NotContains(t, string(out), "null")
}

func TestRoundTrip(t *testing.T) {
	in := sampleState()
	out, err := Export(in, exportedAt)
	require.NoError(t, err)

	var got State
	rep, err := Import(out, &got)
	require.NoError(t, err)
	assert.Len(t, rep.Replaced, 5)
	assert.Empty(t, rep.Skipped)
	assert.Equal(t, in, got)
}

func TestImportMergesByPresence(t *testing.T) {
	s := sampleState()
	doc := `{"tasks": [{"id": 17, "name": "New", "priority": 1}], "exportDate": "whenever"}`

	rep, err := Import([]byte(doc), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyTasks}, rep.Replaced)

	require.Len(t, s.Tasks, 1)
	assert.Equal(t, models.ID("17"), s.Tasks[0].ID)
	assert.Equal(t, "New", s.Tasks[0].Name)
	assert.Len(t, s.Goals, 1, "absent goals must be untouched")
	assert.Len(t, s.Schedule, 2)
}

func TestImportEmptyArrayReplaces(t *testing.T) {
	s := sampleState()
	_, err := Import([]byte(`{"insights": []}`), &s)
	require.NoError(t, err)
	assert.NotNil(t, s.Insights)
	assert.Empty(t, s.Insights)
}

func TestImportSkipsWrongShape(t *testing.T) {
	s := sampleState()
	rep, err := Import([]byte(`{"goals": "oops", "dailyActivities": null, "insights": [{"type":"success","title":"x","description":"","priority":"low","extra":1}]}`), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyGoals}, rep.Skipped)
	assert.Equal(t, []string{KeyInsights}, rep.Replaced)
	assert.Len(t, s.Goals, 1)
	assert.Len(t, s.Activities, 1)
	assert.Equal(t, "x", s.Insights[0].Title)
}

func TestImportKeepsCollectionWithMalformedRecord(t *testing.T) {
	s := sampleState()
	doc := `{"tasks": [{"id":"a","name":"ok","priority":3}, {"id":"b","name":"bad","priority":"high"}, 7]}`

	rep, err := Import([]byte(doc), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyTasks}, rep.Replaced)
	assert.Empty(t, rep.Skipped)
	assert.Equal(t, []string{KeyTasks}, rep.Repaired)

	require.Len(t, s.Tasks, 2)
	assert.Equal(t, models.Priority(3), s.Tasks[0].Priority)
	assert.Equal(t, models.ID("b"), s.Tasks[1].ID)
	assert.Equal(t, "bad", s.Tasks[1].Name)
	assert.Equal(t, models.Priority(0), s.Tasks[1].Priority)
}

func TestImportBadClockFieldKeepsActivity(t *testing.T) {
	s := State{}
	rep, err := Import([]byte(`{"dailyActivities": [{"id":"a1","name":"Gym","startTime":"25:99","duration":30}]}`), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyActivities}, rep.Replaced)
	require.Len(t, s.Activities, 1)
	assert.Equal(t, "Gym", s.Activities[0].Name)
	assert.Equal(t, 30, s.Activities[0].Duration)
	assert.Equal(t, clock.Minutes(0), s.Activities[0].StartTime)
}

func TestOutOfWindowStartSurvivesReimport(t *testing.T) {
	var s State
	_, err := Import([]byte(`{"dailyActivities": [{"id":"a1","name":"Late","startTime":1500,"duration":20}]}`), &s)
	require.NoError(t, err)

	out, err := Export(s, exportedAt)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"startTime": 1500`)

	var again State
	rep, err := Import(out, &again)
	require.NoError(t, err)
	assert.Empty(t, rep.Skipped)
	assert.Empty(t, rep.Repaired)
	require.Len(t, again.Activities, 1)
	assert.Equal(t, clock.Minutes(1500), again.Activities[0].StartTime)
}

func TestImportTopLevelFailure(t *testing.T) {
	for _, doc := range []string{`not json`, `[1,2]`, `null`, `{"goals": [`} {
		s := sampleState()
		_, err := Import([]byte(doc), &s)
		require.Error(t, err, doc)
		assert.True(t, errors.Is(err, apperr.ErrValidation), "doc %q: %v", doc, err)
		assert.Equal(t, sampleState(), s)
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "goal-planner-backup-2025-06-01.json", Filename(exportedAt))
}

func genState() *rapid.Generator[State] {
	str := rapid.StringMatching(`[A-Za-z ,;"\\]{0,12}`)
	ts := rapid.Custom(func(t *rapid.T) time.Time {
		return time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "unix"), 0).UTC()
	})
	return rapid.Custom(func(t *rapid.T) State {
		s := State{
			Goals:      []models.Goal{},
			Activities: []models.Activity{},
			Tasks:      []models.Task{},
			Schedule:   []models.ScheduleEntry{},
			Insights:   []models.Insight{},
		}
		for i := range rapid.IntRange(0, 3).Draw(t, "goals") {
			s.Goals = append(s.Goals, models.Goal{
				ID:           models.ID(fmt.Sprintf("g%d", i)),
				Name:         str.Draw(t, "gname"),
				Type:         rapid.SampledFrom(models.GoalTypes).Draw(t, "gtype"),
				Progress:     rapid.IntRange(0, 100).Draw(t, "progress"),
				CreatedAt:    ts.Draw(t, "gcreated"),
				ParentGoalID: models.ID(rapid.SampledFrom([]string{"", "g0", "gone"}).Draw(t, "parent")),
			})
		}
		for i := range rapid.IntRange(0, 3).Draw(t, "acts") {
			a := models.Activity{
				ID:        models.ID(fmt.Sprintf("a%d", i)),
				Name:      str.Draw(t, "aname"),
				StartTime: clock.Minutes(rapid.IntRange(-60, 1600).Draw(t, "start")),
				Duration:  rapid.IntRange(1, 240).Draw(t, "dur"),
			}
			s.Activities = append(s.Activities, a)
			s.Schedule = append(s.Schedule, models.ActivityEntry(a))
		}
		for i := range rapid.IntRange(0, 3).Draw(t, "tasks") {
			tk := models.Task{
				ID:            models.ID(fmt.Sprintf("t%d", i)),
				Name:          str.Draw(t, "tname"),
				Priority:      models.Priority(rapid.IntRange(1, 3).Draw(t, "prio")),
				EstimatedTime: rapid.IntRange(0, 300).Draw(t, "est"),
				Completed:     rapid.Bool().Draw(t, "done"),
				CreatedAt:     ts.Draw(t, "tcreated"),
				Preparation:   str.Draw(t, "prep"),
			}
			s.Tasks = append(s.Tasks, tk)
			s.Schedule = append(s.Schedule, models.TaskEntry(tk, 480, rapid.IntRange(30, 90).Draw(t, "placed")))
		}
		for range rapid.IntRange(0, 2).Draw(t, "insights") {
			s.Insights = append(s.Insights, models.Insight{
				Type:        rapid.SampledFrom([]models.InsightType{models.InsightAutomation, models.InsightWarning}).Draw(t, "itype"),
				Title:       str.Draw(t, "ititle"),
				Description: str.Draw(t, "idesc"),
				Priority:    rapid.SampledFrom([]string{"high", "medium", "low"}).Draw(t, "iprio"),
				Actionable:  str.Draw(t, "iact"),
			})
		}
		return s
	})
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := genState().Draw(t, "state")
		out, err := Export(in, exportedAt)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		var got State
		if _, err := Import(out, &got); err != nil {
			t.Fatalf("import: %v", err)
		}
		if len(got.Activities) != len(in.Activities) {
			t.Fatalf("activities: got %d, want %d", len(got.Activities), len(in.Activities))
		}
		again, _ := Export(got, exportedAt)
		if string(again) != string(out) {
			t.Fatalf("round trip differs:\n%s\n%s", out, again)
		}
		if len(got.Goals) != len(in.Goals) || len(got.Tasks) != len(in.Tasks) || len(got.Schedule) != len(in.Schedule) {
			t.Fatalf("collection sizes differ")
		}
		for i := range in.Tasks {
			if !in.Tasks[i].CreatedAt.Equal(got.Tasks[i].CreatedAt) || in.Tasks[i] != got.Tasks[i] {
				t.Fatalf("task %d differs: %+v vs %+v", i, in.Tasks[i], got.Tasks[i])
			}
		}
	})
}

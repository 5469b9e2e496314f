// Package backup serializes the planning state to a JSON document and
// merges such documents back into memory.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/models"
)

// Collection keys of the backup document.
const (
	KeyGoals      = "goals"
	KeyActivities = "dailyActivities"
	KeyTasks      = "tasks"
	KeySchedule   = "schedule"
	KeyInsights   = "insights"
	KeyExportDate = "exportDate"
)

// State is the full planning snapshot.
type State struct {
	Goals      []models.Goal          `json:"goals"`
	Activities []models.Activity      `json:"dailyActivities"`
	Tasks      []models.Task          `json:"tasks"`
	Schedule   []models.ScheduleEntry `json:"schedule"`
	Insights   []models.Insight       `json:"insights"`
}

type document struct {
	State
	ExportDate string `json:"exportDate"`
}

// Report describes what an import changed.
type Report struct {
	Replaced []string `json:"replaced"`
	// Skipped lists present keys whose value was not an array.
	Skipped []string `json:"skipped"`
	// Repaired lists replaced keys where some record fields could not be
	// decoded and were left at their zero values, or where non-object
	// elements were dropped.
	Repaired []string `json:"repaired,omitempty"`
}

// Export renders s as an indented document stamped with now.
func Export(s State, now time.Time) ([]byte, error) {
	doc := document{State: s.normalized(), ExportDate: now.UTC().Format(time.RFC3339Nano)}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: encode: %w", err)
	}
	return out, nil
}

// Import merges a document into s. Each collection present in the document
// replaces the one in s; absent collections are left alone. Records are not
// validated, and a record with badly typed fields keeps the fields that
// decode. Only a document that is not a JSON object fails, and then s is
// unchanged.
func Import(data []byte, s *State) (Report, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Report{}, apperr.InvalidDocument(err)
	}
	if raw == nil {
		return Report{}, apperr.InvalidDocument(fmt.Errorf("top level is null"))
	}

	rep := Report{Replaced: []string{}, Skipped: []string{}}
	merge(raw, KeyGoals, &s.Goals, &rep)
	merge(raw, KeyActivities, &s.Activities, &rep)
	merge(raw, KeyTasks, &s.Tasks, &rep)
	merge(raw, KeySchedule, &s.Schedule, &rep)
	merge(raw, KeyInsights, &s.Insights, &rep)
	return rep, nil
}

func merge[T any](raw map[string]json.RawMessage, key string, dst *[]T, rep *Report) {
	msg, ok := raw[key]
	if !ok {
		return
	}
	// A null collection counts as absent.
	if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(msg, &elems); err != nil {
		rep.Skipped = append(rep.Skipped, key)
		return
	}
	v := make([]T, 0, len(elems))
	repaired := false
	for _, el := range elems {
		rec, exact, ok := decodeRecord[T](el)
		if !ok {
			repaired = true
			continue
		}
		repaired = repaired || !exact
		v = append(v, rec)
	}
	*dst = v
	rep.Replaced = append(rep.Replaced, key)
	if repaired {
		rep.Repaired = append(rep.Repaired, key)
	}
}

// decodeRecord decodes one collection element. A field whose value does not
// fit its type is dropped and the rest of the record is kept, so exact is
// false. ok is false only when the element is not a JSON object.
func decodeRecord[T any](el json.RawMessage) (rec T, exact, ok bool) {
	if err := json.Unmarshal(el, &rec); err == nil {
		return rec, true, true
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(el, &fields); err != nil || fields == nil {
		var zero T
		return zero, false, false
	}
	kept := make(map[string]json.RawMessage, len(fields))
	for name, value := range fields {
		single, err := json.Marshal(map[string]json.RawMessage{name: value})
		if err != nil {
			continue
		}
		var trial T
		if json.Unmarshal(single, &trial) == nil {
			kept[name] = value
		}
	}
	var out T
	if data, err := json.Marshal(kept); err == nil {
		_ = json.Unmarshal(data, &out)
	}
	return out, false, true
}

// Filename returns the conventional backup file name.
func Filename(now time.Time) string {
	return "goal-planner-backup-" + now.Format(time.DateOnly) + ".json"
}

func (s State) normalized() State {
	return State{
		Goals:      nonNil(s.Goals),
		Activities: nonNil(s.Activities),
		Tasks:      nonNil(s.Tasks),
		Schedule:   nonNil(s.Schedule),
		Insights:   nonNil(s.Insights),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Package storage persists the planner's collections as JSON blobs keyed by
// collection name.
package storage

import (
	"fmt"
	"regexp"
	"time"
)

// Collection keys.
const (
	KeyGoals      = "goals"
	KeyActivities = "dailyActivities"
	KeyTasks      = "tasks"
	KeySettings   = "apiSettings"
	KeySchedule   = "schedule"
	KeyInsights   = "insights"
)

// Keys lists every key the planner reads at startup.
var Keys = []string{KeyGoals, KeyActivities, KeyTasks, KeySettings, KeySchedule, KeyInsights}

// Entry describes one stored key.
type Entry struct {
	Key       string    `json:"key"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a load/save key-value store. Load returns an error wrapping
// apperr.ErrNotFound for a key that was never saved.
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
	List() ([]Entry, error)
	Close() error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

func checkKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}

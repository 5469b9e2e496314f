// Package planservice owns the planner's in-memory state and persists every
// change through a storage.Store.
package planservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/planner/internal/ai"
	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/calendar"
	"github.com/starford/planner/internal/checksum"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/sse"
	"github.com/starford/planner/internal/storage"
)

// Change sources reported with state.changed events.
const (
	SourceAPI  = "api"
	SourceDisk = "disk"
)

// Notifier receives change notifications. *sse.Broker implements it.
type Notifier interface {
	PublishStateChange(key, source string)
	Publish(ev sse.Event)
}

type nopNotifier struct{}

func (nopNotifier) PublishStateChange(string, string) {}
func (nopNotifier) Publish(sse.Event)                 {}

// GeneratorFunc builds a text generator from the stored settings.
type GeneratorFunc func(models.Settings) (ai.Generator, error)

// Option configures a Service.
type Option func(*Service)

// WithNotifier routes change events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notify = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCalendar sets the calendar export options.
func WithCalendar(o calendar.Options) Option {
	return func(s *Service) { s.calendar = o }
}

// WithDefaultSettings seeds apiSettings when nothing has been stored yet.
func WithDefaultSettings(st models.Settings) Option {
	return func(s *Service) {
		s.defaults = st
		s.settings = st
	}
}

// WithGenerator overrides how text generators are built.
func WithGenerator(fn GeneratorFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.generator = fn
		}
	}
}

// HTTPGenerator returns a GeneratorFunc that talks to the configured
// provider with the given request timeout.
func HTTPGenerator(timeout time.Duration) GeneratorFunc {
	client := &http.Client{Timeout: timeout}
	return func(st models.Settings) (ai.Generator, error) {
		return ai.NewGenerator(st, client)
	}
}

// Service holds the canonical planner state.
type Service struct {
	store     storage.Store
	notify    Notifier
	logger    *slog.Logger
	now       func() time.Time
	calendar  calendar.Options
	generator GeneratorFunc
	defaults  models.Settings

	mu          sync.RWMutex
	goals       []models.Goal
	activities  []models.Activity
	tasks       []models.Task
	schedule    []models.ScheduleEntry
	unscheduled []models.Task
	insights    []models.Insight
	settings    models.Settings
	revisions   map[string]string
}

// Open loads every collection from store.
func Open(store storage.Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:     store,
		notify:    nopNotifier{},
		logger:    slog.Default(),
		now:       time.Now,
		calendar:  calendar.DefaultOptions(),
		generator: HTTPGenerator(60 * time.Second),
		defaults:  models.DefaultSettings(),
		settings:  models.DefaultSettings(),
		revisions: make(map[string]string, len(storage.Keys)),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, key := range storage.Keys {
		if _, err := s.loadKey(key); err != nil {
			return nil, err
		}
	}
	s.normalize()
	return s, nil
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Revision returns the checksum of key's last persisted form, or "" if the
// key was never saved.
func (s *Service) Revision(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revisions[key]
}

// Reload re-reads key from the store after an external edit. It reports
// whether the in-memory state changed; saves made by the service itself are
// recognised by their checksum and ignored.
func (s *Service) Reload(_ context.Context, key string) (bool, error) {
	if !slices.Contains(storage.Keys, key) {
		return false, nil
	}
	s.mu.Lock()
	changed, err := s.loadKey(key)
	if changed {
		s.normalize()
	}
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.Info("state reloaded", slog.String("key", key))
		s.notify.PublishStateChange(key, SourceDisk)
	}
	return changed, nil
}

// loadKey decodes key into its field. A missing key resets the field.
// Caller must hold s.mu when the service is shared.
func (s *Service) loadKey(key string) (bool, error) {
	data, err := s.store.Load(key)
	if errors.Is(err, apperr.ErrNotFound) {
		if s.revisions[key] == "" {
			return false, nil
		}
		delete(s.revisions, key)
		s.reset(key)
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("planservice: load %s: %w", key, err)
	}
	rev := checksum.Sum(data)
	if rev == s.revisions[key] {
		return false, nil
	}
	if err := s.decode(key, data); err != nil {
		return false, fmt.Errorf("planservice: decode %s: %w", key, apperr.InvalidDocument(err))
	}
	s.revisions[key] = rev
	return true, nil
}

func (s *Service) decode(key string, data []byte) error {
	switch key {
	case storage.KeyGoals:
		return decodeInto(data, &s.goals)
	case storage.KeyActivities:
		return decodeInto(data, &s.activities)
	case storage.KeyTasks:
		return decodeInto(data, &s.tasks)
	case storage.KeySchedule:
		return decodeInto(data, &s.schedule)
	case storage.KeyInsights:
		return decodeInto(data, &s.insights)
	case storage.KeySettings:
		st := s.defaults
		if err := json.Unmarshal(data, &st); err != nil {
			return err
		}
		s.settings = st
		return nil
	}
	return fmt.Errorf("unknown key %q", key)
}

// decodeInto replaces *dst only when data decodes cleanly.
func decodeInto[T any](data []byte, dst *[]T) error {
	var v []T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

func (s *Service) reset(key string) {
	switch key {
	case storage.KeyGoals:
		s.goals = nil
	case storage.KeyActivities:
		s.activities = nil
	case storage.KeyTasks:
		s.tasks = nil
	case storage.KeySchedule:
		s.schedule = nil
	case storage.KeyInsights:
		s.insights = nil
	case storage.KeySettings:
		s.settings = s.defaults
	}
}

func (s *Service) normalize() {
	s.goals = nonNil(s.goals)
	s.activities = nonNil(s.activities)
	s.tasks = nonNil(s.tasks)
	s.schedule = nonNil(s.schedule)
	s.unscheduled = nonNil(s.unscheduled)
	s.insights = nonNil(s.insights)
	for i := range s.goals {
		s.goals[i].Progress = models.ClampProgress(s.goals[i].Progress)
	}
}

// persist saves v under key and records its revision. Caller holds s.mu.
func (s *Service) persist(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("planservice: encode %s: %w", key, err)
	}
	if err := s.store.Save(key, data); err != nil {
		return fmt.Errorf("planservice: save %s: %w", key, err)
	}
	s.revisions[key] = checksum.Sum(data)
	return nil
}

// commit persists the listed keys and announces them. Caller holds s.mu.
func (s *Service) commit(keys ...string) error {
	for _, key := range keys {
		if err := s.persist(key, s.value(key)); err != nil {
			return err
		}
	}
	for _, key := range keys {
		s.notify.PublishStateChange(key, SourceAPI)
	}
	return nil
}

func (s *Service) value(key string) any {
	switch key {
	case storage.KeyGoals:
		return s.goals
	case storage.KeyActivities:
		return s.activities
	case storage.KeyTasks:
		return s.tasks
	case storage.KeySchedule:
		return s.schedule
	case storage.KeyInsights:
		return s.insights
	case storage.KeySettings:
		return s.settings
	}
	return nil
}

// Collection returns the stored JSON form of key and its revision.
func (s *Service) Collection(_ context.Context, key string) ([]byte, string, error) {
	if !slices.Contains(storage.Keys, key) || key == storage.KeySettings {
		return nil, "", fmt.Errorf("planservice: collection %q: %w", key, apperr.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := json.Marshal(s.value(key))
	if err != nil {
		return nil, "", fmt.Errorf("planservice: encode %s: %w", key, err)
	}
	return data, checksum.Sum(data), nil
}

// ReplaceCollection overwrites one of the editable collections with data.
// A non-empty ifMatch must name the current revision.
func (s *Service) ReplaceCollection(_ context.Context, key string, data []byte, ifMatch string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := json.Marshal(s.value(key))
	if err != nil {
		return "", fmt.Errorf("planservice: encode %s: %w", key, err)
	}
	if !checksum.Matches(ifMatch, checksum.Sum(current)) {
		return "", fmt.Errorf("planservice: replace %s: %w", key, apperr.ErrConflict)
	}

	switch key {
	case storage.KeyGoals:
		var v []models.Goal
		if err := decodeValid(data, &v); err != nil {
			return "", err
		}
		s.goals = v
	case storage.KeyActivities:
		var v []models.Activity
		if err := decodeValid(data, &v); err != nil {
			return "", err
		}
		s.activities = v
	case storage.KeyTasks:
		var v []models.Task
		if err := decodeValid(data, &v); err != nil {
			return "", err
		}
		s.tasks = v
	default:
		return "", fmt.Errorf("planservice: collection %q: %w", key, apperr.ErrNotFound)
	}
	s.normalize()
	if err := s.commit(key); err != nil {
		return "", err
	}
	return s.revisions[key], nil
}

type validatable interface {
	Validate() error
}

func decodeValid[T validatable](data []byte, dst *[]T) error {
	var v []T
	if err := json.Unmarshal(data, &v); err != nil {
		return apperr.InvalidDocument(err)
	}
	for i, item := range v {
		if err := item.Validate(); err != nil {
			return &apperr.ValidationError{Field: fmt.Sprintf("[%d]", i), Reason: "invalid record", Err: err}
		}
	}
	*dst = nonNil(v)
	return nil
}

func newID() models.ID {
	return models.ID(ulid.Make().String())
}

func invalid(field string, err error) error {
	return &apperr.ValidationError{Field: field, Reason: "invalid", Err: err}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package planservice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/starford/planner/internal/ai"
	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/backup"
	"github.com/starford/planner/internal/calendar"
	"github.com/starford/planner/internal/insight"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/schedule"
	"github.com/starford/planner/internal/sse"
	"github.com/starford/planner/internal/storage"
)

// WeekDays is the length of the weekly view.
const WeekDays = 7

// ScheduleView is a synthesized day plus the tasks that did not fit.
type ScheduleView struct {
	Entries     []models.ScheduleEntry `json:"entries"`
	Unscheduled []models.Task          `json:"unscheduled"`
}

// Snapshot returns a copy of the state the analyzers read.
func (s *Service) Snapshot() insight.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Service) snapshot() insight.Snapshot {
	return insight.Snapshot{
		Goals:      slices.Clone(s.goals),
		Activities: slices.Clone(s.activities),
		Tasks:      slices.Clone(s.tasks),
		Schedule:   slices.Clone(s.schedule),
	}
}

// GenerateSchedule synthesizes today's schedule from the current
// activities and tasks and caches it.
func (s *Service) GenerateSchedule(_ context.Context) (ScheduleView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := schedule.Synthesize(s.activities, s.tasks)
	s.schedule = res.Entries
	s.unscheduled = res.Backlog.Tasks()
	if err := s.commit(storage.KeySchedule); err != nil {
		return ScheduleView{}, err
	}
	s.notify.Publish(sse.Event{Type: sse.TypeScheduleGenerated, Data: map[string]int{
		"entries":     len(s.schedule),
		"unscheduled": len(s.unscheduled),
	}})
	return s.scheduleView(), nil
}

// Schedule returns the cached schedule.
func (s *Service) Schedule(_ context.Context) ScheduleView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduleView()
}

func (s *Service) scheduleView() ScheduleView {
	return ScheduleView{
		Entries:     slices.Clone(nonNil(s.schedule)),
		Unscheduled: slices.Clone(nonNil(s.unscheduled)),
	}
}

// WeekPlan synthesizes WeekDays consecutive days starting at from. It does
// not touch the cached schedule.
func (s *Service) WeekPlan(_ context.Context, from time.Time) []schedule.DayPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schedule.PlanWeek(s.activities, s.tasks, from, WeekDays)
}

// Upcoming returns pending tasks dated within the next days.
func (s *Service) Upcoming(_ context.Context, days int) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schedule.Upcoming(s.tasks, s.now().In(s.calendar.Location()), days)
}

// Insights returns the cached insights.
func (s *Service) Insights(_ context.Context) []models.Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.insights)
}

// AnalyzeInsights recomputes the insights and caches them. With useAI the
// text generator is asked first and the rules are the fallback; the
// outcome's Err records why a fallback happened.
func (s *Service) AnalyzeInsights(ctx context.Context, useAI bool) (insight.Outcome, error) {
	snap := s.Snapshot()

	var out insight.Outcome
	if useAI {
		gen, model, err := s.generatorFor()
		if err != nil {
			out = insight.Failed(err)
		} else {
			out = ai.Insights(ctx, gen, model, snap)
		}
		out = insight.Resolve(out, snap)
		if out.Err != nil {
			s.logger.Warn("insight generation fell back to rules", slog.String("error", out.Err.Error()))
		}
	} else {
		out = insight.Outcome{Insights: insight.Analyze(snap), Source: insight.SourceRules}
	}

	if err := s.storeInsights(out.Insights, string(out.Source)); err != nil {
		return insight.Outcome{}, err
	}
	return out, nil
}

func (s *Service) storeInsights(in []models.Insight, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights = nonNil(in)
	if err := s.commit(storage.KeyInsights); err != nil {
		return err
	}
	s.notify.Publish(sse.Event{Type: sse.TypeInsightsUpdated, Data: map[string]any{
		"count":  len(s.insights),
		"source": source,
	}})
	return nil
}

// Calendar exports the cached schedule as an iCalendar document dated on
// ref. With week set, the next WeekDays days are planned and exported
// instead.
func (s *Service) Calendar(ctx context.Context, ref time.Time, week bool) ([]byte, error) {
	ref = ref.In(s.calendar.Location())
	if week {
		return calendar.EncodeDays(s.WeekPlan(ctx, ref), s.calendar)
	}
	view := s.Schedule(ctx)
	return calendar.Encode(view.Entries, ref, s.calendar)
}

// CalendarOptions returns the export options in use.
func (s *Service) CalendarOptions() calendar.Options {
	return s.calendar
}

// Now returns the service clock's current time in the calendar zone.
func (s *Service) Now() time.Time {
	return s.now().In(s.calendar.Location())
}

// ExportBackup renders the whole state as a backup document.
func (s *Service) ExportBackup(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	st := backup.State{
		Goals:      s.goals,
		Activities: s.activities,
		Tasks:      s.tasks,
		Schedule:   s.schedule,
		Insights:   s.insights,
	}
	data, err := backup.Export(st, s.now())
	s.mu.RUnlock()
	return data, err
}

// ImportBackup merges a backup document into the state and persists every
// replaced collection.
func (s *Service) ImportBackup(_ context.Context, data []byte) (backup.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := backup.State{
		Goals:      s.goals,
		Activities: s.activities,
		Tasks:      s.tasks,
		Schedule:   s.schedule,
		Insights:   s.insights,
	}
	rep, err := backup.Import(data, &st)
	if err != nil {
		return backup.Report{}, err
	}
	s.goals, s.activities, s.tasks = st.Goals, st.Activities, st.Tasks
	s.schedule, s.insights = st.Schedule, st.Insights
	s.normalize()

	if err := s.commit(rep.Replaced...); err != nil {
		return backup.Report{}, err
	}
	s.logger.Info("backup imported",
		slog.Int("replaced", len(rep.Replaced)),
		slog.Int("skipped", len(rep.Skipped)),
		slog.Int("repaired", len(rep.Repaired)))
	return rep, nil
}

// Feedback relays free-text feedback to the text generator. Non-empty
// updated insights replace the cache.
func (s *Service) Feedback(ctx context.Context, text string) (ai.FeedbackResult, error) {
	gen, model, err := s.generatorFor()
	if err != nil {
		return ai.FeedbackResult{}, err
	}

	s.mu.RLock()
	counts := ai.Counts{
		Goals:        len(s.goals),
		Activities:   len(s.activities),
		CurrentCount: len(s.insights),
	}
	for _, t := range s.tasks {
		if !t.Completed {
			counts.OpenTasks++
		}
	}
	s.mu.RUnlock()

	res, err := ai.Feedback(ctx, gen, model, counts, text)
	if err != nil {
		return ai.FeedbackResult{}, err
	}
	if len(res.UpdatedInsights) > 0 {
		if err := s.storeInsights(res.UpdatedInsights, string(insight.SourceGenerated)); err != nil {
			return ai.FeedbackResult{}, err
		}
	}
	return res, nil
}

// Breakdown asks the text generator to split goal id into sub-goals. The
// proposal is not stored.
func (s *Service) Breakdown(ctx context.Context, id models.ID) (ai.BreakdownResult, error) {
	g, err := s.GetGoal(ctx, id)
	if err != nil {
		return ai.BreakdownResult{}, err
	}
	gen, model, err := s.generatorFor()
	if err != nil {
		return ai.BreakdownResult{}, err
	}
	return ai.Breakdown(ctx, gen, model, g)
}

// ApplyBreakdown creates one sub-goal of parent per draft. Every draft is
// validated before anything is stored.
func (s *Service) ApplyBreakdown(_ context.Context, parent models.ID, drafts []models.GoalDraft) ([]models.Goal, error) {
	if len(drafts) == 0 {
		return nil, apperr.Validation("subGoals", "must not be empty")
	}
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := models.FindGoal(s.goals, parent)
	if !ok {
		return nil, fmt.Errorf("planservice: goal %s: %w", parent, apperr.ErrNotFound)
	}

	created := make([]models.Goal, 0, len(drafts))
	for i, d := range drafts {
		g := models.Goal{
			ID:           newID(),
			Name:         strings.TrimSpace(d.Name),
			Type:         models.GoalType(d.Type),
			Category:     d.Category,
			Description:  d.Description,
			Deadline:     d.Deadline,
			Progress:     0,
			CreatedAt:    now,
			ParentGoalID: p.ID,
		}
		if g.Category == "" {
			g.Category = p.Category
		}
		if err := g.Validate(); err != nil {
			return nil, invalid(fmt.Sprintf("subGoals[%d]", i), err)
		}
		created = append(created, g)
	}

	s.goals = append(s.goals, created...)
	if err := s.commit(storage.KeyGoals); err != nil {
		return nil, err
	}
	return created, nil
}

// Settings returns the collaborator settings.
func (s *Service) Settings(_ context.Context) models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings stores st. A masked or empty API key keeps the stored one.
func (s *Service) UpdateSettings(_ context.Context, st models.Settings) (models.Settings, error) {
	if err := st.Validate(); err != nil {
		return models.Settings{}, invalid("apiSettings", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.APIKey == "" || strings.HasPrefix(st.APIKey, "****") {
		st.APIKey = s.settings.APIKey
	}
	s.settings = st
	if err := s.commit(storage.KeySettings); err != nil {
		return models.Settings{}, err
	}
	return s.settings, nil
}

func (s *Service) generatorFor() (ai.Generator, string, error) {
	st := s.Settings(context.Background())
	if !st.Enabled || st.APIKey == "" {
		return nil, "", apperr.Validation("apiSettings", "text generation is not configured")
	}
	gen, err := s.generator(st)
	if err != nil {
		return nil, "", err
	}
	return gen, st.Model, nil
}

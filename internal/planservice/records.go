package planservice

import (
	"context"
	"fmt"
	"slices"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/storage"
)

// ListGoals returns every goal.
func (s *Service) ListGoals(_ context.Context) []models.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.goals)
}

// GetGoal returns the goal with id.
func (s *Service) GetGoal(_ context.Context, id models.ID) (models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := models.FindGoal(s.goals, id)
	if !ok {
		return models.Goal{}, fmt.Errorf("planservice: goal %s: %w", id, apperr.ErrNotFound)
	}
	return g, nil
}

// CreateGoal stores g under a fresh id.
func (s *Service) CreateGoal(_ context.Context, g models.Goal) (models.Goal, error) {
	g.ID = newID()
	g.SetProgress(g.Progress)
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now().UTC()
	}
	if err := g.Validate(); err != nil {
		return models.Goal{}, invalid("goal", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, g)
	if err := s.commit(storage.KeyGoals); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

// UpdateGoal replaces the editable fields of goal id.
func (s *Service) UpdateGoal(_ context.Context, id models.ID, g models.Goal) (models.Goal, error) {
	g.SetProgress(g.Progress)
	if err := g.Validate(); err != nil {
		return models.Goal{}, invalid("goal", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.goals, func(x models.Goal) bool { return x.ID == id })
	if i < 0 {
		return models.Goal{}, fmt.Errorf("planservice: goal %s: %w", id, apperr.ErrNotFound)
	}
	g.ID = id
	g.CreatedAt = s.goals[i].CreatedAt
	if g.ParentGoalID == "" {
		g.ParentGoalID = s.goals[i].ParentGoalID
	}
	s.goals[i] = g
	if err := s.commit(storage.KeyGoals); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

// DeleteGoal removes goal id. Sub-goals and tasks keep their now dangling
// references.
func (s *Service) DeleteGoal(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.goals)
	s.goals = slices.DeleteFunc(s.goals, func(x models.Goal) bool { return x.ID == id })
	if len(s.goals) == n {
		return fmt.Errorf("planservice: goal %s: %w", id, apperr.ErrNotFound)
	}
	return s.commit(storage.KeyGoals)
}

// ListActivities returns the daily activities in stored order.
func (s *Service) ListActivities(_ context.Context) []models.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.activities)
}

// CreateActivity stores a under a fresh id.
func (s *Service) CreateActivity(_ context.Context, a models.Activity) (models.Activity, error) {
	a.ID = newID()
	if err := a.Validate(); err != nil {
		return models.Activity{}, invalid("activity", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, a)
	if err := s.commit(storage.KeyActivities); err != nil {
		return models.Activity{}, err
	}
	return a, nil
}

// UpdateActivity replaces activity id.
func (s *Service) UpdateActivity(_ context.Context, id models.ID, a models.Activity) (models.Activity, error) {
	if err := a.Validate(); err != nil {
		return models.Activity{}, invalid("activity", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.activities, func(x models.Activity) bool { return x.ID == id })
	if i < 0 {
		return models.Activity{}, fmt.Errorf("planservice: activity %s: %w", id, apperr.ErrNotFound)
	}
	a.ID = id
	s.activities[i] = a
	if err := s.commit(storage.KeyActivities); err != nil {
		return models.Activity{}, err
	}
	return a, nil
}

// DeleteActivity removes activity id.
func (s *Service) DeleteActivity(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.activities)
	s.activities = slices.DeleteFunc(s.activities, func(x models.Activity) bool { return x.ID == id })
	if len(s.activities) == n {
		return fmt.Errorf("planservice: activity %s: %w", id, apperr.ErrNotFound)
	}
	return s.commit(storage.KeyActivities)
}

// ListTasks returns every task, completed ones included.
func (s *Service) ListTasks(_ context.Context) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// CreateTask stores t under a fresh id. A missing priority becomes medium.
func (s *Service) CreateTask(_ context.Context, t models.Task) (models.Task, error) {
	t.ID = newID()
	if t.Priority == 0 {
		t.Priority = models.PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	if err := t.Validate(); err != nil {
		return models.Task{}, invalid("task", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
	if err := s.commit(storage.KeyTasks); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// UpdateTask replaces the editable fields of task id.
func (s *Service) UpdateTask(_ context.Context, id models.ID, t models.Task) (models.Task, error) {
	if t.Priority == 0 {
		t.Priority = models.PriorityMedium
	}
	if err := t.Validate(); err != nil {
		return models.Task{}, invalid("task", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.tasks, func(x models.Task) bool { return x.ID == id })
	if i < 0 {
		return models.Task{}, fmt.Errorf("planservice: task %s: %w", id, apperr.ErrNotFound)
	}
	t.ID = id
	t.CreatedAt = s.tasks[i].CreatedAt
	s.tasks[i] = t
	if err := s.commit(storage.KeyTasks); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// CompleteTask sets the completed flag of task id.
func (s *Service) CompleteTask(_ context.Context, id models.ID, done bool) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.tasks, func(x models.Task) bool { return x.ID == id })
	if i < 0 {
		return models.Task{}, fmt.Errorf("planservice: task %s: %w", id, apperr.ErrNotFound)
	}
	s.tasks[i].Completed = done
	if err := s.commit(storage.KeyTasks); err != nil {
		return models.Task{}, err
	}
	return s.tasks[i], nil
}

// DeleteTask removes task id.
func (s *Service) DeleteTask(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.tasks)
	s.tasks = slices.DeleteFunc(s.tasks, func(x models.Task) bool { return x.ID == id })
	if len(s.tasks) == n {
		return fmt.Errorf("planservice: task %s: %w", id, apperr.ErrNotFound)
	}
	return s.commit(storage.KeyTasks)
}

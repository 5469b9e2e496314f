package schedule

import (
	"slices"

	"github.com/starford/planner/internal/models"
)

// Backlog is an owned, priority-ordered queue of pending tasks.
type Backlog struct {
	tasks []models.Task
}

// NewBacklog copies the tasks that are not completed and orders them by
// priority, highest first. Equal priorities keep their input order.
func NewBacklog(tasks []models.Task) *Backlog {
	b := &Backlog{tasks: make([]models.Task, 0, len(tasks))}
	for _, t := range tasks {
		if !t.Completed {
			b.tasks = append(b.tasks, t)
		}
	}
	b.Sort()
	return b
}

// Sort restores priority order after tasks were pushed.
func (b *Backlog) Sort() {
	slices.SortStableFunc(b.tasks, func(x, y models.Task) int {
		return int(y.Priority) - int(x.Priority)
	})
}

// Push appends t. Call Sort to reorder.
func (b *Backlog) Push(t models.Task) {
	b.tasks = append(b.tasks, t)
}

// Len reports the number of queued tasks.
func (b *Backlog) Len() int {
	if b == nil {
		return 0
	}
	return len(b.tasks)
}

// Peek returns the next task without removing it.
func (b *Backlog) Peek() (models.Task, bool) {
	if b.Len() == 0 {
		return models.Task{}, false
	}
	return b.tasks[0], true
}

// Pop removes and returns the highest-priority task.
func (b *Backlog) Pop() (models.Task, bool) {
	t, ok := b.Peek()
	if ok {
		b.tasks = b.tasks[1:]
	}
	return t, ok
}

// Tasks returns a copy of the remaining tasks in queue order.
func (b *Backlog) Tasks() []models.Task {
	if b == nil {
		return []models.Task{}
	}
	return slices.Clone(b.tasks)
}

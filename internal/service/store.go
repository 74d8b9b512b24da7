package service

import (
	"log"
	"strings"
	"time"

	"todo-keeper/internal/model"
	"todo-keeper/internal/repository"
)

// TaskStore is the in-memory ordered task collection for the active
// list and the single source of truth during a session. Every mutation
// is followed by exactly one persisted write of the whole list; callers
// re-render after each successful call (render-after-mutate).
//
// New tasks are prepended, so the list reads newest-first; Move gives
// explicit manual reordering on top of that.
type TaskStore struct {
	repo   *repository.TaskListRepository
	owner  string
	tasks  []model.Task
	nextID int64
	dirty  bool
	now    func() time.Time
}

// NewTaskStore loads the persisted list for owner (empty owner means
// the guest list). Missing or corrupt storage yields an empty list.
func NewTaskStore(repo *repository.TaskListRepository, owner string) (*TaskStore, error) {
	tasks, err := repo.Load(owner)
	if err != nil {
		return nil, err
	}

	var nextID int64 = 1
	for _, t := range tasks {
		if t.ID >= nextID {
			nextID = t.ID + 1
		}
	}

	return &TaskStore{
		repo:   repo,
		owner:  owner,
		tasks:  tasks,
		nextID: nextID,
		now:    time.Now,
	}, nil
}

// Owner returns the email the store persists under, empty for guest.
func (s *TaskStore) Owner() string {
	return s.owner
}

// Tasks returns a defensive copy of the current ordering.
func (s *TaskStore) Tasks() []model.Task {
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len returns the number of tasks.
func (s *TaskStore) Len() int {
	return len(s.tasks)
}

// Get returns a task by id.
func (s *TaskStore) Get(id int64) (model.Task, bool) {
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// CompletedCount counts completed tasks.
func (s *TaskStore) CompletedCount() int {
	n := 0
	for _, t := range s.tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

// Add validates and prepends a new task. The returned error is either
// a validation failure (no state change) or a storage write failure,
// in which case the task is already held in memory and the write is
// retried on the next mutation.
func (s *TaskStore) Add(text, color string, priority model.Priority) (model.Task, error) {
	task, err := model.NewTask(s.nextID, text, color, priority, s.now())
	if err != nil {
		return model.Task{}, err
	}
	s.nextID++
	s.tasks = append([]model.Task{task}, s.tasks...)
	return task, s.persist()
}

// Toggle flips a task's completion state, keeping completedAt in sync.
// An unknown id is silently ignored.
func (s *TaskStore) Toggle(id int64) (model.Task, bool, error) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].SetCompleted(!s.tasks[i].Completed, s.now())
			return s.tasks[i], true, s.persist()
		}
	}
	return model.Task{}, false, nil
}

// Edit replaces a task's text. An empty-after-trim replacement abandons
// the edit without error; an unknown id is silently ignored.
func (s *TaskStore) Edit(id int64, newText string) (model.Task, bool, error) {
	trimmed := strings.TrimSpace(newText)
	if trimmed == "" {
		return model.Task{}, false, nil
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].Text = trimmed
			return s.tasks[i], true, s.persist()
		}
	}
	return model.Task{}, false, nil
}

// Delete removes a task. Confirmation happens at the UI layer; an
// unknown id is silently ignored.
func (s *TaskStore) Delete(id int64) (model.Task, bool, error) {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			removed := s.tasks[i]
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return removed, true, s.persist()
		}
	}
	return model.Task{}, false, nil
}

// Move repositions a task to pos (clamped to the list bounds),
// preserving the relative order of the others.
func (s *TaskStore) Move(id int64, pos int) (bool, error) {
	from := -1
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			from = i
			break
		}
	}
	if from == -1 {
		return false, nil
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.tasks)-1 {
		pos = len(s.tasks) - 1
	}
	if pos == from {
		return true, nil
	}

	task := s.tasks[from]
	s.tasks = append(s.tasks[:from], s.tasks[from+1:]...)
	rest := append([]model.Task{task}, s.tasks[pos:]...)
	s.tasks = append(s.tasks[:pos:pos], rest...)
	return true, s.persist()
}

// ClearCompleted removes every completed task in a single write and
// returns how many were removed. Zero completed tasks means no
// mutation and no write.
func (s *TaskStore) ClearCompleted() (int, error) {
	kept := s.tasks[:0:0]
	removed := 0
	for _, t := range s.tasks {
		if t.Completed {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	if removed == 0 {
		return 0, nil
	}
	s.tasks = kept
	return removed, s.persist()
}

// DeleteAll clears the whole collection in a single write and returns
// how many tasks were removed. An empty store stays empty, writes
// nothing and reports zero.
func (s *TaskStore) DeleteAll() (int, error) {
	removed := len(s.tasks)
	if removed == 0 {
		return 0, nil
	}
	s.tasks = []model.Task{}
	return removed, s.persist()
}

// Dirty reports whether the last write failed and in-memory state is
// ahead of storage.
func (s *TaskStore) Dirty() bool {
	return s.dirty
}

// persist writes the full list. On failure the store stays dirty and
// the next mutation retries the whole write, so no change is lost
// while the process lives.
func (s *TaskStore) persist() error {
	s.dirty = true
	if err := s.repo.Save(s.owner, s.tasks); err != nil {
		log.Printf("[warn] save tasks for %q: %v", s.owner, err)
		return err
	}
	s.dirty = false
	return nil
}

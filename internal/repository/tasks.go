package repository

import (
	"log"

	"todo-keeper/internal/model"
)

const (
	keyTasks    = "tasks"
	keyUserData = "user_data"
)

// userData is the per-account payload stored under the user_data key,
// one entry per email.
type userData struct {
	Tasks []model.Task `json:"tasks"`
}

// TaskListRepository persists ordered task lists. The guest list lives
// under the tasks key; signed-in users each own an entry inside the
// user_data map. Owner is an email, or empty for the guest list.
type TaskListRepository struct {
	kv *KV
}

func NewTaskListRepository(kv *KV) *TaskListRepository {
	return &TaskListRepository{kv: kv}
}

// Load returns the stored list for owner. Missing or corrupt data comes
// back as an empty list, never as an error.
func (r *TaskListRepository) Load(owner string) ([]model.Task, error) {
	if owner == "" {
		var tasks []model.Task
		if _, err := r.kv.Get(keyTasks, &tasks); err != nil {
			return nil, err
		}
		return tasks, nil
	}

	data := map[string]userData{}
	if _, err := r.kv.Get(keyUserData, &data); err != nil {
		return nil, err
	}
	return data[model.NormalizeEmail(owner)].Tasks, nil
}

// Save writes the whole list for owner in a single write.
func (r *TaskListRepository) Save(owner string, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	if owner == "" {
		return r.kv.Put(keyTasks, tasks)
	}

	data := map[string]userData{}
	if _, err := r.kv.Get(keyUserData, &data); err != nil {
		return err
	}
	data[model.NormalizeEmail(owner)] = userData{Tasks: tasks}
	return r.kv.Put(keyUserData, data)
}

// EnsureList creates an empty list entry for a freshly registered user
// if one does not exist yet.
func (r *TaskListRepository) EnsureList(owner string) error {
	email := model.NormalizeEmail(owner)
	data := map[string]userData{}
	if _, err := r.kv.Get(keyUserData, &data); err != nil {
		return err
	}
	if _, ok := data[email]; ok {
		return nil
	}
	data[email] = userData{Tasks: []model.Task{}}
	return r.kv.Put(keyUserData, data)
}

// Relocate moves a user's list to a new email, as a rename rather than
// a copy. Used when an account changes its address.
func (r *TaskListRepository) Relocate(oldOwner, newOwner string) error {
	oldEmail := model.NormalizeEmail(oldOwner)
	newEmail := model.NormalizeEmail(newOwner)
	data := map[string]userData{}
	if _, err := r.kv.Get(keyUserData, &data); err != nil {
		return err
	}
	entry, ok := data[oldEmail]
	if !ok {
		log.Printf("[warn] no task list to relocate for %s", oldEmail)
		return nil
	}
	data[newEmail] = entry
	delete(data, oldEmail)
	return r.kv.Put(keyUserData, data)
}

// Drop deletes a user's list entry entirely.
func (r *TaskListRepository) Drop(owner string) error {
	data := map[string]userData{}
	if _, err := r.kv.Get(keyUserData, &data); err != nil {
		return err
	}
	delete(data, model.NormalizeEmail(owner))
	return r.kv.Put(keyUserData, data)
}

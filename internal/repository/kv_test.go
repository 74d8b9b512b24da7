package repository

import (
	"path/filepath"
	"testing"
	"time"

	"todo-keeper/internal/model"
)

func newTestKV(t *testing.T) *KV {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewKV(db)
}

func TestKVMissingKeyFallsBackToZero(t *testing.T) {
	kv := newTestKV(t)

	tasks := []model.Task{}
	found, err := kv.Get("tasks", &tasks)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("missing key reported as found")
	}
	if len(tasks) != 0 {
		t.Errorf("dest modified on miss: %v", tasks)
	}
}

func TestKVPutGetRoundTrip(t *testing.T) {
	kv := newTestKV(t)

	want := map[string]model.User{
		"a@b.com": {Email: "a@b.com", Pass: "secret", CreatedAt: 1700000000000},
	}
	if err := kv.Put("users", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got := map[string]model.User{}
	found, err := kv.Get("users", &got)
	if err != nil || !found {
		t.Fatalf("Get: found=%t err=%v", found, err)
	}
	if got["a@b.com"] != want["a@b.com"] {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestKVPutOverwrites(t *testing.T) {
	kv := newTestKV(t)

	if err := kv.Put("darkTheme", "false"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := kv.Put("darkTheme", "true"); err != nil {
		t.Fatalf("Put again: %v", err)
	}

	var raw string
	if found, err := kv.Get("darkTheme", &raw); err != nil || !found {
		t.Fatalf("Get: found=%t err=%v", found, err)
	}
	if raw != "true" {
		t.Errorf("got %q after overwrite, want \"true\"", raw)
	}
}

func TestKVCorruptValueFallsBack(t *testing.T) {
	kv := newTestKV(t)

	// Write garbage straight into the row, bypassing Put.
	entry := Entry{Key: "tasks", Value: "{not json"}
	if err := kv.db.Create(&entry).Error; err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}

	var tasks []model.Task
	found, err := kv.Get("tasks", &tasks)
	if err != nil {
		t.Fatalf("Get must not fail on corrupt data: %v", err)
	}
	if found || tasks != nil {
		t.Errorf("corrupt value must fall back to zero: found=%t tasks=%v", found, tasks)
	}
}

func TestKVPartiallyDecodableValueFallsBack(t *testing.T) {
	kv := newTestKV(t)

	// Valid JSON whose second element fails mid-decode: the first
	// element must not leak through as partial data.
	entry := Entry{Key: "tasks", Value: `[{"id":1,"text":"ок"},{"id":"не число"}]`}
	if err := kv.db.Create(&entry).Error; err != nil {
		t.Fatalf("seed row: %v", err)
	}

	var tasks []model.Task
	found, err := kv.Get("tasks", &tasks)
	if err != nil {
		t.Fatalf("Get must not fail on a mismatched value: %v", err)
	}
	if found || len(tasks) != 0 {
		t.Errorf("mismatched value must leave dest empty: found=%t tasks=%v", found, tasks)
	}
}

func TestKVDeleteAbsentKey(t *testing.T) {
	kv := newTestKV(t)
	if err := kv.Delete("nothing"); err != nil {
		t.Errorf("deleting an absent key: %v", err)
	}
}

func TestTaskListGuestAndUserAreSeparate(t *testing.T) {
	kv := newTestKV(t)
	repo := NewTaskListRepository(kv)

	guest, _ := model.NewTask(1, "гостевая", "#4FC3F7", model.PriorityLow, time.Now())
	owned, _ := model.NewTask(1, "личная", "#E57373", model.PriorityHigh, time.Now())

	if err := repo.Save("", []model.Task{guest}); err != nil {
		t.Fatalf("save guest: %v", err)
	}
	if err := repo.Save("a@b.com", []model.Task{owned}); err != nil {
		t.Fatalf("save user: %v", err)
	}

	gotGuest, err := repo.Load("")
	if err != nil || len(gotGuest) != 1 || gotGuest[0].Text != "гостевая" {
		t.Fatalf("guest list = %v, %v", gotGuest, err)
	}
	gotUser, err := repo.Load("a@b.com")
	if err != nil || len(gotUser) != 1 || gotUser[0].Text != "личная" {
		t.Fatalf("user list = %v, %v", gotUser, err)
	}
}

func TestTaskListRelocateMovesNotCopies(t *testing.T) {
	kv := newTestKV(t)
	repo := NewTaskListRepository(kv)

	task, _ := model.NewTask(1, "переезд", "", model.PriorityMedium, time.Now())
	if err := repo.Save("old@b.com", []model.Task{task}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := repo.Relocate("old@b.com", "new@b.com"); err != nil {
		t.Fatalf("relocate: %v", err)
	}

	moved, err := repo.Load("new@b.com")
	if err != nil || len(moved) != 1 {
		t.Fatalf("new owner list = %v, %v", moved, err)
	}
	left, err := repo.Load("old@b.com")
	if err != nil || len(left) != 0 {
		t.Fatalf("old owner still has %v, %v", left, err)
	}
}

func TestCurrentUserLifecycle(t *testing.T) {
	kv := newTestKV(t)
	repo := NewUserRepository(kv)

	if _, signedIn, err := repo.CurrentUser(); err != nil || signedIn {
		t.Fatalf("fresh store: signedIn=%t err=%v", signedIn, err)
	}

	if err := repo.SetCurrentUser("A@B.com"); err != nil {
		t.Fatalf("SetCurrentUser: %v", err)
	}
	email, signedIn, err := repo.CurrentUser()
	if err != nil || !signedIn || email != "a@b.com" {
		t.Fatalf("after login: email=%q signedIn=%t err=%v", email, signedIn, err)
	}

	if err := repo.ClearCurrentUser(); err != nil {
		t.Fatalf("ClearCurrentUser: %v", err)
	}
	if _, signedIn, _ := repo.CurrentUser(); signedIn {
		t.Error("still signed in after clear")
	}
}

func TestDarkThemeStoredAsString(t *testing.T) {
	kv := newTestKV(t)
	repo := NewSettingsRepository(kv)

	if dark, err := repo.DarkTheme(); err != nil || dark {
		t.Fatalf("default theme: dark=%t err=%v", dark, err)
	}

	if err := repo.SetDarkTheme(true); err != nil {
		t.Fatalf("SetDarkTheme: %v", err)
	}
	if dark, err := repo.DarkTheme(); err != nil || !dark {
		t.Fatalf("after set: dark=%t err=%v", dark, err)
	}

	// The raw value stays a string for layout compatibility.
	var raw string
	if found, err := kv.Get("darkTheme", &raw); err != nil || !found || raw != "true" {
		t.Fatalf("raw value = %q found=%t err=%v", raw, found, err)
	}
}

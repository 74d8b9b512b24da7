package service

import (
	"testing"
	"time"

	"golang.org/x/text/language"

	"todo-keeper/internal/model"
)

func sampleTasks() []model.Task {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mk := func(id int64, text string, p model.Priority, age time.Duration, done bool) model.Task {
		task, _ := model.NewTask(id, text, "#4FC3F7", p, base.Add(-age))
		if done {
			task.SetCompleted(true, base)
		}
		return task
	}
	return []model.Task{
		mk(1, "яблоки купить", model.PriorityLow, 3*time.Hour, true),
		mk(2, "борщ сварить", model.PriorityHigh, 2*time.Hour, false),
		mk(3, "Аптека", model.PriorityMedium, 1*time.Hour, false),
		mk(4, "звонок маме", model.PriorityHigh, 4*time.Hour, true),
	}
}

func TestProjectFiltersPartitionTheList(t *testing.T) {
	proj := NewProjector(language.Russian)
	tasks := sampleTasks()

	all := proj.Project(tasks, FilterAll, SortDate)
	pending := proj.Project(tasks, FilterPending, SortDate)
	completed := proj.Project(tasks, FilterCompleted, SortDate)

	if len(all) != len(tasks) {
		t.Fatalf("all = %d tasks, want %d", len(all), len(tasks))
	}
	if len(pending)+len(completed) != len(all) {
		t.Fatalf("pending (%d) + completed (%d) != all (%d)", len(pending), len(completed), len(all))
	}
	for _, task := range pending {
		if task.Completed {
			t.Errorf("completed task %d leaked into pending", task.ID)
		}
	}
	for _, task := range completed {
		if !task.Completed {
			t.Errorf("pending task %d leaked into completed", task.ID)
		}
	}
}

func TestProjectSortDateNewestFirst(t *testing.T) {
	proj := NewProjector(language.Russian)

	got := proj.Project(sampleTasks(), FilterAll, SortDate)
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Fatalf("date order broken at %d: %v", i, got)
		}
	}
	if got[0].ID != 3 || got[len(got)-1].ID != 4 {
		t.Errorf("expected newest (3) first and oldest (4) last, got %v", idsOf(got))
	}
}

func TestProjectSortPriorityHighFirstAndStable(t *testing.T) {
	proj := NewProjector(language.Russian)

	got := proj.Project(sampleTasks(), FilterAll, SortPriority)
	// Both high-priority tasks lead, keeping their stored order.
	if got[0].ID != 2 || got[1].ID != 4 {
		t.Fatalf("high priorities must lead in stored order, got %v", idsOf(got))
	}
	if got[2].Priority != model.PriorityMedium || got[3].Priority != model.PriorityLow {
		t.Errorf("tail order: %v", idsOf(got))
	}
}

func TestProjectSortAlphaUsesLocale(t *testing.T) {
	proj := NewProjector(language.Russian)

	got := proj.Project(sampleTasks(), FilterAll, SortAlpha)
	// Case-insensitive Russian collation: Аптека, борщ, звонок, яблоки.
	want := []int64{3, 2, 4, 1}
	for i, id := range idsOf(got) {
		if id != want[i] {
			t.Fatalf("alpha order = %v, want %v", idsOf(got), want)
		}
	}
}

func TestProjectIsIdempotentAndNonMutating(t *testing.T) {
	proj := NewProjector(language.Russian)
	tasks := sampleTasks()
	originalFirst := tasks[0].ID

	once := proj.Project(tasks, FilterPending, SortPriority)
	twice := proj.Project(once, FilterPending, SortPriority)
	if len(once) != len(twice) {
		t.Fatalf("lengths differ: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("re-projection changed order: %v vs %v", idsOf(once), idsOf(twice))
		}
	}
	if tasks[0].ID != originalFirst {
		t.Error("projection mutated its input")
	}
}

func TestParseFilterAndSortMode(t *testing.T) {
	if f, err := ParseFilter("  Pending "); err != nil || f != FilterPending {
		t.Errorf("ParseFilter = %q, %v", f, err)
	}
	if _, err := ParseFilter("done"); err == nil {
		t.Error("ParseFilter accepted unknown value")
	}
	if m, err := ParseSortMode("ALPHA"); err != nil || m != SortAlpha {
		t.Errorf("ParseSortMode = %q, %v", m, err)
	}
	if _, err := ParseSortMode("name"); err == nil {
		t.Error("ParseSortMode accepted unknown value")
	}
}

func idsOf(tasks []model.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

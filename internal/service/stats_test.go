package service

import (
	"testing"
	"time"

	"todo-keeper/internal/model"
)

func TestCollectCountsAddUp(t *testing.T) {
	cases := []struct {
		name      string
		total     int
		completed int
	}{
		{"empty", 0, 0},
		{"none done", 4, 0},
		{"some done", 5, 2},
		{"all done", 3, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tasks := make([]model.Task, 0, tc.total)
			for i := 0; i < tc.total; i++ {
				task, _ := model.NewTask(int64(i+1), "задача", "", model.PriorityMedium, time.Now())
				if i < tc.completed {
					task.SetCompleted(true, time.Now())
				}
				tasks = append(tasks, task)
			}

			got := Collect(tasks)
			if got.Total != tc.total || got.Completed != tc.completed {
				t.Fatalf("Collect = %+v, want total=%d completed=%d", got, tc.total, tc.completed)
			}
			if got.Pending != got.Total-got.Completed {
				t.Errorf("pending = %d, want total-completed = %d", got.Pending, got.Total-got.Completed)
			}
		})
	}
}

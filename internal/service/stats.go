package service

import "todo-keeper/internal/model"

// Stats are the derived counters shown next to the list title and in
// scheduled reports. Pending is always Total minus Completed.
type Stats struct {
	Total     int
	Completed int
	Pending   int
}

// Collect recomputes the counters from scratch; it is pure and is
// called after every store mutation.
func Collect(tasks []model.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}

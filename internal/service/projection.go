package service

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"todo-keeper/internal/model"
)

// Filter selects which tasks a projection shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// ParseFilter normalizes raw user input into a Filter.
func ParseFilter(raw string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FilterAll, FilterPending, FilterCompleted:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q", raw)
}

// SortMode selects the projection ordering.
type SortMode string

const (
	SortDate     SortMode = "date"
	SortPriority SortMode = "priority"
	SortAlpha    SortMode = "alpha"
)

// ParseSortMode normalizes raw user input into a SortMode.
func ParseSortMode(raw string) (SortMode, error) {
	m := SortMode(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case SortDate, SortPriority, SortAlpha:
		return m, nil
	}
	return "", fmt.Errorf("unknown sort mode %q", raw)
}

// Projector derives filtered, sorted, read-only views of a task list.
// It never mutates its input: every projection works on a copy.
type Projector struct {
	coll *collate.Collator
}

// NewProjector builds a projector collating task text per the given
// locale, so alphabetical order follows that language's rules.
func NewProjector(tag language.Tag) *Projector {
	return &Projector{coll: collate.New(tag)}
}

// Project returns the tasks passing filter, ordered by mode. Sorting
// is stable, so equal keys keep their stored relative order, and
// projecting an already-ordered list again yields the same sequence.
func (p *Projector) Project(tasks []model.Task, filter Filter, mode SortMode) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		switch filter {
		case FilterPending:
			if t.Completed {
				continue
			}
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}

	switch mode {
	case SortDate:
		// Newest first.
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Priority.Rank() < out[j].Priority.Rank()
		})
	case SortAlpha:
		sort.SliceStable(out, func(i, j int) bool {
			return p.coll.CompareString(out[i].Text, out[j].Text) < 0
		})
	}

	return out
}

package model

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Priority ranks a task: high, medium or low.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the severity order used for sorting (high before low).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// ParsePriority normalizes raw user input into a Priority.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", raw)
	}
	return p, nil
}

// Palette is the default set of task card colors.
var Palette = []string{"#4FC3F7", "#E57373", "#81C784", "#FFD54F", "#BA68C8"}

// RandomColor picks a palette color for tasks created without one.
func RandomColor() string {
	return Palette[rand.Intn(len(Palette))]
}

// Task represents a single item in the to-do list.
type Task struct {
	ID          int64      `json:"id"`
	Text        string     `json:"text"`
	Color       string     `json:"color"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ErrEmptyText rejects tasks whose text trims to nothing.
var ErrEmptyText = fmt.Errorf("task text is empty")

// NewTask builds a task with its invariants enforced: non-empty trimmed
// text, a color (random palette pick when blank), a valid priority
// (medium when blank) and completed/completedAt in their initial state.
func NewTask(id int64, text, color string, priority Priority, createdAt time.Time) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, ErrEmptyText
	}
	if color == "" {
		color = RandomColor()
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return Task{}, fmt.Errorf("invalid priority %q", priority)
	}
	return Task{
		ID:        id,
		Text:      text,
		Color:     color,
		Priority:  priority,
		CreatedAt: createdAt,
	}, nil
}

// SetCompleted flips the completion state keeping completedAt in sync:
// it is non-nil if and only if the task is completed.
func (t *Task) SetCompleted(done bool, at time.Time) {
	t.Completed = done
	if done {
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
}

package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"todo-keeper/internal/model"
	"todo-keeper/internal/repository"
)

// ReportService builds human-readable progress summaries for the
// scheduled notifications. It reads persisted state directly, so a
// report reflects whatever the last successful write left behind.
type ReportService struct {
	lists *repository.TaskListRepository
	users *repository.UserRepository
	proj  *Projector
}

func NewReportService(lists *repository.TaskListRepository, users *repository.UserRepository, proj *Projector) *ReportService {
	return &ReportService{lists: lists, users: users, proj: proj}
}

const reportPendingLimit = 10

// DailySummary renders the report for the active list: the signed-in
// user's when someone is logged in, the guest list otherwise.
func (s *ReportService) DailySummary(now time.Time) (string, error) {
	owner, signedIn, err := s.users.CurrentUser()
	if err != nil {
		return "", err
	}
	if !signedIn {
		owner = ""
	}

	tasks, err := s.lists.Load(owner)
	if err != nil {
		return "", err
	}

	stats := Collect(tasks)
	percent, tier := Progress(stats.Total, stats.Completed)
	pending := s.proj.Project(tasks, FilterPending, SortPriority)

	var b strings.Builder
	b.WriteString("📋 <b>Отчёт по задачам</b>\n")
	b.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("02.01.2006")))
	if signedIn {
		b.WriteString(fmt.Sprintf("👤 %s\n", html.EscapeString(owner)))
	}
	b.WriteByte('\n')

	b.WriteString(fmt.Sprintf("Всего: %d · Выполнено: %d · Осталось: %d\n", stats.Total, stats.Completed, stats.Pending))
	b.WriteString(progressLine(percent, tier))
	b.WriteString("\n\n")

	b.WriteString("🔥 <b>Открытые задачи</b>\n")
	if len(pending) == 0 {
		b.WriteString("— нет открытых задач\n")
	} else {
		for i, task := range pending {
			if i == reportPendingLimit {
				b.WriteString(fmt.Sprintf("… и ещё %d\n", len(pending)-reportPendingLimit))
				break
			}
			b.WriteString(fmt.Sprintf("%s #%d %s\n", priorityIcon(task.Priority), task.ID, html.EscapeString(task.Text)))
		}
	}

	return strings.TrimSpace(b.String()), nil
}

// progressLine renders the fill percentage as a ten-cell bar with the
// tier's marker in front.
func progressLine(percent int, tier Tier) string {
	filled := percent / 10
	if filled > 10 {
		filled = 10
	}
	return fmt.Sprintf("%s %s%s %d%%",
		tierIcon(tier),
		strings.Repeat("▰", filled),
		strings.Repeat("▱", 10-filled),
		percent,
	)
}

func tierIcon(tier Tier) string {
	switch tier.Name {
	case TierComplete.Name:
		return "🟢"
	case TierHalfway.Name:
		return "🔵"
	default:
		return "🟣"
	}
}

func priorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔺"
	case model.PriorityLow:
		return "🔽"
	default:
		return "▫️"
	}
}

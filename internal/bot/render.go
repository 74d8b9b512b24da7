package bot

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-keeper/internal/model"
	"todo-keeper/internal/service"
)

// Display labels for filters and sort modes.
var filterLabels = map[service.Filter]string{
	service.FilterAll:       "все",
	service.FilterPending:   "открытые",
	service.FilterCompleted: "выполненные",
}

var sortLabels = map[service.SortMode]string{
	service.SortDate:     "по дате",
	service.SortPriority: "по приоритету",
	service.SortAlpha:    "по алфавиту",
}

// renderList builds the task-list message: a title annotated with the
// pending count, the projected tasks and per-task inline buttons. It is
// a pure function of the projection plus display state.
func renderList(projected []model.Task, stats service.Stats, filter service.Filter, sort service.SortMode, dark bool) (string, tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder

	b.WriteString("📋 <b>Задачи</b>")
	if stats.Pending > 0 {
		b.WriteString(fmt.Sprintf(" · осталось %d", stats.Pending))
	}
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("<i>Фильтр: %s · Сортировка: %s</i>\n\n", filterLabels[filter], sortLabels[sort]))

	var buttons [][]tgbotapi.InlineKeyboardButton
	if len(projected) == 0 {
		b.WriteString("— здесь пусто. Добавь задачу через /new.\n")
		return strings.TrimSpace(b.String()), tgbotapi.NewInlineKeyboardMarkup()
	}

	for _, task := range projected {
		b.WriteString(taskLine(task, dark))

		toggleLabel := fmt.Sprintf("✅ #%d", task.ID)
		if task.Completed {
			toggleLabel = fmt.Sprintf("↩️ #%d", task.ID)
		}
		buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel, fmt.Sprintf("%s%d", cbTogglePrefix, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
		})
	}

	return strings.TrimSpace(b.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...)
}

// taskLine formats one task. The theme flag swaps the checkbox glyphs.
func taskLine(task model.Task, dark bool) string {
	box := "⬜"
	if dark {
		box = "▫️"
	}
	if task.Completed {
		box = "☑️"
		if dark {
			box = "✅"
		}
	}

	text := html.EscapeString(task.Text)
	if task.Completed {
		text = "<s>" + text + "</s>"
	}

	return fmt.Sprintf("%s %s %s <b>#%d</b> %s\n", box, colorDot(task.Color), priorityMark(task.Priority), task.ID, text)
}

// colorDot maps palette colors to circle emoji; free-form colors get a
// neutral tag.
func colorDot(hex string) string {
	switch strings.ToUpper(hex) {
	case "#4FC3F7":
		return "🔵"
	case "#E57373":
		return "🔴"
	case "#81C784":
		return "🟢"
	case "#FFD54F":
		return "🟡"
	case "#BA68C8":
		return "🟣"
	default:
		return "🏷️"
	}
}

func priorityMark(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔺"
	case model.PriorityLow:
		return "🔽"
	default:
		return "▫️"
	}
}

// renderStats formats the counters with the progress bar under them.
func renderStats(stats service.Stats) string {
	percent, tier := service.Progress(stats.Total, stats.Completed)

	var b strings.Builder
	b.WriteString("📊 <b>Статистика</b>\n")
	b.WriteString(fmt.Sprintf("Всего: %d\nВыполнено: %d\nОсталось: %d\n\n", stats.Total, stats.Completed, stats.Pending))
	b.WriteString(progressBar(percent, tier))
	return b.String()
}

// progressBar renders the fill percentage as a ten-cell bar with the
// tier's marker in front.
func progressBar(percent int, tier service.Tier) string {
	filled := percent / 10
	if filled > 10 {
		filled = 10
	}

	var icon string
	switch tier.Name {
	case service.TierComplete.Name:
		icon = "🟢"
	case service.TierHalfway.Name:
		icon = "🔵"
	default:
		icon = "🟣"
	}

	return fmt.Sprintf("%s %s%s %d%%", icon, strings.Repeat("▰", filled), strings.Repeat("▱", 10-filled), percent)
}

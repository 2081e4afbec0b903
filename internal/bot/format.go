package bot

import (
	"fmt"
	"strings"

	"github.com/khasanov/eventbot/internal/domain"
)

func formatEvent(ev *domain.Event, detailed bool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<b>%s</b>\n\n", ev.Title))
	sb.WriteString(fmt.Sprintf("📅 Date: %s\n", ev.Date))
	sb.WriteString(fmt.Sprintf("🕐 Time: %s\n", ev.Time))
	sb.WriteString(fmt.Sprintf("📍 Place: %s\n", ev.Place))

	comment := ev.Comment
	if comment == "" {
		comment = "—"
	}
	sb.WriteString(fmt.Sprintf("💬 Comment: %s", comment))

	if detailed && ev.Creator != nil {
		sb.WriteString(fmt.Sprintf("\n\n👤 Organizer: %s\n", ev.Creator.FullName))
		sb.WriteString(fmt.Sprintf("🏢 Department: %s\n", ev.Creator.Department))
		sb.WriteString(fmt.Sprintf("📱 Phone: %s", ev.Creator.Phone))
	}

	return sb.String()
}

func formatEventLine(ev *domain.Event) string {
	return fmt.Sprintf("#%d %s — %s", ev.ID, ev.FormatDateTime(), ev.Title)
}

func formatEventList(header string, events []*domain.Event) string {
	if len(events) == 0 {
		return header + "\n\nNo events."
	}

	var sb strings.Builder
	sb.WriteString(header + "\n\n")
	for _, ev := range events {
		sb.WriteString(formatEventLine(ev))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

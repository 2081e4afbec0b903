package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/khasanov/eventbot/internal/domain"
)

func mainMenuKeyboard(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		{
			tgbotapi.NewKeyboardButton("➕ New event"),
			tgbotapi.NewKeyboardButton("📋 My events"),
		},
		{
			tgbotapi.NewKeyboardButton("📅 Today"),
			tgbotapi.NewKeyboardButton("🗓 This week"),
		},
	}
	if isAdmin {
		rows = append(rows, []tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton("⚙️ Admin"),
		})
	}

	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// Department picker used during registration.
func departmentKeyboard(names []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, name := range names {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(name, "dept:"+name),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func phoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	btn := tgbotapi.NewKeyboardButtonContact("📱 Share my number")
	kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(btn))
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func confirmEventKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Publish", "confirm_event"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Discard", "discard_event"),
		),
	)
}

func eventListKeyboard(events []*domain.Event) *tgbotapi.InlineKeyboardMarkup {
	if len(events) == 0 {
		return nil
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ev := range events {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				truncate(fmt.Sprintf("%s %s — %s", ev.Date, ev.Time, ev.Title), 40),
				fmt.Sprintf("view:%d", ev.ID),
			),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func eventDetailKeyboard(eventID int64, canDelete bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", fmt.Sprintf("edit:%d", eventID)),
			tgbotapi.NewInlineKeyboardButtonData("🚫 Cancel event", fmt.Sprintf("cancelev:%d", eventID)),
		),
	}
	if canDelete {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete permanently", fmt.Sprintf("delev:%d", eventID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "back_my"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func editFieldKeyboard(eventID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Title", fmt.Sprintf("editf:%d:title", eventID)),
			tgbotapi.NewInlineKeyboardButtonData("Place", fmt.Sprintf("editf:%d:place", eventID)),
			tgbotapi.NewInlineKeyboardButtonData("Comment", fmt.Sprintf("editf:%d:comment", eventID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Date", fmt.Sprintf("editf:%d:date", eventID)),
			tgbotapi.NewInlineKeyboardButtonData("🕐 Time", fmt.Sprintf("editf:%d:time", eventID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", fmt.Sprintf("view:%d", eventID)),
		),
	)
}

func confirmCancelKeyboard(eventID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚫 Yes, cancel it", fmt.Sprintf("confirm_cancel:%d", eventID)),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", fmt.Sprintf("view:%d", eventID)),
		),
	)
}

func confirmDeleteKeyboard(eventID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Yes, delete", fmt.Sprintf("confirm_del:%d", eventID)),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", fmt.Sprintf("view:%d", eventID)),
		),
	)
}

package bot

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/khasanov/eventbot/internal/domain"
)

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	// The broadcast chat only receives announcements; dialogs live in
	// private chats.
	if chatID == b.cfg.BroadcastChatID {
		return
	}

	user, err := b.storage.GetUser(msg.From.ID)
	if err != nil {
		log.Printf("Error getting user %d: %v", msg.From.ID, err)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg, user)
		return
	}

	sess := b.sessions.get(chatID)

	// Phone can arrive as a shared contact during registration.
	if msg.Contact != nil && sess != nil && sess.step == stepRegisterPhone {
		b.completeRegistration(chatID, msg.From.ID, sess, msg.Contact.PhoneNumber)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if sess != nil && sess.step != stepNone {
		b.handleDialog(chatID, msg.From.ID, user, sess, text)
		return
	}

	if user == nil {
		b.SendMessage(chatID, "👋 You are not registered yet. Send /start to register.")
		return
	}

	// Reply-keyboard menu buttons.
	switch text {
	case "➕ New event":
		b.startNewEvent(chatID)
	case "📋 My events":
		b.showMyEvents(chatID, user.TelegramID)
	case "📅 Today":
		b.showToday(chatID)
	case "🗓 This week":
		b.showUpcoming(chatID, 7, "🗓 <b>Next 7 days</b>")
	case "⚙️ Admin":
		b.showAdminPanel(chatID, user)
	default:
		b.SendMessage(chatID, "Use the menu below or /help for commands.")
	}
}

// === Dialogs ===

func (b *Bot) handleDialog(chatID, telegramID int64, user *domain.User, sess *session, text string) {
	switch sess.step {
	case stepRegisterName:
		if len(text) < 3 {
			b.SendMessage(chatID, "Please send your full name (at least 3 characters).")
			return
		}
		sess.fullName = text
		sess.step = stepRegisterDepartment
		b.sessions.set(chatID, sess)

		departments, err := b.storage.ListDepartments(true)
		if err != nil {
			log.Printf("Error listing departments: %v", err)
			b.SendMessage(chatID, "⚠️ Something went wrong, try again later.")
			return
		}
		b.SendMessageWithKeyboard(chatID, "🏢 Choose your department:", departmentKeyboard(departments))

	case stepRegisterDepartment:
		b.SendMessage(chatID, "Please pick a department with the buttons above.")

	case stepRegisterPhone:
		phone := strings.TrimSpace(text)
		if len(phone) < 7 {
			b.SendMessage(chatID, "Please send a valid phone number, or use the button below.")
			return
		}
		b.completeRegistration(chatID, telegramID, sess, phone)

	case stepEventTitle:
		sess.draft.Title = text
		sess.step = stepEventDate
		b.sessions.set(chatID, sess)
		b.SendMessage(chatID, "📅 Event date (DD.MM.YYYY):")

	case stepEventDate:
		date, err := b.parseDate(text)
		if err != nil {
			b.SendMessage(chatID, "⚠️ Invalid date. Use DD.MM.YYYY, for example 25.12.2025.")
			return
		}
		sess.draft.Date = date
		sess.step = stepEventTime
		b.sessions.set(chatID, sess)
		b.SendMessage(chatID, "🕐 Start time (HH:MM, 24-hour):")

	case stepEventTime:
		timeStr, err := parseClock(text)
		if err != nil {
			b.SendMessage(chatID, "⚠️ Invalid time. Use HH:MM, for example 14:30.")
			return
		}
		sess.draft.Time = timeStr
		sess.step = stepEventPlace
		b.sessions.set(chatID, sess)
		b.SendMessage(chatID, "📍 Where will it take place?")

	case stepEventPlace:
		sess.draft.Place = text
		sess.step = stepEventComment
		b.sessions.set(chatID, sess)
		b.SendMessage(chatID, "💬 Any comment? Send text or /skip.")

	case stepEventComment:
		sess.draft.Comment = text
		b.showEventConfirmation(chatID, sess)

	case stepEventConfirm:
		b.SendMessage(chatID, "Please use the buttons above to publish or discard the event.")

	case stepEditValue:
		b.applyFieldEdit(chatID, sess, text)
	}
}

func (b *Bot) completeRegistration(chatID, telegramID int64, sess *session, phone string) {
	user := &domain.User{
		TelegramID: telegramID,
		FullName:   sess.fullName,
		Department: sess.department,
		Phone:      phone,
		IsAdmin:    b.cfg.IsAdmin(telegramID),
	}

	if err := b.storage.CreateUser(user); err != nil {
		log.Printf("Error registering user %d: %v", telegramID, err)
		b.SendMessage(chatID, "⚠️ Registration failed, please try /start again.")
		b.sessions.clear(chatID)
		return
	}

	b.sessions.clear(chatID)
	log.Printf("Registered user %s (ID: %d)", user.FullName, telegramID)

	text := fmt.Sprintf("✅ Registration complete!\n\n👤 %s\n🏢 %s\n📱 %s",
		user.FullName, user.Department, user.Phone)
	b.SendMessageWithKeyboard(chatID, text, mainMenuKeyboard(user.IsAdmin))
}

func (b *Bot) startNewEvent(chatID int64) {
	b.sessions.set(chatID, &session{step: stepEventTitle})
	b.SendMessage(chatID, "📝 What is the event called? (/cancel to abort)")
}

func (b *Bot) showEventConfirmation(chatID int64, sess *session) {
	sess.step = stepEventConfirm
	b.sessions.set(chatID, sess)

	text := "Please check the event:\n\n" + formatEvent(&sess.draft, false)
	b.SendMessageWithKeyboard(chatID, text, confirmEventKeyboard())
}

// applyFieldEdit finishes an edit dialog. Date and time changes go through
// UpdateEventSchedule, which also invalidates already-sent reminders.
func (b *Bot) applyFieldEdit(chatID int64, sess *session, text string) {
	ev, err := b.storage.GetEvent(sess.editEventID)
	if err != nil || ev == nil {
		b.SendMessage(chatID, "⚠️ Event not found.")
		b.sessions.clear(chatID)
		return
	}

	switch sess.editField {
	case "title":
		err = b.storage.UpdateEventTitle(ev.ID, text)
	case "place":
		err = b.storage.UpdateEventPlace(ev.ID, text)
	case "comment":
		err = b.storage.UpdateEventComment(ev.ID, text)
	case "date":
		var date string
		if date, err = b.parseDate(text); err != nil {
			b.SendMessage(chatID, "⚠️ Invalid date. Use DD.MM.YYYY.")
			return
		}
		err = b.storage.UpdateEventSchedule(ev.ID, date, ev.Time)
	case "time":
		var clock string
		if clock, err = parseClock(text); err != nil {
			b.SendMessage(chatID, "⚠️ Invalid time. Use HH:MM.")
			return
		}
		err = b.storage.UpdateEventSchedule(ev.ID, ev.Date, clock)
	default:
		b.sessions.clear(chatID)
		return
	}

	if err != nil {
		log.Printf("Error updating event %d: %v", ev.ID, err)
		b.SendMessage(chatID, "⚠️ Update failed, try again.")
		return
	}

	b.sessions.clear(chatID)

	updated, err := b.storage.GetEvent(ev.ID)
	if err != nil || updated == nil {
		b.SendMessage(chatID, "✅ Updated.")
		return
	}
	b.mirrorUpdate(updated)
	b.SendMessage(chatID, "✅ Updated.\n\n"+formatEvent(updated, false))
}

// === Callbacks ===

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID
	telegramID := callback.From.ID

	user, err := b.storage.GetUser(telegramID)
	if err != nil {
		log.Printf("Error getting user %d: %v", telegramID, err)
		return
	}

	parts := strings.SplitN(callback.Data, ":", 3)

	switch parts[0] {
	case "dept":
		if len(parts) < 2 {
			return
		}
		sess := b.sessions.get(chatID)
		if sess == nil || sess.step != stepRegisterDepartment {
			b.answerCallback(callback.ID, "")
			return
		}
		sess.department = parts[1]
		sess.step = stepRegisterPhone
		b.sessions.set(chatID, sess)
		b.answerCallback(callback.ID, "")
		b.editMessage(chatID, msgID, "🏢 Department: <b>"+sess.department+"</b>", nil)
		b.SendMessageWithKeyboard(chatID, "📱 Now share your phone number:", phoneKeyboard())

	case "confirm_event":
		b.confirmEvent(callback, chatID, msgID, telegramID, user)

	case "discard_event":
		b.sessions.clear(chatID)
		b.answerCallback(callback.ID, "Discarded")
		b.editMessage(chatID, msgID, "🗑 Event discarded.", nil)

	case "view":
		if len(parts) < 2 {
			return
		}
		b.answerCallback(callback.ID, "")
		b.showEventDetail(chatID, msgID, atoi(parts[1]), user)

	case "back_my":
		b.answerCallback(callback.ID, "")
		if user != nil {
			events, err := b.storage.ListEventsByUser(user.TelegramID)
			if err != nil {
				log.Printf("Error listing events: %v", err)
				return
			}
			b.editMessage(chatID, msgID, formatEventList("📋 <b>My events</b>", events), eventListKeyboard(events))
		}

	case "edit":
		if len(parts) < 2 {
			return
		}
		eventID := atoi(parts[1])
		if !b.mayManage(eventID, user) {
			b.answerCallback(callback.ID, "⛔ Only the organizer or an admin can edit")
			return
		}
		b.answerCallback(callback.ID, "")
		kb := editFieldKeyboard(eventID)
		b.editMessage(chatID, msgID, "✏️ Which field do you want to change?", &kb)

	case "editf":
		if len(parts) < 3 {
			return
		}
		eventID := atoi(parts[1])
		if !b.mayManage(eventID, user) {
			b.answerCallback(callback.ID, "⛔ Only the organizer or an admin can edit")
			return
		}
		b.sessions.set(chatID, &session{step: stepEditValue, editEventID: eventID, editField: parts[2]})
		b.answerCallback(callback.ID, "")
		prompt := map[string]string{
			"title":   "📝 New title:",
			"place":   "📍 New place:",
			"comment": "💬 New comment:",
			"date":    "📅 New date (DD.MM.YYYY):",
			"time":    "🕐 New time (HH:MM):",
		}[parts[2]]
		b.SendMessage(chatID, prompt)

	case "cancelev":
		if len(parts) < 2 {
			return
		}
		eventID := atoi(parts[1])
		if !b.mayManage(eventID, user) {
			b.answerCallback(callback.ID, "⛔ Only the organizer or an admin can cancel")
			return
		}
		b.answerCallback(callback.ID, "")
		kb := confirmCancelKeyboard(eventID)
		b.editMessage(chatID, msgID, "🚫 Cancel this event? The group will be notified.", &kb)

	case "confirm_cancel":
		if len(parts) < 2 {
			return
		}
		eventID := atoi(parts[1])
		if !b.mayManage(eventID, user) {
			b.answerCallback(callback.ID, "⛔ Only the organizer or an admin can cancel")
			return
		}
		if err := b.storage.CancelEvent(eventID); err != nil {
			log.Printf("Error cancelling event %d: %v", eventID, err)
			b.answerCallback(callback.ID, "⚠️ Failed")
			return
		}
		b.answerCallback(callback.ID, "🚫 Cancelled")
		b.editMessage(chatID, msgID, "🚫 Event cancelled.", nil)

		if ev, err := b.storage.GetEvent(eventID); err == nil && ev != nil {
			b.broadcastCancelled(ev)
			b.mirrorCancelled(ev)
		}

	case "delev":
		if len(parts) < 2 {
			return
		}
		eventID := atoi(parts[1])
		if user == nil || !user.IsAdmin {
			b.answerCallback(callback.ID, "⛔ Admins only")
			return
		}
		b.answerCallback(callback.ID, "")
		kb := confirmDeleteKeyboard(eventID)
		b.editMessage(chatID, msgID, "🗑 Delete this event permanently?", &kb)

	case "confirm_del":
		if len(parts) < 2 {
			return
		}
		eventID := atoi(parts[1])
		if user == nil || !user.IsAdmin {
			b.answerCallback(callback.ID, "⛔ Admins only")
			return
		}
		if err := b.storage.DeleteEvent(eventID); err != nil {
			log.Printf("Error deleting event %d: %v", eventID, err)
			b.answerCallback(callback.ID, "⚠️ Failed")
			return
		}
		b.answerCallback(callback.ID, "🗑 Deleted")
		b.editMessage(chatID, msgID, "🗑 Event deleted.", nil)
		b.mirrorDelete(eventID)
	}
}

func (b *Bot) confirmEvent(callback *tgbotapi.CallbackQuery, chatID int64, msgID int, telegramID int64, user *domain.User) {
	if user == nil {
		b.answerCallback(callback.ID, "Register with /start first")
		return
	}

	sess := b.sessions.get(chatID)
	if sess == nil || sess.step != stepEventConfirm {
		b.answerCallback(callback.ID, "")
		return
	}

	ev := sess.draft
	ev.CreatedBy = telegramID

	start, err := ev.StartInstant(b.cfg.Timezone)
	if err != nil || !start.After(time.Now().In(b.cfg.Timezone)) {
		b.answerCallback(callback.ID, "⚠️ The event must be in the future")
		return
	}

	if err := b.storage.CreateEvent(&ev); err != nil {
		log.Printf("Error creating event: %v", err)
		b.answerCallback(callback.ID, "⚠️ Failed to save")
		return
	}
	b.sessions.clear(chatID)

	b.answerCallback(callback.ID, "✅ Published!")
	b.editMessage(chatID, msgID, fmt.Sprintf("✅ Event <b>#%d</b> published.", ev.ID), nil)

	// Joined creator details for the announcement and the mirror.
	full, err := b.storage.GetEvent(ev.ID)
	if err != nil || full == nil {
		full = &ev
	}

	b.mirrorAdd(full)

	if b.engine != nil {
		if err := b.engine.NotifyCreated(full); err != nil {
			log.Printf("Error broadcasting new event %d: %v", full.ID, err)
		}
	}
}

func (b *Bot) showEventDetail(chatID int64, msgID int, eventID int64, user *domain.User) {
	ev, err := b.storage.GetEvent(eventID)
	if err != nil || ev == nil {
		b.editMessage(chatID, msgID, "⚠️ Event not found.", nil)
		return
	}

	text := formatEvent(ev, true)
	if ev.IsCancelled {
		text += "\n\n🚫 This event is cancelled."
	} else if ev.HasStarted(time.Now().In(b.cfg.Timezone), b.cfg.Timezone) {
		text += "\n\n⏳ This event has already started."
	}

	canDelete := user != nil && user.IsAdmin
	kb := eventDetailKeyboard(eventID, canDelete)
	b.editMessage(chatID, msgID, text, &kb)
}

// mayManage allows the creator and admins to edit or cancel an event.
func (b *Bot) mayManage(eventID int64, user *domain.User) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin {
		return true
	}
	ev, err := b.storage.GetEvent(eventID)
	if err != nil || ev == nil {
		return false
	}
	return ev.CreatedBy == user.TelegramID
}

// === Mirror plumbing (best effort, never blocks the dialog) ===

func (b *Bot) mirrorAdd(ev *domain.Event) {
	if b.mirror == nil || !b.mirror.IsConfigured() {
		return
	}
	if err := b.mirror.AddEvent(ev); err != nil {
		log.Printf("Error mirroring event %d: %v", ev.ID, err)
	}
}

func (b *Bot) mirrorUpdate(ev *domain.Event) {
	if b.mirror == nil || !b.mirror.IsConfigured() {
		return
	}
	if err := b.mirror.UpdateEvent(ev); err != nil {
		log.Printf("Error mirroring event %d update: %v", ev.ID, err)
	}
}

func (b *Bot) mirrorCancelled(ev *domain.Event) {
	if b.mirror == nil || !b.mirror.IsConfigured() {
		return
	}
	if err := b.mirror.MarkCancelled(ev); err != nil {
		log.Printf("Error mirroring event %d cancellation: %v", ev.ID, err)
	}
}

func (b *Bot) mirrorDelete(eventID int64) {
	if b.mirror == nil || !b.mirror.IsConfigured() {
		return
	}
	if err := b.mirror.DeleteEvent(eventID); err != nil {
		log.Printf("Error removing event %d from mirror: %v", eventID, err)
	}
}

// === Parsing helpers ===

func (b *Bot) parseDate(text string) (string, error) {
	t, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(text), b.cfg.Timezone)
	if err != nil {
		return "", err
	}
	return t.Format(domain.DateLayout), nil
}

func parseClock(text string) (string, error) {
	t, err := time.Parse(domain.TimeLayout, strings.TrimSpace(text))
	if err != nil {
		return "", err
	}
	return t.Format(domain.TimeLayout), nil
}

func atoi(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

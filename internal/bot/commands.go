package bot

import (
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/khasanov/eventbot/internal/domain"
)

func (b *Bot) handleCommand(msg *tgbotapi.Message, user *domain.User) {
	chatID := msg.Chat.ID
	cmd := msg.Command()

	// /skip is part of the event dialog; every other command abandons
	// whatever dialog was in progress.
	if cmd != "skip" {
		b.sessions.clear(chatID)
	}

	switch cmd {
	case "start":
		b.handleStart(chatID, msg.From.ID, user)
	case "help":
		b.handleHelp(chatID, user)
	case "cancel":
		b.SendMessage(chatID, "Okay, cancelled.")
	case "skip":
		b.handleSkip(chatID)
	case "newevent":
		if user == nil {
			b.SendMessage(chatID, "Register with /start first.")
			return
		}
		b.startNewEvent(chatID)
	case "myevents":
		if user == nil {
			b.SendMessage(chatID, "Register with /start first.")
			return
		}
		b.showMyEvents(chatID, user.TelegramID)
	case "today":
		b.showToday(chatID)
	case "week":
		b.showUpcoming(chatID, 7, "🗓 <b>Next 7 days</b>")
	case "month":
		b.showUpcoming(chatID, 30, "📆 <b>Next 30 days</b>")
	case "stats":
		b.requireAdmin(chatID, user, b.showStats)
	case "users":
		b.requireAdmin(chatID, user, b.showUsers)
	case "departments":
		b.requireAdmin(chatID, user, b.showDepartments)
	case "adddept":
		b.requireAdmin(chatID, user, func(chatID int64) {
			b.addDepartment(chatID, msg.CommandArguments())
		})
	case "deldept":
		b.requireAdmin(chatID, user, func(chatID int64) {
			b.removeDepartment(chatID, msg.CommandArguments())
		})
	default:
		b.SendMessage(chatID, "Unknown command. Send /help for the list.")
	}
}

func (b *Bot) handleStart(chatID, telegramID int64, user *domain.User) {
	if user != nil {
		text := fmt.Sprintf("👋 Welcome back, <b>%s</b>!", user.FullName)
		b.SendMessageWithKeyboard(chatID, text, mainMenuKeyboard(user.IsAdmin))
		return
	}

	b.sessions.set(chatID, &session{step: stepRegisterName})
	b.SendMessage(chatID, "👋 Welcome! Let's get you registered.\n\n📝 What is your full name?")
}

func (b *Bot) handleHelp(chatID int64, user *domain.User) {
	var sb strings.Builder
	sb.WriteString("<b>Commands</b>\n\n")
	sb.WriteString("/newevent — add an event\n")
	sb.WriteString("/myevents — events you organize\n")
	sb.WriteString("/today — today's events\n")
	sb.WriteString("/week — events in the next 7 days\n")
	sb.WriteString("/month — events in the next 30 days\n")
	sb.WriteString("/cancel — abandon the current dialog\n")

	if user != nil && user.IsAdmin {
		sb.WriteString("\n<b>Admin</b>\n\n")
		sb.WriteString("/stats — event counts by department\n")
		sb.WriteString("/users — registered users\n")
		sb.WriteString("/departments — department list\n")
		sb.WriteString("/adddept &lt;name&gt; — add a department\n")
		sb.WriteString("/deldept &lt;name&gt; — retire a department\n")
	}

	b.SendMessage(chatID, sb.String())
}

// handleSkip leaves the event comment empty and moves to confirmation.
func (b *Bot) handleSkip(chatID int64) {
	sess := b.sessions.get(chatID)
	if sess == nil || sess.step != stepEventComment {
		b.SendMessage(chatID, "Nothing to skip right now.")
		return
	}
	sess.draft.Comment = ""
	b.showEventConfirmation(chatID, sess)
}

// === Listings ===

func (b *Bot) showMyEvents(chatID, telegramID int64) {
	events, err := b.storage.ListEventsByUser(telegramID)
	if err != nil {
		log.Printf("Error listing events for user %d: %v", telegramID, err)
		b.SendMessage(chatID, "⚠️ Could not load your events.")
		return
	}

	text := formatEventList("📋 <b>My events</b>", events)
	if kb := eventListKeyboard(events); kb != nil {
		b.SendMessageWithKeyboard(chatID, text, *kb)
		return
	}
	b.SendMessage(chatID, text)
}

func (b *Bot) showToday(chatID int64) {
	today := time.Now().In(b.cfg.Timezone).Format(domain.DateLayout)

	events, err := b.storage.ListEventsByDate(today)
	if err != nil {
		log.Printf("Error listing today's events: %v", err)
		b.SendMessage(chatID, "⚠️ Could not load events.")
		return
	}
	b.SendMessage(chatID, formatEventList("📅 <b>Today, "+today+"</b>", events))
}

func (b *Bot) showUpcoming(chatID int64, days int, header string) {
	events, err := b.storage.ListLiveEvents()
	if err != nil {
		log.Printf("Error listing events: %v", err)
		b.SendMessage(chatID, "⚠️ Could not load events.")
		return
	}

	now := time.Now().In(b.cfg.Timezone)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.cfg.Timezone)
	rangeEnd := dayStart.AddDate(0, 0, days)

	var upcoming []*domain.Event
	for _, ev := range events {
		start, err := ev.StartInstant(b.cfg.Timezone)
		if err != nil {
			continue
		}
		if !start.Before(dayStart) && start.Before(rangeEnd) {
			upcoming = append(upcoming, ev)
		}
	}

	b.SendMessage(chatID, formatEventList(header, upcoming))
}

// === Admin ===

func (b *Bot) requireAdmin(chatID int64, user *domain.User, fn func(chatID int64)) {
	if user == nil || !user.IsAdmin {
		b.SendMessage(chatID, "⛔ Admins only.")
		return
	}
	fn(chatID)
}

func (b *Bot) showAdminPanel(chatID int64, user *domain.User) {
	if user == nil || !user.IsAdmin {
		b.SendMessage(chatID, "⛔ Admins only.")
		return
	}
	b.SendMessage(chatID, "⚙️ <b>Admin</b>\n\n"+
		"/stats — event counts by department\n"+
		"/users — registered users\n"+
		"/departments — department list\n"+
		"/adddept &lt;name&gt;\n"+
		"/deldept &lt;name&gt;")
}

func (b *Bot) showStats(chatID int64) {
	totalEvents, err := b.storage.CountEvents()
	if err != nil {
		log.Printf("Error counting events: %v", err)
		b.SendMessage(chatID, "⚠️ Could not load statistics.")
		return
	}
	totalUsers, err := b.storage.CountUsers()
	if err != nil {
		log.Printf("Error counting users: %v", err)
		b.SendMessage(chatID, "⚠️ Could not load statistics.")
		return
	}
	stats, err := b.storage.CountEventsByDepartment()
	if err != nil {
		log.Printf("Error counting events by department: %v", err)
		b.SendMessage(chatID, "⚠️ Could not load statistics.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Statistics</b>\n\n")
	sb.WriteString(fmt.Sprintf("Events: %d\nUsers: %d\n", totalEvents, totalUsers))
	if len(stats) > 0 {
		sb.WriteString("\n<b>Events by department</b>\n")
		for _, st := range stats {
			sb.WriteString(fmt.Sprintf("• %s: %d\n", st.Department, st.EventCount))
		}
	}
	b.SendMessage(chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) showUsers(chatID int64) {
	users, err := b.storage.ListUsers()
	if err != nil {
		log.Printf("Error listing users: %v", err)
		b.SendMessage(chatID, "⚠️ Could not load users.")
		return
	}
	if len(users) == 0 {
		b.SendMessage(chatID, "No registered users yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👥 <b>Users (%d)</b>\n\n", len(users)))
	for _, u := range users {
		line := fmt.Sprintf("• %s — %s, %s", u.FullName, u.Department, u.Phone)
		if u.IsAdmin {
			line += " ⭐"
		}
		sb.WriteString(line + "\n")
	}
	b.SendMessage(chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) showDepartments(chatID int64) {
	names, err := b.storage.ListDepartments(true)
	if err != nil {
		log.Printf("Error listing departments: %v", err)
		b.SendMessage(chatID, "⚠️ Could not load departments.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏢 <b>Departments</b>\n\n")
	for _, name := range names {
		sb.WriteString("• " + name + "\n")
	}
	b.SendMessage(chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) addDepartment(chatID int64, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		b.SendMessage(chatID, "Usage: /adddept &lt;name&gt;")
		return
	}
	if err := b.storage.AddDepartment(name); err != nil {
		log.Printf("Error adding department %q: %v", name, err)
		b.SendMessage(chatID, "⚠️ Could not add the department.")
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("✅ Department <b>%s</b> added.", name))
}

func (b *Bot) removeDepartment(chatID int64, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		b.SendMessage(chatID, "Usage: /deldept &lt;name&gt;")
		return
	}
	if err := b.storage.RemoveDepartment(name); err != nil {
		log.Printf("Error removing department %q: %v", name, err)
		b.SendMessage(chatID, "⚠️ Could not remove the department.")
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("✅ Department <b>%s</b> retired.", name))
}

package bot

import (
	"fmt"
	"log"

	"github.com/khasanov/eventbot/internal/domain"
	"github.com/khasanov/eventbot/internal/reminder"
)

// The bot is the reminder engine's Notifier: both message kinds go to the
// shared broadcast chat.

func (b *Bot) SendDueReminder(ev *domain.Event, lead reminder.LeadTime) error {
	text := "🔔 <b>Event reminder!</b>\n\n" +
		formatEvent(ev, true) +
		fmt.Sprintf("\n\n⏰ <b>%s</b> to go!", lead.Human())
	return b.SendMessage(b.cfg.BroadcastChatID, text)
}

func (b *Bot) SendCreated(ev *domain.Event) error {
	text := "📢 <b>New event added!</b>\n\n" + formatEvent(ev, true)
	return b.SendMessage(b.cfg.BroadcastChatID, text)
}

func (b *Bot) broadcastCancelled(ev *domain.Event) {
	text := "❌ <b>Event cancelled</b>\n\n" + formatEvent(ev, false)
	if err := b.SendMessage(b.cfg.BroadcastChatID, text); err != nil {
		// Cancellation already took effect in storage; the notice is best
		// effort.
		log.Printf("Error broadcasting cancellation for event %d: %v", ev.ID, err)
	}
}

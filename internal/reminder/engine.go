package reminder

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/khasanov/eventbot/internal/domain"
)

// Store is the slice of the event store the engine needs: the live event
// list plus the sent-log that makes delivery idempotent. A recorded
// (event, lead time) pair is never resent.
type Store interface {
	ListLiveEvents() ([]*domain.Event, error)
	IsReminderSent(eventID int64, label string) (bool, error)
	RecordReminderSent(eventID int64, label string) error
}

// Notifier renders and delivers messages to the broadcast destination.
type Notifier interface {
	SendDueReminder(event *domain.Event, lead LeadTime) error
	SendCreated(event *domain.Event) error
}

// Engine runs the periodic reminder scan. All dependencies are injected;
// the clock is a field so tests can drive time explicitly.
type Engine struct {
	store    Store
	notifier Notifier
	leads    []LeadTime
	catchUp  time.Duration
	location *time.Location
	now      func() time.Time

	// Serializes scans. Two concurrent scans could both observe a pair as
	// unsent and both dispatch before either records it.
	mu sync.Mutex
}

func NewEngine(store Store, notifier Notifier, leads []LeadTime, catchUp time.Duration, loc *time.Location) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		leads:    leads,
		catchUp:  catchUp,
		location: loc,
		now:      time.Now,
	}
}

// Scan walks every live event once and dispatches whatever reminders have
// become due since the last pass. Calling it again at the same or a later
// instant never double-sends: the second pass observes the records written
// by the first.
//
// A returned error means the scan aborted on a storage failure and should
// simply be retried on the next tick.
func (e *Engine) Scan() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().In(e.location)

	events, err := e.store.ListLiveEvents()
	if err != nil {
		return fmt.Errorf("list live events: %w", err)
	}

	for _, ev := range events {
		if err := e.scanEvent(ev, now); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) scanEvent(ev *domain.Event, now time.Time) error {
	start, err := ev.StartInstant(e.location)
	if err != nil {
		// One malformed record must not block reminders for everyone else.
		log.Printf("Skipping event %d: bad schedule %q %q: %v", ev.ID, ev.Date, ev.Time, err)
		return nil
	}

	for _, lead := range DueLeadTimes(now, start, e.leads, e.catchUp) {
		sent, err := e.store.IsReminderSent(ev.ID, lead.Label)
		if err != nil {
			// Proceeding with an unreadable sent-log risks a double send;
			// abort the rest of this scan and retry whole next tick.
			return fmt.Errorf("check sent-log for event %d: %w", ev.ID, err)
		}
		if sent {
			continue
		}

		if err := e.notifier.SendDueReminder(ev, lead); err != nil {
			// Leave the pair unsent so the next scan retries. The start-time
			// cutoff in the evaluator bounds how long we keep trying.
			log.Printf("Error sending %s reminder for event %d: %v", lead.Label, ev.ID, err)
			continue
		}

		if err := e.store.RecordReminderSent(ev.ID, lead.Label); err != nil {
			return fmt.Errorf("record %s reminder for event %d: %w", lead.Label, ev.ID, err)
		}
	}
	return nil
}

// NotifyCreated broadcasts a just-created event, outside the periodic scan.
// Called exactly once per creation by the front-end.
func (e *Engine) NotifyCreated(ev *domain.Event) error {
	return e.notifier.SendCreated(ev)
}

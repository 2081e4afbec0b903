package reminder

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khasanov/eventbot/internal/domain"
)

type fakeStore struct {
	events   []*domain.Event
	sent     map[string]bool
	listErr  error
	readErr  error
	writeErr error
}

func newFakeStore(events ...*domain.Event) *fakeStore {
	return &fakeStore{events: events, sent: make(map[string]bool)}
}

func sentKey(eventID int64, label string) string {
	return fmt.Sprintf("%d/%s", eventID, label)
}

func (s *fakeStore) ListLiveEvents() ([]*domain.Event, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var live []*domain.Event
	for _, ev := range s.events {
		if !ev.IsCancelled {
			live = append(live, ev)
		}
	}
	return live, nil
}

func (s *fakeStore) IsReminderSent(eventID int64, label string) (bool, error) {
	if s.readErr != nil {
		return false, s.readErr
	}
	return s.sent[sentKey(eventID, label)], nil
}

func (s *fakeStore) RecordReminderSent(eventID int64, label string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.sent[sentKey(eventID, label)] = true
	return nil
}

func (s *fakeStore) clearReminders(eventID int64) {
	for key := range s.sent {
		var id int64
		var label string
		fmt.Sscanf(key, "%d/%s", &id, &label)
		if id == eventID {
			delete(s.sent, key)
		}
	}
}

type fakeNotifier struct {
	delivered []string // "eventID/label" in dispatch order
	created   []int64
	failLabel string // dispatch fails for this label while set
}

func (n *fakeNotifier) SendDueReminder(ev *domain.Event, lead LeadTime) error {
	if lead.Label == n.failLabel {
		return errors.New("telegram unreachable")
	}
	n.delivered = append(n.delivered, sentKey(ev.ID, lead.Label))
	return nil
}

func (n *fakeNotifier) SendCreated(ev *domain.Event) error {
	n.created = append(n.created, ev.ID)
	return nil
}

func testEvent(id int64, start time.Time) *domain.Event {
	return &domain.Event{
		ID:    id,
		Title: fmt.Sprintf("Event %d", id),
		Date:  start.Format(domain.DateLayout),
		Time:  start.Format(domain.TimeLayout),
		Place: "Main hall",
	}
}

func newTestEngine(store Store, notifier Notifier, at time.Time) *Engine {
	e := NewEngine(store, notifier, testLeads, time.Hour, time.UTC)
	e.now = func() time.Time { return at }
	return e
}

func TestScan_NoDuplicateSends(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	store := newFakeStore(testEvent(1, start))
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, notifier, start.Add(-time.Hour))

	require.NoError(t, engine.Scan())
	require.NoError(t, engine.Scan())

	// A later scan inside the same window must also observe the record.
	engine.now = func() time.Time { return start.Add(-30 * time.Minute) }
	require.NoError(t, engine.Scan())

	assert.Equal(t, []string{"1/60m_before"}, notifier.delivered)
}

func TestScan_NothingPremature(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	store := newFakeStore(testEvent(1, start))
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, notifier, start.Add(-25*time.Hour))

	require.NoError(t, engine.Scan())
	assert.Empty(t, notifier.delivered)
}

func TestScan_NothingAfterStart(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	store := newFakeStore(testEvent(1, start))
	notifier := &fakeNotifier{}

	// The 10m reminder instant is only 15 minutes in the past, well inside
	// the catch-up window, but the event itself has started.
	engine := newTestEngine(store, notifier, start.Add(5*time.Minute))

	require.NoError(t, engine.Scan())
	assert.Empty(t, notifier.delivered)
}

func TestScan_DispatchFailureRetriedNextScan(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	store := newFakeStore(testEvent(1, start))
	notifier := &fakeNotifier{failLabel: "60m_before"}
	engine := newTestEngine(store, notifier, start.Add(-time.Hour))

	// Dispatch fails: no record is written, the scan itself still succeeds.
	require.NoError(t, engine.Scan())
	assert.Empty(t, notifier.delivered)
	assert.Empty(t, store.sent)

	// Transport recovers, next tick delivers the same pair.
	notifier.failLabel = ""
	engine.now = func() time.Time { return start.Add(-55 * time.Minute) }
	require.NoError(t, engine.Scan())
	assert.Equal(t, []string{"1/60m_before"}, notifier.delivered)
}

func TestScan_SentLogFailureAbortsScan(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	store := newFakeStore(testEvent(1, start))
	store.readErr = errors.New("database is locked")
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, notifier, start.Add(-time.Hour))

	require.Error(t, engine.Scan())
	assert.Empty(t, notifier.delivered, "must not dispatch blind when the sent-log is unreadable")

	store.readErr = nil
	require.NoError(t, engine.Scan())
	assert.Equal(t, []string{"1/60m_before"}, notifier.delivered)
}

func TestScan_ListFailureAbortsScan(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("database is locked")
	engine := newTestEngine(store, &fakeNotifier{}, time.Now())

	require.Error(t, engine.Scan())
}

func TestScan_MalformedEventDoesNotBlockOthers(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	broken := testEvent(1, start)
	broken.Date = "tomorrow"
	store := newFakeStore(broken, testEvent(2, start))
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, notifier, start.Add(-time.Hour))

	require.NoError(t, engine.Scan())
	assert.Equal(t, []string{"2/60m_before"}, notifier.delivered)
}

func TestScan_CancelledEventSuppressed(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	ev := testEvent(1, start)
	store := newFakeStore(ev)
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, notifier, start.Add(-25*time.Hour))

	require.NoError(t, engine.Scan())
	require.Empty(t, notifier.delivered)

	// Cancelled before the 24h reminder became due: never heard from again.
	ev.IsCancelled = true
	engine.now = func() time.Time { return start.Add(-24 * time.Hour) }
	require.NoError(t, engine.Scan())
	assert.Empty(t, notifier.delivered)
}

func TestScan_RescheduleMakesRemindersResendable(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	ev := testEvent(1, start)
	store := newFakeStore(ev)
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, notifier, start.Add(-24*time.Hour))

	require.NoError(t, engine.Scan())
	require.Equal(t, []string{"1/1440m_before"}, notifier.delivered)

	// The edit flow moves the event two hours later and clears its records.
	newStart := start.Add(2 * time.Hour)
	ev.Date = newStart.Format(domain.DateLayout)
	ev.Time = newStart.Format(domain.TimeLayout)
	store.clearReminders(ev.ID)

	engine.now = func() time.Time { return newStart.Add(-24 * time.Hour) }
	require.NoError(t, engine.Scan())
	assert.Equal(t, []string{"1/1440m_before", "1/1440m_before"}, notifier.delivered)
}

func TestScan_CatchUpOrderingWithinOnePass(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	store := newFakeStore(testEvent(1, start))
	notifier := &fakeNotifier{}

	// First observation 5 minutes before start with a wide window: every
	// lead time except 24h is due, longest first.
	engine := NewEngine(store, notifier,
		NormalizeLeadTimes([]time.Duration{10 * time.Minute, time.Hour, 30 * time.Minute}),
		2*time.Hour, time.UTC)
	engine.now = func() time.Time { return start.Add(-5 * time.Minute) }

	require.NoError(t, engine.Scan())
	assert.Equal(t, []string{"1/60m_before", "1/30m_before", "1/10m_before"}, notifier.delivered)
}

func TestNotifyCreated(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, notifier, time.Now())

	ev := testEvent(7, time.Now().Add(48*time.Hour))
	require.NoError(t, engine.NotifyCreated(ev))
	assert.Equal(t, []int64{7}, notifier.created)
}

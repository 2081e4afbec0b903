package mirror

import (
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khasanov/eventbot/internal/domain"
)

func testMirror(t *testing.T) *Mirror {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tashkent")
	require.NoError(t, err)
	return New("https://dav.example.com", "bot", "secret", "/calendars/events/", loc)
}

func TestEventUID_Stable(t *testing.T) {
	assert.Equal(t, "event-42@eventbot", EventUID(42))
	assert.Equal(t, EventUID(7), EventUID(7))
}

func TestEventPath(t *testing.T) {
	m := testMirror(t)
	assert.Equal(t, "/calendars/events/event-5@eventbot.ics", m.eventPath(5))

	// Path without trailing slash gets one.
	m.calendarPath = "/calendars/events"
	assert.Equal(t, "/calendars/events/event-5@eventbot.ics", m.eventPath(5))
}

func TestIsConfigured(t *testing.T) {
	m := testMirror(t)
	assert.True(t, m.IsConfigured())

	empty := New("", "", "", "", time.UTC)
	assert.False(t, empty.IsConfigured())
}

func TestEventToICS(t *testing.T) {
	m := testMirror(t)

	ev := &domain.Event{
		ID:      12,
		Title:   "Graduation ceremony",
		Date:    "25.12.2025",
		Time:    "14:30",
		Place:   "Main hall",
		Comment: "Formal dress",
		Creator: &domain.User{
			FullName:   "Aziz Karimov",
			Department: "Academic Affairs",
			Phone:      "+998901234567",
		},
	}

	cal, err := m.eventToICS(ev, false)
	require.NoError(t, err)
	require.Len(t, cal.Children, 1)

	vevent := cal.Children[0]
	assert.Equal(t, ical.CompEvent, vevent.Name)
	assert.Equal(t, "event-12@eventbot", vevent.Props.Get(ical.PropUID).Value)
	assert.Equal(t, "Graduation ceremony", vevent.Props.Get(ical.PropSummary).Value)
	assert.Equal(t, "Main hall", vevent.Props.Get(ical.PropLocation).Value)
	assert.Nil(t, vevent.Props.Get(ical.PropStatus))

	start, err := vevent.Props.Get(ical.PropDateTimeStart).DateTime(time.UTC)
	require.NoError(t, err)
	want, err := ev.StartInstant(m.location)
	require.NoError(t, err)
	assert.True(t, start.Equal(want))

	desc := vevent.Props.Get(ical.PropDescription).Value
	assert.Contains(t, desc, "Formal dress")
	assert.Contains(t, desc, "Aziz Karimov")
}

func TestEventToICS_Cancelled(t *testing.T) {
	m := testMirror(t)

	ev := &domain.Event{ID: 3, Title: "Seminar", Date: "01.06.2026", Time: "10:00", Place: "Room 101"}

	cal, err := m.eventToICS(ev, true)
	require.NoError(t, err)

	vevent := cal.Children[0]
	assert.Equal(t, "CANCELLED", vevent.Props.Get(ical.PropStatus).Value)
}

func TestEventToICS_BadSchedule(t *testing.T) {
	m := testMirror(t)

	ev := &domain.Event{ID: 4, Title: "Broken", Date: "not-a-date", Time: "10:00"}
	_, err := m.eventToICS(ev, false)
	assert.Error(t, err)
}

func icsEvent(uid string, start time.Time, props map[string]string) *ical.Component {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetDateTime(ical.PropDateTimeStart, start)
	for name, value := range props {
		vevent.Props.SetText(name, value)
	}
	return vevent.Component
}

func TestMarkPastTransparent(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//test//EN")
	cal.Children = append(cal.Children,
		icsEvent("past@test", now.Add(-48*time.Hour), nil),
		icsEvent("future@test", now.Add(48*time.Hour), nil),
		icsEvent("cancelled@test", now.Add(-48*time.Hour), map[string]string{ical.PropStatus: "CANCELLED"}),
		icsEvent("already@test", now.Add(-48*time.Hour), map[string]string{ical.PropTransparency: "TRANSPARENT"}),
	)

	changed := markPastTransparent(cal, now)
	assert.True(t, changed)

	byUID := map[string]*ical.Component{}
	for _, comp := range cal.Children {
		byUID[comp.Props.Get(ical.PropUID).Value] = comp
	}

	assert.Equal(t, "TRANSPARENT", byUID["past@test"].Props.Get(ical.PropTransparency).Value)
	assert.Nil(t, byUID["future@test"].Props.Get(ical.PropTransparency))
	assert.Nil(t, byUID["cancelled@test"].Props.Get(ical.PropTransparency))

	// Second pass finds nothing left to do.
	changed = markPastTransparent(cal, now)
	assert.False(t, changed)
}

// Package mirror keeps a shared CalDAV calendar in step with the event
// table for record-keeping: every event gets a VEVENT keyed by a
// deterministic UID, cancellations are marked STATUS:CANCELLED, and a
// daily housekeeping pass greys out past entries by making them
// transparent. The mirror is strictly one-way and optional; it shares no
// state with the reminder engine beyond reading the same event records.
package mirror

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"github.com/khasanov/eventbot/internal/domain"
)

type Mirror struct {
	baseURL      string
	username     string
	password     string
	calendarPath string
	location     *time.Location
	client       *caldav.Client
}

func New(baseURL, username, password, calendarPath string, loc *time.Location) *Mirror {
	return &Mirror{
		baseURL:      baseURL,
		username:     username,
		password:     password,
		calendarPath: calendarPath,
		location:     loc,
	}
}

// IsConfigured returns true if the mirror has credentials.
func (m *Mirror) IsConfigured() bool {
	return m.baseURL != "" && m.username != "" && m.password != ""
}

func (m *Mirror) connect() (*caldav.Client, error) {
	if m.client != nil {
		return m.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: m.username,
			password: m.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, m.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	m.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// EventUID derives the stable mirror identity of an event from its id, so
// edits and deletions always address the same calendar object.
func EventUID(eventID int64) string {
	return fmt.Sprintf("event-%d@eventbot", eventID)
}

func (m *Mirror) eventPath(eventID int64) string {
	path := m.calendarPath
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + EventUID(eventID) + ".ics"
}

// AddEvent writes a fresh VEVENT for the event.
func (m *Mirror) AddEvent(ev *domain.Event) error {
	return m.put(ev, false)
}

// UpdateEvent re-puts the event; for CalDAV an update is a replacing PUT.
func (m *Mirror) UpdateEvent(ev *domain.Event) error {
	return m.put(ev, false)
}

// MarkCancelled rewrites the event with STATUS:CANCELLED, the red-entry
// analog of the original record book.
func (m *Mirror) MarkCancelled(ev *domain.Event) error {
	return m.put(ev, true)
}

func (m *Mirror) put(ev *domain.Event, cancelled bool) error {
	client, err := m.connect()
	if err != nil {
		return err
	}

	cal, err := m.eventToICS(ev, cancelled)
	if err != nil {
		return err
	}

	if _, err := client.PutCalendarObject(context.Background(), m.eventPath(ev.ID), cal); err != nil {
		return fmt.Errorf("put event %d: %w", ev.ID, err)
	}
	return nil
}

// DeleteEvent removes the event's calendar object.
func (m *Mirror) DeleteEvent(eventID int64) error {
	client, err := m.connect()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(context.Background(), m.eventPath(eventID)); err != nil {
		return fmt.Errorf("delete event %d: %w", eventID, err)
	}
	return nil
}

// ReorganizePast is the daily housekeeping pass: every mirrored event that
// has already started, and is not cancelled, is made TRANSP:TRANSPARENT so
// it fades out of free-busy views while staying on record.
func (m *Mirror) ReorganizePast(now time.Time) error {
	client, err := m.connect()
	if err != nil {
		return err
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{
				{
					Name:  ical.CompEvent,
					Start: now.AddDate(-1, 0, 0),
					End:   now,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(context.Background(), m.calendarPath, query)
	if err != nil {
		return fmt.Errorf("query calendar: %w", err)
	}

	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		if !markPastTransparent(obj.Data, now) {
			continue
		}
		if _, err := client.PutCalendarObject(context.Background(), obj.Path, obj.Data); err != nil {
			return fmt.Errorf("update %s: %w", obj.Path, err)
		}
	}
	return nil
}

// markPastTransparent reports whether the calendar was changed.
func markPastTransparent(cal *ical.Calendar, now time.Time) bool {
	changed := false
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		if prop := comp.Props.Get(ical.PropStatus); prop != nil && prop.Value == "CANCELLED" {
			continue // cancelled entries keep their marking
		}
		startProp := comp.Props.Get(ical.PropDateTimeStart)
		if startProp == nil {
			continue
		}
		start, err := startProp.DateTime(time.UTC)
		if err != nil || !start.Before(now) {
			continue
		}
		if prop := comp.Props.Get(ical.PropTransparency); prop != nil && prop.Value == "TRANSPARENT" {
			continue
		}
		comp.Props.SetText(ical.PropTransparency, "TRANSPARENT")
		changed = true
	}
	return changed
}

func (m *Mirror) eventToICS(ev *domain.Event, cancelled bool) (*ical.Calendar, error) {
	start, err := ev.StartInstant(m.location)
	if err != nil {
		return nil, fmt.Errorf("event %d schedule: %w", ev.ID, err)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//EventBot//CalDAV Mirror//EN")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, EventUID(ev.ID))
	vevent.Props.SetText(ical.PropSummary, ev.Title)
	vevent.Props.SetText(ical.PropLocation, ev.Place)
	vevent.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	description := ev.Comment
	if ev.Creator != nil {
		contact := fmt.Sprintf("Organizer: %s (%s, %s)", ev.Creator.FullName, ev.Creator.Department, ev.Creator.Phone)
		if description != "" {
			description += "\n"
		}
		description += contact
	}
	if description != "" {
		vevent.Props.SetText(ical.PropDescription, description)
	}

	if cancelled {
		vevent.Props.SetText(ical.PropStatus, "CANCELLED")
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal, nil
}

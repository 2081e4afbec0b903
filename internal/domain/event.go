package domain

import "time"

const (
	DateLayout = "02.01.2006"
	TimeLayout = "15:04"
)

// Event is an organization event announced through the bot.
// Date and Time are stored as the user entered them (DD.MM.YYYY and HH:MM,
// 24-hour) and only become an instant in the deployment time zone.
type Event struct {
	ID          int64
	Title       string
	Date        string
	Time        string
	Place       string
	Comment     string
	CreatedBy   int64 // telegram id of the creator
	Creator     *User // joined creator details, may be nil
	IsCancelled bool
	CreatedAt   time.Time
}

// StartInstant combines the event's date and time into a single instant in
// the given location.
func (e *Event) StartInstant(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.Time, loc)
}

// HasStarted reports whether the event start has been reached.
func (e *Event) HasStarted(now time.Time, loc *time.Location) bool {
	start, err := e.StartInstant(loc)
	if err != nil {
		return false
	}
	return !now.Before(start)
}

// FormatDateTime returns the schedule for display.
func (e *Event) FormatDateTime() string {
	return e.Date + " " + e.Time
}

package reminder

import (
	"fmt"
	"sort"
	"time"
)

// LeadTime is a configured duration before an event's start at which a
// reminder fires. Label is the stable identity recorded in the sent-log;
// it is derived from whole minutes, never from display formatting, so it
// survives restarts and configuration reloads.
type LeadTime struct {
	Before time.Duration
	Label  string
}

func NewLeadTime(before time.Duration) LeadTime {
	return LeadTime{
		Before: before,
		Label:  fmt.Sprintf("%dm_before", int64(before/time.Minute)),
	}
}

// Human returns a readable form for messages ("1 day", "3 hours", "30 minutes").
func (lt LeadTime) Human() string {
	d := lt.Before
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		days := int64(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	case d >= time.Hour && d%time.Hour == 0:
		hours := int64(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	default:
		return fmt.Sprintf("%d minutes", int64(d/time.Minute))
	}
}

// NormalizeLeadTimes turns the configured durations into the canonical set:
// sorted longest-first and deduplicated by label. Longest-first means that
// when several lead times land in the same scan, the warning nearest to the
// event start is dispatched last, keeping the chronological reading order in
// the broadcast chat. A duplicated configuration entry collapses to one
// label and therefore cannot double-send.
func NormalizeLeadTimes(durations []time.Duration) []LeadTime {
	seen := make(map[string]bool)
	var leads []LeadTime
	for _, d := range durations {
		lt := NewLeadTime(d)
		if seen[lt.Label] {
			continue
		}
		seen[lt.Label] = true
		leads = append(leads, lt)
	}
	sort.Slice(leads, func(i, j int) bool {
		return leads[i].Before > leads[j].Before
	})
	return leads
}

// DueLeadTimes reports which lead times are due at now for an event
// starting at start. It is pure: the sent-log check belongs to the caller.
//
// A lead time L with reminder instant R = start-L is due when R <= now <=
// R+catchUp (both bounds inclusive). Anything more than catchUp past its
// reminder instant was missed during an outage and is dropped rather than
// sent stale. Once the event itself has started nothing is due, whatever
// is still unsent. This makes a zero lead time unreachable under polling;
// it must not appear in the default configuration.
func DueLeadTimes(now, start time.Time, leads []LeadTime, catchUp time.Duration) []LeadTime {
	if !now.Before(start) {
		return nil
	}

	var due []LeadTime
	for _, lt := range leads {
		remindAt := start.Add(-lt.Before)
		if now.Before(remindAt) {
			continue
		}
		if now.Sub(remindAt) > catchUp {
			continue
		}
		due = append(due, lt)
	}
	return due
}

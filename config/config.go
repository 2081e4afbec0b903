package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken   string
	BroadcastChatID int64
	AdminIDs        []int64
	DatabasePath    string
	Timezone        *time.Location

	// Reminder policy. CatchUpWindow bounds how late a due reminder may
	// still be sent and must be at least ScanInterval, or a reminder whose
	// instant falls between two ticks could be silently dropped.
	LeadTimes     []time.Duration
	ScanInterval  time.Duration
	CatchUpWindow time.Duration

	// HH:MM local time of the daily mirror housekeeping pass.
	HousekeepingTime string

	WebhookURL string
	ServerPort string

	// Optional CalDAV mirror of the event table.
	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
}

func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	broadcastID, err := strconv.ParseInt(os.Getenv("BROADCAST_CHAT_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("BROADCAST_CHAT_ID is required and must be a number")
	}

	var adminIDs []int64
	for _, part := range strings.Split(os.Getenv("ADMIN_USER_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_USER_IDS entry %q", part)
		}
		adminIDs = append(adminIDs, id)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/eventbot.db"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "Asia/Tashkent"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	leadTimes, err := parseLeadTimes(os.Getenv("REMINDER_LEAD_TIMES"))
	if err != nil {
		return nil, err
	}

	scanInterval, err := durationEnv("SCAN_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	catchUp, err := durationEnv("CATCH_UP_WINDOW", time.Hour)
	if err != nil {
		return nil, err
	}
	if catchUp < scanInterval {
		return nil, fmt.Errorf("CATCH_UP_WINDOW (%s) must be at least SCAN_INTERVAL (%s)", catchUp, scanInterval)
	}

	housekeeping := os.Getenv("HOUSEKEEPING_TIME")
	if housekeeping == "" {
		housekeeping = "00:05"
	}
	if _, err := time.Parse("15:04", housekeeping); err != nil {
		return nil, fmt.Errorf("invalid HOUSEKEEPING_TIME %q: %w", housekeeping, err)
	}

	webhookURL := os.Getenv("WEBHOOK_URL")
	if webhookURL == "" {
		return nil, fmt.Errorf("WEBHOOK_URL is required")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	return &Config{
		TelegramToken:    token,
		BroadcastChatID:  broadcastID,
		AdminIDs:         adminIDs,
		DatabasePath:     dbPath,
		Timezone:         tz,
		LeadTimes:        leadTimes,
		ScanInterval:     scanInterval,
		CatchUpWindow:    catchUp,
		HousekeepingTime: housekeeping,
		WebhookURL:       webhookURL,
		ServerPort:       serverPort,
		CalDAVURL:        os.Getenv("CALDAV_URL"),
		CalDAVUsername:   os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:   os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendar:   os.Getenv("CALDAV_CALENDAR_PATH"),
	}, nil
}

// parseLeadTimes reads a comma-separated duration list ("24h,3h,1h").
// An empty lead-time set would make the whole deployment pointless, so it
// is rejected at startup.
func parseLeadTimes(value string) ([]time.Duration, error) {
	if value == "" {
		value = "24h,3h,1h"
	}

	var leadTimes []time.Duration
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, fmt.Errorf("invalid REMINDER_LEAD_TIMES entry %q: %w", part, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("REMINDER_LEAD_TIMES entry %q must not be negative", part)
		}
		leadTimes = append(leadTimes, d)
	}
	if len(leadTimes) == 0 {
		return nil, fmt.Errorf("REMINDER_LEAD_TIMES must contain at least one duration")
	}
	return leadTimes, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// MirrorConfigured reports whether the CalDAV mirror has credentials.
func (c *Config) MirrorConfigured() bool {
	return c.CalDAVURL != "" && c.CalDAVUsername != "" && c.CalDAVPassword != ""
}

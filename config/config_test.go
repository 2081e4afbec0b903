package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("BROADCAST_CHAT_ID", "-100200300")
	t.Setenv("WEBHOOK_URL", "https://events.example.org")

	// Keep ambient environment out of the defaults tests.
	for _, key := range []string{
		"ADMIN_USER_IDS", "REMINDER_LEAD_TIMES", "SCAN_INTERVAL",
		"CATCH_UP_WINDOW", "HOUSEKEEPING_TIME", "TIMEZONE",
		"CALDAV_URL", "CALDAV_USERNAME", "CALDAV_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(-100200300), cfg.BroadcastChatID)
	assert.Equal(t, []time.Duration{24 * time.Hour, 3 * time.Hour, time.Hour}, cfg.LeadTimes)
	assert.Equal(t, time.Minute, cfg.ScanInterval)
	assert.Equal(t, time.Hour, cfg.CatchUpWindow)
	assert.Equal(t, "00:05", cfg.HousekeepingTime)
	assert.Equal(t, "Asia/Tashkent", cfg.Timezone.String())
	assert.False(t, cfg.MirrorConfigured())
}

func TestLoad_LeadTimes(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REMINDER_LEAD_TIMES", "24h, 3h ,1h,30m,10m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{
		24 * time.Hour, 3 * time.Hour, time.Hour, 30 * time.Minute, 10 * time.Minute,
	}, cfg.LeadTimes)
}

func TestLoad_EmptyLeadTimesRejected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REMINDER_LEAD_TIMES", " , ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REMINDER_LEAD_TIMES")
}

func TestLoad_CatchUpMustCoverScanInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SCAN_INTERVAL", "10m")
	t.Setenv("CATCH_UP_WINDOW", "5m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATCH_UP_WINDOW")
}

func TestLoad_AdminIDs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_USER_IDS", "100, 200,300")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsAdmin(200))
	assert.False(t, cfg.IsAdmin(400))
}

func TestLoad_MissingToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
}

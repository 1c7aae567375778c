package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"ADDR", "DATABASE_URL", "ROOM_TTL", "DISCONNECT_GRACE", "BOT_DELAY", "BOT_JITTER",
		"STORE_SYNC_INTERVAL", "ROOM_SWEEP_INTERVAL", "READ_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.Empty(t, c.DatabaseURL)
	assert.Equal(t, 48*time.Hour, c.RoomTTL)
	assert.Equal(t, 12*time.Hour, c.DisconnectGrace)
	assert.Equal(t, time.Second, c.BotDelay)
	assert.Equal(t, 2*time.Minute, c.ReadTimeout)
	assert.Equal(t, "json", c.LogFormat)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("ROOM_TTL", "90m")
	t.Setenv("BOT_JITTER", "0s")
	t.Setenv("LOG_FORMAT", "console")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Addr)
	assert.Equal(t, 90*time.Minute, c.RoomTTL)
	assert.Equal(t, "console", c.LogFormat)
	assert.Equal(t, c.BotDelay, c.BotPace()())
}

func TestFromEnv_ReportsEveryBadValue(t *testing.T) {
	t.Setenv("ROOM_TTL", "soon")
	t.Setenv("BOT_DELAY", "-1s")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := FromEnv()
	require.Error(t, err)
	errs := multierr.Errors(err)
	if len(errs) != 3 {
		t.Fatalf("want 3 errors, got %d: %v", len(errs), err)
	}
	assert.Contains(t, err.Error(), "ROOM_TTL")
	assert.Contains(t, err.Error(), "BOT_DELAY")
}

func TestBotPace_StaysInRange(t *testing.T) {
	c := Config{BotDelay: 100 * time.Millisecond, BotJitter: 50 * time.Millisecond}
	pace := c.BotPace()
	for range 100 {
		d := pace()
		if d < c.BotDelay || d >= c.BotDelay+c.BotJitter {
			t.Fatalf("pace %v outside [%v, %v)", d, c.BotDelay, c.BotDelay+c.BotJitter)
		}
	}
}

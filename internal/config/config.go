package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Config struct {
	Addr        string
	DatabaseURL string // empty keeps rooms in memory only

	RoomTTL           time.Duration
	DisconnectGrace   time.Duration
	BotDelay          time.Duration
	BotJitter         time.Duration
	StoreSyncInterval time.Duration
	RoomSweepInterval time.Duration
	ReadTimeout       time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	var errs error
	dur := func(key string, def time.Duration) time.Duration {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
			return def
		}
		return d
	}

	c := Config{
		Addr:              getEnv("ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RoomTTL:           dur("ROOM_TTL", 48*time.Hour),
		DisconnectGrace:   dur("DISCONNECT_GRACE", 12*time.Hour),
		BotDelay:          dur("BOT_DELAY", time.Second),
		BotJitter:         dur("BOT_JITTER", time.Second),
		StoreSyncInterval: dur("STORE_SYNC_INTERVAL", 5*time.Minute),
		RoomSweepInterval: dur("ROOM_SWEEP_INTERVAL", 10*time.Minute),
		ReadTimeout:       dur("READ_TIMEOUT", 2*time.Minute),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = multierr.Append(errs, fmt.Errorf("LOG_FORMAT: want json or console, got %q", c.LogFormat))
	}
	if c.ReadTimeout == 0 {
		errs = multierr.Append(errs, errors.New("READ_TIMEOUT: must be positive"))
	}
	if c.StoreSyncInterval == 0 {
		errs = multierr.Append(errs, errors.New("STORE_SYNC_INTERVAL: must be positive"))
	}
	return c, errs
}

// BotPace returns the wait before each bot move: BotDelay plus up to
// BotJitter of random slack.
func (c Config) BotPace() func() time.Duration {
	return func() time.Duration {
		if c.BotJitter <= 0 {
			return c.BotDelay
		}
		return c.BotDelay + rand.N(c.BotJitter)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, BusinessConfig{OpenHour: 8, OpenMinute: 30, CloseHour: 22, CloseMinute: 30, Timezone: "Asia/Shanghai"}, cfg.Business)
	assert.Equal(t, "last_write_wins", cfg.Consistency)
	assert.Equal(t, LockerLocal, cfg.Locker)
	assert.False(t, cfg.EventsEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "MySQL")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "reservations")
	t.Setenv("BUSINESS_OPEN_HOUR", "10")
	t.Setenv("BUSINESS_TIMEZONE", "Europe/Berlin")
	t.Setenv("EVENTS_ENABLED", "yes")
	t.Setenv("RESERVATION_LOCK_TTL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, cfg.StoreDriver)
	assert.Equal(t, 10, cfg.Business.OpenHour)
	assert.Equal(t, "Europe/Berlin", cfg.Business.Timezone)
	assert.True(t, cfg.EventsEnabled)
	assert.Equal(t, 250*time.Millisecond, cfg.LockTTL)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidate_Enums(t *testing.T) {
	cfg := Config{JWTSecret: "x", StoreDriver: "couch", Locker: "zk", AccessTTLMin: 1, RefreshTTLDays: 1, GuestTTLMin: 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
	assert.Contains(t, err.Error(), "RESERVATION_LOCKER")
}

func TestLoadRateLimitConfig_Normalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "3s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, 3*time.Second, c.RefillInterval)
	assert.Equal(t, 15*time.Second, c.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
	assert.Equal(t, 10*time.Second, c.TTL)
}

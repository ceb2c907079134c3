package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "11:00", cfg.Schedule.Open)
	assert.Equal(t, "20:30", cfg.Schedule.LastSlot)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.Step)
	assert.Len(t, cfg.Tables, 8)
	assert.Equal(t, LockLocal, cfg.Lock.Driver)
	assert.Equal(t, EventsNone, cfg.Events.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.KafkaBrokers)
	assert.True(t, cfg.Cache.Methods["GET"])
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL())
	assert.Empty(t, cfg.Events.StreamOrigins)
}

func TestFromEnvMissingRequired(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("APP_PORT"))

	_, err := FromEnv()
	require.Error(t, err)

	setRequired(t)
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	_, err = FromEnv()
	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadJWTAndStreamOrigins(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("EVENTS_STREAM_ORIGINS", "https://floor.example.com,https://admin.example.com")

	j, err := LoadJWT()
	require.NoError(t, err)
	assert.Equal(t, "secret", j.Secret)
	assert.Equal(t, 15*time.Minute, j.AccessTTL())
	assert.Equal(t, time.Hour, JWTConfig{}.AccessTTL())

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://floor.example.com", "https://admin.example.com"}, cfg.Events.StreamOrigins)
}

func TestFromEnvRejectsUnknownDrivers(t *testing.T) {
	cases := map[string]string{
		"STORE_DRIVER":  "postgres",
		"LOCK_DRIVER":   "zookeeper",
		"EVENTS_DRIVER": "sns",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, value)
			_, err := FromEnv()
			require.Error(t, err)
		})
	}
}

func TestFromEnvMySQLNeedsUser(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_DRIVER", "mysql")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("DB_USER", "app")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "3306", cfg.Store.DBPort)
}

func TestTableSeedDecode(t *testing.T) {
	t.Parallel()

	var seed TableSeed
	require.NoError(t, seed.Decode(" 3:4, 1:2 ,2:6,"))
	assert.Equal(t, TableSeed{
		{ID: 1, SeatCount: 2},
		{ID: 2, SeatCount: 6},
		{ID: 3, SeatCount: 4},
	}, seed)

	bad := []string{"1", "x:2", "1:0", "0:2", "1:2,1:4"}
	for _, in := range bad {
		var s TableSeed
		assert.Error(t, s.Decode(in), in)
	}
}

func TestRateLimitNormalize(t *testing.T) {
	t.Parallel()

	rl := RateLimitConfig{Capacity: 0, RefillTokens: 0, RefillInterval: 0, TTL: time.Second}
	rl.normalize()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 1, rl.RefillTokens)
	assert.Equal(t, time.Second, rl.RefillInterval)
	assert.Equal(t, 5*time.Second, rl.TTL)
}

func TestScheduleLocation(t *testing.T) {
	t.Parallel()

	loc, err := ScheduleConfig{TimeZone: "Europe/Berlin"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

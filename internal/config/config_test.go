package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/lebot/internal/parser"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.Set("BOT_TOKEN", "123:abc")
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "./data/bot.db", cfg.DBPath)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.PollTimeout)
	assert.Equal(t, 50, cfg.MaxConcurrentEvents)
	assert.Equal(t, int64(100), cfg.MaxMessagesPerGroupPerMinute)
	assert.Equal(t, int64(50), cfg.MaxPriceParsePerUserPerMinute)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "0 0 0 * * *", cfg.SnapshotSchedule)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Empty(t, cfg.SuperAdminIDs)

	pc := cfg.ParserConfig()
	assert.Equal(t, 'a', pc.Trigger)
	assert.Equal(t, parser.DefaultTotalMarkers, pc.TotalMarkers)
	assert.Equal(t, parser.MismatchOverride, pc.Mismatch)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(newViper(map[string]any{
		"SUPER_ADMIN_IDS":       "111, 222,,333",
		"POLL_TIMEOUT":          "45",
		"JWT_EXPIRY":            "2h",
		"TRIGGER_PREFIX":        "下",
		"TOTAL_MARKERS":         "合计, 共",
		"TOTAL_MISMATCH_POLICY": "REJECT",
		"API_PORT":              9090,
		"LOG_LEVEL":             "DEBUG",
	}))
	require.NoError(t, err)

	assert.Equal(t, []int64{111, 222, 333}, cfg.SuperAdminIDs)
	assert.Equal(t, 45*time.Second, cfg.PollTimeout)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())

	pc := cfg.ParserConfig()
	assert.Equal(t, '下', pc.Trigger)
	assert.Equal(t, []string{"合计", "共"}, pc.TotalMarkers)
	assert.Equal(t, parser.MismatchReject, pc.Mismatch)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"missing bot token", map[string]any{"BOT_TOKEN": ""}},
		{"bad super admin id", map[string]any{"SUPER_ADMIN_IDS": "12,abc"}},
		{"zero super admin id", map[string]any{"SUPER_ADMIN_IDS": "0"}},
		{"bad poll timeout", map[string]any{"POLL_TIMEOUT": "soon"}},
		{"bad log level", map[string]any{"LOG_LEVEL": "verbose"}},
		{"bad port", map[string]any{"API_PORT": 70000}},
		{"multi rune trigger", map[string]any{"TRIGGER_PREFIX": "ab"}},
		{"unknown mismatch policy", map[string]any{"TOTAL_MISMATCH_POLICY": "ignore"}},
		{"zero workers", map[string]any{"MAX_CONCURRENT_EVENTS": 0}},
		{"bad proxy url", map[string]any{"PROXY_URL": "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(newViper(tt.values))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("HISTORY_LIMIT", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.BotToken)
	assert.Equal(t, 25, cfg.HistoryLimit)
}

// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mmynk/lebot/internal/parser"
)

// Config holds application configuration.
type Config struct {
	BotToken      string  `validate:"required"`
	SuperAdminIDs []int64 `validate:"dive,ne=0"`
	DBPath        string  `validate:"required"`

	APIHost  string `validate:"required"`
	APIPort  int    `validate:"min=1,max=65535"`
	LogLevel string `validate:"oneof=debug info warn error"`

	TelegramAPIURL string        `validate:"omitempty,url"`
	ProxyURL       string        `validate:"omitempty,url"`
	PollTimeout    time.Duration `validate:"min=1s"`

	MaxConcurrentEvents           int    `validate:"min=1"`
	MaxMessagesPerGroupPerMinute  int64  `validate:"min=0"`
	MaxPriceParsePerUserPerMinute int64  `validate:"min=0"`
	RedisURL                      string `validate:"omitempty,url"`

	// JWTSecret enables the RPC service when set.
	JWTSecret string
	JWTExpiry time.Duration `validate:"min=1m"`

	SnapshotSchedule string `validate:"required"`

	TriggerPrefix       string   `validate:"len=1"`
	TotalMarkers        []string `validate:"dive,required"`
	TotalMismatchPolicy string   `validate:"oneof=override reject"`
	HistoryLimit        int      `validate:"min=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("SUPER_ADMIN_IDS", "")
	v.SetDefault("DB_PATH", "./data/bot.db")
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TELEGRAM_API_URL", "")
	v.SetDefault("PROXY_URL", "")
	v.SetDefault("POLL_TIMEOUT", "30s")
	v.SetDefault("MAX_CONCURRENT_EVENTS", 50)
	v.SetDefault("MAX_MESSAGES_PER_GROUP_PER_MINUTE", 100)
	v.SetDefault("MAX_PRICE_PARSE_PER_USER_PER_MINUTE", 50)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRY", "24h")
	v.SetDefault("SNAPSHOT_SCHEDULE", "0 0 0 * * *")
	v.SetDefault("TRIGGER_PREFIX", "a")
	v.SetDefault("TOTAL_MARKERS", "")
	v.SetDefault("TOTAL_MISMATCH_POLICY", string(parser.MismatchOverride))
	v.SetDefault("HISTORY_LIMIT", 10)
}

// Load reads .env if present, then the process environment, and validates
// the result.
func Load() (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	superAdmins, err := parseIDs(v.GetString("SUPER_ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SUPER_ADMIN_IDS: %w", err)
	}
	pollTimeout, err := parseDuration(v.GetString("POLL_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse POLL_TIMEOUT: %w", err)
	}
	jwtExpiry, err := parseDuration(v.GetString("JWT_EXPIRY"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT_EXPIRY: %w", err)
	}

	cfg := &Config{
		BotToken:                      strings.TrimSpace(v.GetString("BOT_TOKEN")),
		SuperAdminIDs:                 superAdmins,
		DBPath:                        v.GetString("DB_PATH"),
		APIHost:                       v.GetString("API_HOST"),
		APIPort:                       v.GetInt("API_PORT"),
		LogLevel:                      strings.ToLower(v.GetString("LOG_LEVEL")),
		TelegramAPIURL:                v.GetString("TELEGRAM_API_URL"),
		ProxyURL:                      v.GetString("PROXY_URL"),
		PollTimeout:                   pollTimeout,
		MaxConcurrentEvents:           v.GetInt("MAX_CONCURRENT_EVENTS"),
		MaxMessagesPerGroupPerMinute:  v.GetInt64("MAX_MESSAGES_PER_GROUP_PER_MINUTE"),
		MaxPriceParsePerUserPerMinute: v.GetInt64("MAX_PRICE_PARSE_PER_USER_PER_MINUTE"),
		RedisURL:                      v.GetString("REDIS_URL"),
		JWTSecret:                     v.GetString("JWT_SECRET"),
		JWTExpiry:                     jwtExpiry,
		SnapshotSchedule:              v.GetString("SNAPSHOT_SCHEDULE"),
		TriggerPrefix:                 v.GetString("TRIGGER_PREFIX"),
		TotalMarkers:                  splitList(v.GetString("TOTAL_MARKERS")),
		TotalMismatchPolicy:           strings.ToLower(v.GetString("TOTAL_MISMATCH_POLICY")),
		HistoryLimit:                  v.GetInt("HISTORY_LIMIT"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.APIHost, strconv.Itoa(c.APIPort))
}

// ParserConfig converts the order parsing settings.
func (c *Config) ParserConfig() parser.Config {
	cfg := parser.DefaultConfig()
	if r := []rune(c.TriggerPrefix); len(r) == 1 {
		cfg.Trigger = r[0]
	}
	if len(c.TotalMarkers) > 0 {
		cfg.TotalMarkers = c.TotalMarkers
	}
	cfg.Mismatch = parser.MismatchPolicy(c.TotalMismatchPolicy)
	return cfg
}

// parseIDs reads a comma-separated list of chat user IDs.
func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, field := range splitList(raw) {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", field, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseDuration accepts Go durations and bare numbers of seconds.
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

func splitList(raw string) []string {
	var out []string
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}

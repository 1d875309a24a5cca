package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"readyrent/internal/domain/availability"
	"readyrent/internal/domain/policy"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	HTTPAddr string

	StorageMode string
	MongoURI    string
	MongoDB     string

	CacheMode     string
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	CancellationTiers policy.Schedule
	RefuseAfterStart  bool
	EarlyReturnRefund int
	CleaningDays      int
	MaxCalendarDays   int
	DefaultCurrency   string
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageMode:      strings.ToLower(getEnv("STORAGE_MODE", "memory")),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "readyrent"),
		CacheMode:        strings.ToLower(getEnv("CACHE_MODE", "memory")),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "USD"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	ttl, err := parseDurationEnv("AVAILABILITY_CACHE_TTL", availability.DefaultCacheTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheTTL = ttl

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	tiers, err := parseTiers(getEnv("CANCELLATION_TIERS", ""))
	if err != nil {
		return Config{}, err
	}
	if len(tiers) == 0 {
		tiers = policy.DefaultSchedule()
	}
	cfg.CancellationTiers = tiers

	refuse, err := parseBoolEnv("CANCEL_REFUSE_AFTER_START", true)
	if err != nil {
		return Config{}, err
	}
	cfg.RefuseAfterStart = refuse

	refund, err := parseIntEnv("EARLY_RETURN_REFUND_PERCENT", policy.DefaultEarlyReturnRefundPercent)
	if err != nil {
		return Config{}, err
	}
	cfg.EarlyReturnRefund = refund

	cleaning, err := parseIntEnv("CLEANING_DAYS", 1)
	if err != nil {
		return Config{}, err
	}
	cfg.CleaningDays = cleaning

	maxDays, err := parseIntEnv("MAX_CALENDAR_DAYS", 90)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxCalendarDays = maxDays

	switch cfg.StorageMode {
	case "memory":
	case "mongo":
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_MODE: %q", cfg.StorageMode)
	}
	switch cfg.CacheMode {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("invalid CACHE_MODE: %q", cfg.CacheMode)
	}
	return cfg, nil
}

// parseTiers reads a tier table of the form "24:0,12:10,6:25,0:50", mapping
// hours-before-start to fee percent.
func parseTiers(raw string) (policy.Schedule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var tiers policy.Schedule
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid CANCELLATION_TIERS component %q", part)
		}
		hours, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid CANCELLATION_TIERS hours %q: %w", fields[0], err)
		}
		percent, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid CANCELLATION_TIERS percent %q: %w", fields[1], err)
		}
		tiers = append(tiers, policy.FeeTier{HoursBefore: hours, FeePercent: percent})
	}
	return tiers, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

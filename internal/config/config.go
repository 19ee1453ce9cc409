package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/joho/godotenv"
)

// Load reads the .env file specified by DREAMLOG_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("DREAMLOG_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// RedisURL returns the Redis URL for the stats cache.
// Empty disables caching.
func RedisURL() string {
	return os.Getenv("REDIS_URL")
}

// StatsCacheTTL returns how long a stats snapshot stays cached.
// Defaults to 2m if not set.
func StatsCacheTTL() time.Duration {
	return durationOr("STATS_CACHE_TTL", 2*time.Minute)
}

// NATSURL returns the NATS server URL for analysis events.
// Empty disables the subscriber.
func NATSURL() string {
	return os.Getenv("NATS_URL")
}

func NATSSubject() string {
	s := os.Getenv("NATS_SUBJECT")
	if s == "" {
		return "dreams.analysis.completed"
	}
	return s
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func PatternRefreshInterval() time.Duration {
	return durationOr("PATTERN_REFRESH_INTERVAL", 6*time.Hour)
}

// PatternLocation returns the zone used for weekdays and calendar days.
// Defaults to UTC if unset or unknown.
func PatternLocation() *time.Location {
	name := os.Getenv("PATTERN_TIMEZONE")
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PatternPolicy returns the detection thresholds, starting from
// domain.DefaultPatternPolicy and applying any env overrides.
func PatternPolicy() domain.PatternPolicy {
	p := domain.DefaultPatternPolicy()
	p.HistoryLimit = intOr("PATTERN_HISTORY_LIMIT", p.HistoryLimit)
	p.MinDreams = intOr("PATTERN_MIN_DREAMS", p.MinDreams)
	p.ThemeMinOccurrences = intOr("THEME_MIN_OCCURRENCES", p.ThemeMinOccurrences)
	p.ThemeMaxPatterns = intOr("THEME_MAX_PATTERNS", p.ThemeMaxPatterns)
	p.TemporalMinBucket = intOr("TEMPORAL_MIN_BUCKET", p.TemporalMinBucket)
	p.TemporalNightmareRate = floatOr("TEMPORAL_NIGHTMARE_RATE", p.TemporalNightmareRate)
	p.StressHighLevel = intOr("STRESS_HIGH_LEVEL", p.StressHighLevel)
	p.StressMinSamples = intOr("STRESS_MIN_SAMPLES", p.StressMinSamples)
	p.StressMinCorrelation = floatOr("STRESS_MIN_CORRELATION", p.StressMinCorrelation)
	return p
}

func intOr(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func floatOr(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 0 || v > 1 {
		return def
	}
	return v
}

func durationOr(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

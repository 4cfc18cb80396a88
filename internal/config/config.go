package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/patrickwarner/adselect/internal/logic/predictor"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	RedisAddr     string
	ClickHouseDSN string
	PostgresDSN   string

	GeoIPDB           string
	AntiTargetingPath string

	DebugTrace     bool
	ReloadInterval time.Duration
	ServiceName    string

	// Selection configuration
	PredictorWeights        predictor.Weights
	PacingMode              string
	AdvertiserPerDayCap     int
	BrowsingHistoryMaxCount int
	BrowsingHistoryDaysAgo  int

	// Serve token signing. An empty secret disables token verification on
	// the events endpoint.
	EventTokenSecret string
	EventTokenTTL    time.Duration

	// Segment signal feature flags
	TextClassificationEnabled  bool
	PurchaseIntentEnabled      bool
	EpsilonGreedyBanditEnabled bool

	// Segments the user opted out of; never targeted.
	FilteredSegments []string

	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	// ClickHouse connection pooling configuration
	CHMaxOpenConns    int
	CHMaxIdleConns    int
	CHConnMaxLifetime time.Duration
	CHConnMaxIdleTime time.Duration

	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent. A malformed PREDICTOR_WEIGHTS value is
// a hard error since silently reverting to defaults would change ranking
// behaviour without anyone noticing.
func Load() (Config, error) {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8787")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 10*time.Second)
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000/default?async_insert=1&wait_for_async_insert=1")
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")
	cfg.GeoIPDB = getenv("GEOIP_DB", "internal/geo/testdata/GeoLite2-Subdivision.mmdb")
	cfg.AntiTargetingPath = getenv("ANTI_TARGETING_PATH", "resources/anti_targeting.json")
	cfg.DebugTrace = envBool("DEBUG_TRACE", false)
	// default to 30 seconds between automatic catalog reloads
	cfg.ReloadInterval = envDuration("RELOAD_INTERVAL", 30*time.Second)
	cfg.ServiceName = getenv("SERVICE_NAME", "adselect")

	weights, err := envPredictorWeights("PREDICTOR_WEIGHTS")
	if err != nil {
		return Config{}, err
	}
	cfg.PredictorWeights = weights

	cfg.PacingMode = getenv("PACING_MODE", "even")
	cfg.AdvertiserPerDayCap = envInt("ADVERTISER_PER_DAY_CAP", 0)
	cfg.BrowsingHistoryMaxCount = envInt("BROWSING_HISTORY_MAX_COUNT", 5000)
	cfg.BrowsingHistoryDaysAgo = envInt("BROWSING_HISTORY_DAYS_AGO", 30)

	cfg.EventTokenSecret = getenv("EVENT_TOKEN_SECRET", "")
	cfg.EventTokenTTL = envDuration("EVENT_TOKEN_TTL", 48*time.Hour)

	cfg.TextClassificationEnabled = envBool("TEXT_CLASSIFICATION_ENABLED", true)
	cfg.PurchaseIntentEnabled = envBool("PURCHASE_INTENT_ENABLED", true)
	cfg.EpsilonGreedyBanditEnabled = envBool("EPSILON_GREEDY_BANDIT_ENABLED", false)
	cfg.FilteredSegments = envList("FILTERED_SEGMENTS")

	// Database connection pooling configuration
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// ClickHouse connection pooling configuration
	// Default to higher values than PostgreSQL due to async insert patterns and high event volume
	cfg.CHMaxOpenConns = envInt("CH_MAX_OPEN_CONNS", 100)
	cfg.CHMaxIdleConns = envInt("CH_MAX_IDLE_CONNS", 25)
	cfg.CHConnMaxLifetime = envDuration("CH_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.CHConnMaxIdleTime = envDuration("CH_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0) // Default to 100% sampling for dev

	return cfg, nil
}

// envPredictorWeights parses a comma-separated weight list, e.g.
// "1.0,1.0,1.0,1.0,1.0,1.0,1.0". Unset returns the shipped defaults.
func envPredictorWeights(key string) (predictor.Weights, error) {
	v := os.Getenv(key)
	if v == "" {
		return predictor.DefaultWeights(), nil
	}
	parts := strings.Split(v, ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return predictor.Weights{}, fmt.Errorf("%s: invalid value %q: %w", key, p, err)
		}
		vals = append(vals, f)
	}
	w, err := predictor.WeightsFromSlice(vals)
	if err != nil {
		return predictor.Weights{}, fmt.Errorf("%s: %w", key, err)
	}
	return w, nil
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}

// envList parses a comma-separated list, trimming whitespace and dropping
// empty entries. Unset returns nil.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

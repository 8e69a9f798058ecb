package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	PropertiesAPIURL    string
	ListingPageSize     int
	SessionTTL          time.Duration
	SentinelThresholdPx float64

	KafkaBrokers  []string
	KafkaTopic    string
	KafkaDLQTopic string
	KafkaGroupID  string

	RedisAddr      string
	DetailCacheTTL time.Duration

	MongoURI    string
	MongoDBName string
	MongoColl   string
	MockAPIPort string
	SeedCount   int

	TracingEnabled bool
	LogLevel       string
	LogFormat      string
}

// EventsEnabled reports whether query events are published to Kafka.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		PropertiesAPIURL:    getEnv("PROPERTIES_API_URL", "http://localhost:5058/api"),
		ListingPageSize:     getIntEnv("LISTING_PAGE_SIZE", 12),
		SessionTTL:          getDurationEnv("SESSION_TTL", 30*time.Minute),
		SentinelThresholdPx: getFloatEnv("SENTINEL_THRESHOLD_PX", 100),

		KafkaBrokers:  getListEnv("KAFKA_BROKERS"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "property_queries"),
		KafkaDLQTopic: getEnv("KAFKA_DLQ_TOPIC", "property_queries_dlq"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "query-analytics-group"),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		DetailCacheTTL: getDurationEnv("DETAIL_CACHE_TTL", 5*time.Minute),

		MongoURI:    getEnv("MONGO_URI", ""),
		MongoDBName: getEnv("MONGO_DB_NAME", "properties"),
		MongoColl:   getEnv("MONGO_COLLECTION", "properties"),
		MockAPIPort: getEnv("MOCK_API_PORT", "5058"),
		SeedCount:   getIntEnv("SEED_COUNT", 60),

		TracingEnabled: getBoolEnv("TRACING_ENABLED", false),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getListEnv splits a comma-separated value and drops empty entries.
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		// Try parsing as duration string (e.g. "1m", "60s")
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Try parsing as integer seconds
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "cardledger/pkg/platform/strings"
)

// Config is the full process configuration, read once at startup.
type Config struct {
	Server   Server
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Grader   GraderConfig
	Cards    CardsConfig
	Log      LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr               string
	CORSAllowedOrigins []string
	UploadRateLimit    int
	RequestTimeout     time.Duration
}

// PostgresConfig selects the durable stores. An empty URL keeps everything in memory.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig configures the card read cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox relay. No brokers means events are only logged.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	RelayInterval time.Duration
}

type GraderConfig struct {
	Mode     string
	URL      string
	Timeout  time.Duration
	Required bool
}

type CardsConfig struct {
	MaxImageBytes int64
	CacheTTL      time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	GraderModeHTTP   = "http"
	GraderModeStatic = "static"
)

// FromEnv builds the configuration from environment variables, loading a .env file
// first when one is present so main stays lean.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	var errs []string
	cfg := Config{
		Server: Server{
			Addr:               envOr("CARDLEDGER_ADDR", ":8080"),
			CORSAllowedOrigins: platformstrings.SplitList(envOr("CORS_ALLOWED_ORIGINS", "*"), ","),
			UploadRateLimit:    envInt("UPLOAD_RATE_LIMIT", 30, &errs),
			RequestTimeout:     envDuration("REQUEST_TIMEOUT", 60*time.Second, &errs),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25, &errs),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5, &errs),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10, &errs),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2, &errs),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second, &errs),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second, &errs),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second, &errs),
		},
		Kafka: KafkaConfig{
			Brokers:       platformstrings.SplitList(os.Getenv("KAFKA_BROKERS"), ","),
			Topic:         envOr("CARD_EVENTS_TOPIC", "card-events"),
			RelayInterval: envDuration("OUTBOX_RELAY_INTERVAL", time.Second, &errs),
		},
		Grader: GraderConfig{
			Mode:     strings.ToLower(envOr("GRADER_MODE", GraderModeHTTP)),
			URL:      os.Getenv("GRADER_URL"),
			Timeout:  envDuration("GRADER_TIMEOUT", 30*time.Second, &errs),
			Required: os.Getenv("GRADER_REQUIRED") == "true",
		},
		Cards: CardsConfig{
			MaxImageBytes: int64(envInt("MAX_IMAGE_BYTES", 10<<20, &errs)),
			CacheTTL:      envDuration("CARD_CACHE_TTL", 5*time.Minute, &errs),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
	}

	switch cfg.Grader.Mode {
	case GraderModeHTTP:
		if cfg.Grader.URL == "" {
			errs = append(errs, "GRADER_URL is required when GRADER_MODE=http")
		}
	case GraderModeStatic:
	default:
		errs = append(errs, fmt.Sprintf("GRADER_MODE must be %q or %q, got %q", GraderModeHTTP, GraderModeStatic, cfg.Grader.Mode))
	}
	if cfg.Cards.MaxImageBytes <= 0 {
		errs = append(errs, "MAX_IMAGE_BYTES must be positive")
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return n
}

func envDuration(key string, def time.Duration, errs *[]string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return d
}

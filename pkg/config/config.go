// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Correlator, LiveTail, Kafka, Redis, Postgres, Sinks, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Correlator CorrelatorConfig `yaml:"correlator"`
	LiveTail   LiveTailConfig   `yaml:"liveTail"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Sinks      SinksConfig      `yaml:"sinks"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// RateLimit caps accept requests per client per minute; 0 disables it.
	RateLimit int `yaml:"rateLimit"`
}

// CorrelatorConfig controls tokenisation for both streams.
type CorrelatorConfig struct {
	// Delimiters lists the characters that separate terms. Empty means any
	// run of non-letter, non-digit characters.
	Delimiters string `yaml:"delimiters"`
}

// LiveTailConfig controls the line-oriented live-tail processor.
type LiveTailConfig struct {
	Input        string        `yaml:"input"`
	Follow       bool          `yaml:"follow"`
	PollInterval time.Duration `yaml:"pollInterval"`
	MaxLineBytes int           `yaml:"maxLineBytes"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`

	// Ingest consumes the document and query topics into the correlator.
	Ingest bool `yaml:"ingest"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Documents string `yaml:"documents"`
	Queries   string `yaml:"queries"`
	Matches   string `yaml:"matches"`
}

// RedisConfig holds Redis connection and publishing parameters.
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	PoolSize       int    `yaml:"poolSize"`
	MatchesChannel string `yaml:"matchesChannel"`
}

// SinksConfig selects which match sinks the service wires up and how
// delivery failures are retried.
type SinksConfig struct {
	Log        bool          `yaml:"log"`
	Kafka      bool          `yaml:"kafka"`
	Redis      bool          `yaml:"redis"`
	Postgres   bool          `yaml:"postgres"`
	WebSocket  bool          `yaml:"webSocket"`
	BufferSize int           `yaml:"bufferSize"`
	Retry      RetryConfig   `yaml:"retry"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

// RetryConfig mirrors resilience.RetryConfig for YAML loading.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`

	// AttemptTimeout bounds one delivery attempt; zero leaves attempts
	// unbounded.
	AttemptTimeout time.Duration `yaml:"attemptTimeout"`
}

// BreakerConfig mirrors resilience.CircuitBreakerConfig for YAML loading.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot be served.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative")
	}
	if c.Sinks.BufferSize < 0 {
		return fmt.Errorf("sinks.bufferSize must not be negative")
	}
	if c.Sinks.Retry.AttemptTimeout < 0 {
		return fmt.Errorf("sinks.retry.attemptTimeout must not be negative")
	}
	if (c.Sinks.Kafka || c.Kafka.Ingest) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled without kafka.brokers")
	}
	if c.Sinks.Kafka && c.Kafka.Topics.Matches == "" {
		return fmt.Errorf("kafka sink enabled without kafka.topics.matches")
	}
	if c.Sinks.Redis && c.Redis.MatchesChannel == "" {
		return fmt.Errorf("redis sink enabled without redis.matchesChannel")
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		LiveTail: LiveTailConfig{
			Input:        "-",
			PollInterval: 250 * time.Millisecond,
			MaxLineBytes: 1024 * 1024,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "correlator-group",
			Topics: KafkaTopics{
				Documents: "correlator.documents",
				Queries:   "correlator.queries",
				Matches:   "correlator.matches",
			},
		},
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			DB:             0,
			PoolSize:       10,
			MatchesChannel: "correlator:matches",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "correlator",
			User:            "correlator",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Sinks: SinksConfig{
			Log:        true,
			BufferSize: 10000,
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: 100 * time.Millisecond,
				MaxDelay:     5 * time.Second,

				AttemptTimeout: 2 * time.Second,
			},
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SC_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("SC_CORRELATOR_DELIMITERS"); v != "" {
		cfg.Correlator.Delimiters = v
	}
	if v := os.Getenv("SC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SC_KAFKA_INGEST"); v != "" {
		cfg.Kafka.Ingest = parseBool(v, cfg.Kafka.Ingest)
	}
	if v := os.Getenv("SC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SC_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SC_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SC_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SC_SINKS_KAFKA"); v != "" {
		cfg.Sinks.Kafka = parseBool(v, cfg.Sinks.Kafka)
	}
	if v := os.Getenv("SC_SINKS_REDIS"); v != "" {
		cfg.Sinks.Redis = parseBool(v, cfg.Sinks.Redis)
	}
	if v := os.Getenv("SC_SINKS_POSTGRES"); v != "" {
		cfg.Sinks.Postgres = parseBool(v, cfg.Sinks.Postgres)
	}
	if v := os.Getenv("SC_SINKS_RETRY_ATTEMPT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sinks.Retry.AttemptTimeout = d
		}
	}
	if v := os.Getenv("SC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SC_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Corpus, Indexer, Rocchio, Search, Postgres, Kafka, Redis, etc.).
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
	Server   ServerConfig   `yaml:"server"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Rocchio  RocchioConfig  `yaml:"rocchio"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the number of searches one client IP may run per
	// minute. Zero disables limiting.
	RateLimit int `yaml:"rateLimit"`
}

// CorpusConfig points at the flat files the index is built from.
type CorpusConfig struct {
	IndexFile              string `yaml:"indexFile"`
	LengthsFile            string `yaml:"lengthsFile"`
	RelevantFile           string `yaml:"relevantFile"`
	RelevantNoFeedbackFile string `yaml:"relevantNoFeedbackFile"`
	FeedbackFile           string `yaml:"feedbackFile"`
}

// IndexerConfig controls dictionary filtering and where the built index
// snapshot is kept.
type IndexerConfig struct {
	MinDocFreq   int    `yaml:"minDocFreq"`
	MaxDocFreq   int    `yaml:"maxDocFreq"`
	Store        string `yaml:"store"`
	DataDir      string `yaml:"dataDir"`
	SnapshotName string `yaml:"snapshotName"`
	Compression  string `yaml:"compression"`
	Rebuild      bool   `yaml:"rebuild"`
}

// RocchioConfig holds the relevance-feedback coefficients.
type RocchioConfig struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	Gamma float64 `yaml:"gamma"`
}

// SearchConfig controls query execution limits and timeouts.
type SearchConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	DefaultLimit    int           `yaml:"defaultLimit"`
	CacheEnabled    bool          `yaml:"cacheEnabled"`
	EventBufferSize int           `yaml:"eventBufferSize"`
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
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	EvaluationEvents string `yaml:"evaluationEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging for search requests.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
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

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Indexer.MinDocFreq < 1 || c.Indexer.MaxDocFreq < c.Indexer.MinDocFreq {
		return fmt.Errorf("invalid document-frequency band [%d, %d]",
			c.Indexer.MinDocFreq, c.Indexer.MaxDocFreq)
	}
	switch c.Indexer.Store {
	case "file", "bolt", "redis":
	default:
		return fmt.Errorf("unknown snapshot store %q", c.Indexer.Store)
	}
	switch c.Indexer.Compression {
	case "none", "lz4", "zstd":
	default:
		return fmt.Errorf("unknown snapshot compression %q", c.Indexer.Compression)
	}
	if c.Rocchio.Alpha < 0 || c.Rocchio.Beta < 0 || c.Rocchio.Gamma < 0 {
		return fmt.Errorf("rocchio coefficients must be non-negative")
	}
	return nil
}

// defaultConfig returns a Config matching the data/ layout of the evaluation
// corpus.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       600,
		},
		Corpus: CorpusConfig{
			IndexFile:              "data/index.txt",
			LengthsFile:            "data/doc_lengths.txt",
			RelevantFile:           "data/relevant.txt",
			RelevantNoFeedbackFile: "data/relevant_nofback.txt",
			FeedbackFile:           "data/feedback.txt",
		},
		Indexer: IndexerConfig{
			MinDocFreq:   6,
			MaxDocFreq:   1600,
			Store:        "file",
			DataDir:      "data/snapshots",
			SnapshotName: "index",
			Compression:  "zstd",
		},
		Rocchio: RocchioConfig{
			Alpha: 1.0,
			Beta:  0.85,
			Gamma: 0.15,
		},
		Search: SearchConfig{
			Timeout:         10 * time.Second,
			DefaultLimit:    0,
			EventBufferSize: 1000,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "vectorsearch",
			User:            "vectorsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "vectorsearch-analytics",
			Topics: KafkaTopics{
				EvaluationEvents: "evaluation-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads VS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VS_SERVER_RATE_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = limit
		}
	}
	if v := os.Getenv("VS_CORPUS_INDEX_FILE"); v != "" {
		cfg.Corpus.IndexFile = v
	}
	if v := os.Getenv("VS_CORPUS_LENGTHS_FILE"); v != "" {
		cfg.Corpus.LengthsFile = v
	}
	if v := os.Getenv("VS_INDEXER_STORE"); v != "" {
		cfg.Indexer.Store = v
	}
	if v := os.Getenv("VS_INDEXER_DATA_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("VS_INDEXER_REBUILD"); v != "" {
		if rebuild, err := strconv.ParseBool(v); err == nil {
			cfg.Indexer.Rebuild = rebuild
		}
	}
	if v := os.Getenv("VS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("VS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("VS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("VS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("VS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("VS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("VS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("VS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("VS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

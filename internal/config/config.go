// Package config defines the configuration structures of the chemindex
// service. No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RateLimitRPS is the per-client request rate; zero disables limiting.
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IndexNames maps each record kind to its search index.
type IndexNames struct {
	Molecule         string `mapstructure:"molecule"`
	Reaction         string `mapstructure:"reaction"`
	ReactionTemplate string `mapstructure:"reaction_template"`
}

// ByKind returns the index names keyed by record kind name.
func (n IndexNames) ByKind() map[string]string {
	return map[string]string{
		"molecule":          n.Molecule,
		"reaction":          n.Reaction,
		"reaction_template": n.ReactionTemplate,
	}
}

// OpenSearchConfig holds OpenSearch cluster connection parameters.
type OpenSearchConfig struct {
	Addresses          []string      `mapstructure:"addresses"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	BulkBatchSize      int           `mapstructure:"bulk_batch_size"`
	Refresh            string        `mapstructure:"refresh"` // "" | "true" | "false" | "wait_for"
	Indices            IndexNames    `mapstructure:"indices"`
}

// RedisConfig holds record-cache connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	TTL          time.Duration `mapstructure:"ttl"`
	// LocalSize bounds the in-process cache used while Redis is disabled.
	// Negative disables it.
	LocalSize    int           `mapstructure:"local_size"`
}

// KafkaConfig holds ingest consumer and event producer parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	GroupID      string        `mapstructure:"group_id"`
	IngestTopic  string        `mapstructure:"ingest_topic"`
	EventsTopic  string        `mapstructure:"events_topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	MinBytes     int           `mapstructure:"min_bytes"`
	MaxBytes     int           `mapstructure:"max_bytes"`
}

// MinIOConfig holds snapshot archive parameters.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// IngestConfig controls record construction during ingestion.
type IngestConfig struct {
	Toolkit     string `mapstructure:"toolkit"` // registered structure toolkit; required
	ErrorPolicy string `mapstructure:"error_policy"` // "propagate" | "skip" | "log"
	Concurrency int    `mapstructure:"concurrency"`
	BatchSize   int    `mapstructure:"batch_size"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure. Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Log        logging.LogConfig `mapstructure:"log"`
	Server     ServerConfig      `mapstructure:"server"`
	OpenSearch OpenSearchConfig  `mapstructure:"opensearch"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	MinIO      MinIOConfig       `mapstructure:"minio"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Ingest     IngestConfig      `mapstructure:"ingest"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

func invalid(format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("config: "+format, args...))
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered. Sections that are disabled are
// not checked.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return invalid("server rate limit must not be negative")
	}

	// OpenSearch
	if len(c.OpenSearch.Addresses) == 0 {
		return invalid("opensearch.addresses must contain at least one address")
	}
	if c.OpenSearch.BulkBatchSize < 1 {
		return invalid("opensearch.bulk_batch_size must be ≥ 1, got %d", c.OpenSearch.BulkBatchSize)
	}
	switch c.OpenSearch.Refresh {
	case "", "true", "false", "wait_for":
	default:
		return invalid("opensearch.refresh %q is invalid; expected true|false|wait_for", c.OpenSearch.Refresh)
	}
	seen := make(map[string]string, 3)
	for kind, name := range c.OpenSearch.Indices.ByKind() {
		if name == "" {
			return invalid("opensearch.indices.%s is required", kind)
		}
		if other, ok := seen[name]; ok {
			return invalid("opensearch.indices.%s and opensearch.indices.%s share index %q", kind, other, name)
		}
		seen[name] = kind
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return invalid("redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return invalid("redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return invalid("kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return invalid("kafka.group_id is required")
		}
		if c.Kafka.IngestTopic == "" || c.Kafka.EventsTopic == "" {
			return invalid("kafka.ingest_topic and kafka.events_topic are required")
		}
	}

	// MinIO
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return invalid("minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			return invalid("minio.bucket is required")
		}
	}

	// Ingest
	if c.Ingest.Toolkit == "" {
		return invalid("ingest.toolkit is required")
	}
	switch c.Ingest.ErrorPolicy {
	case "propagate", "skip", "log":
	default:
		return invalid("ingest.error_policy %q is invalid; expected propagate|skip|log", c.Ingest.ErrorPolicy)
	}
	if c.Ingest.Concurrency < 1 {
		return invalid("ingest.concurrency must be ≥ 1, got %d", c.Ingest.Concurrency)
	}

	// Log
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending

package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultOpenSearchAddress        = "http://localhost:9200"
	DefaultOpenSearchMaxRetries     = 3
	DefaultOpenSearchRequestTimeout = 30 * time.Second
	DefaultOpenSearchBulkBatchSize  = 500
	DefaultMoleculeIndex            = "bingo-molecules"
	DefaultReactionIndex            = "bingo-reactions"
	DefaultReactionTemplateIndex    = "bingo-reaction-templates"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10
	DefaultRedisKeyPrefix = "chemindex:"
	DefaultRedisTTL       = 10 * time.Minute
	DefaultLocalCacheSize = 1024

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "chemindex-ingest"
	DefaultKafkaIngestTopic  = "chemindex.ingest"
	DefaultKafkaEventsTopic  = "chemindex.records.indexed"
	DefaultKafkaBatchSize    = 100
	DefaultKafkaBatchTimeout = time.Second
	DefaultKafkaMaxRetries   = 3
	DefaultKafkaMinBytes     = 1
	DefaultKafkaMaxBytes     = 10 << 20

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "chemindex-snapshots"
	DefaultMinIOPrefix   = "exports/"

	DefaultMetricsNamespace = "chemindex"
	DefaultMetricsPath      = "/metrics"

	DefaultIngestErrorPolicy = "propagate"
	DefaultIngestConcurrency = 4
	DefaultIngestBatchSize   = 200

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields that have already been set (non-zero values) are left unchanged so
// that explicit configuration always wins. Enable flags are never defaulted.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{DefaultOpenSearchAddress}
	}
	if cfg.OpenSearch.MaxRetries == 0 {
		cfg.OpenSearch.MaxRetries = DefaultOpenSearchMaxRetries
	}
	if cfg.OpenSearch.RequestTimeout == 0 {
		cfg.OpenSearch.RequestTimeout = DefaultOpenSearchRequestTimeout
	}
	if cfg.OpenSearch.BulkBatchSize == 0 {
		cfg.OpenSearch.BulkBatchSize = DefaultOpenSearchBulkBatchSize
	}
	if cfg.OpenSearch.Indices.Molecule == "" {
		cfg.OpenSearch.Indices.Molecule = DefaultMoleculeIndex
	}
	if cfg.OpenSearch.Indices.Reaction == "" {
		cfg.OpenSearch.Indices.Reaction = DefaultReactionIndex
	}
	if cfg.OpenSearch.Indices.ReactionTemplate == "" {
		cfg.OpenSearch.Indices.ReactionTemplate = DefaultReactionTemplateIndex
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultRedisTTL
	}
	if cfg.Redis.LocalSize == 0 {
		cfg.Redis.LocalSize = DefaultLocalCacheSize
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.IngestTopic == "" {
		cfg.Kafka.IngestTopic = DefaultKafkaIngestTopic
	}
	if cfg.Kafka.EventsTopic == "" {
		cfg.Kafka.EventsTopic = DefaultKafkaEventsTopic
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = DefaultKafkaBatchSize
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}
	if cfg.Kafka.MinBytes == 0 {
		cfg.Kafka.MinBytes = DefaultKafkaMinBytes
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = DefaultKafkaMaxBytes
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.Prefix == "" {
		cfg.MinIO.Prefix = DefaultMinIOPrefix
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Ingest ────────────────────────────────────────────────────────────────
	if cfg.Ingest.ErrorPolicy == "" {
		cfg.Ingest.ErrorPolicy = DefaultIngestErrorPolicy
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = DefaultIngestConcurrency
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = DefaultIngestBatchSize
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
	if len(cfg.Log.ErrorOutputPaths) == 0 {
		cfg.Log.ErrorOutputPaths = []string{"stderr"}
	}
}

//Personal.AI order the ending

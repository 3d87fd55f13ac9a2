package cli

import (
	"context"
	"sync"

	"github.com/turtacn/chemindex/internal/application/indexing"
	"github.com/turtacn/chemindex/internal/config"
	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/cache/local"
	"github.com/turtacn/chemindex/internal/infrastructure/database/redis"
	"github.com/turtacn/chemindex/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/chemindex/internal/infrastructure/search/opensearch"
	"github.com/turtacn/chemindex/internal/infrastructure/storage/minio"
	httpapi "github.com/turtacn/chemindex/internal/interfaces/http"
	"github.com/turtacn/chemindex/internal/interfaces/http/handlers"
	"github.com/turtacn/chemindex/internal/interfaces/http/middleware"
	"github.com/turtacn/chemindex/pkg/errors"
)

// Archive moves index contents to and from snapshot storage.
type Archive interface {
	Export(ctx context.Context, kind record.Kind, hashes []int64) (*minio.SnapshotInfo, error)
	Restore(ctx context.Context, kind record.Kind, key string) (*indexing.RestoreReport, error)
	Snapshots(ctx context.Context, kind record.Kind) ([]minio.SnapshotInfo, error)
}

// Backend supplies the services commands run against. Implementations
// connect lazily so that a command only dials what it uses.
type Backend interface {
	Service() (indexing.Service, error)
	Archive() (Archive, error)
	Server() (*httpapi.Server, error)
	Worker(ctx context.Context) (*kafka.Consumer, error)
	Close() error
}

// BackendFactory builds the Backend of one command invocation.
type BackendFactory func(cfg *config.Config, logger logging.Logger) Backend

var errKafkaDisabled = errors.New(errors.ErrCodeConfigInvalid, "kafka is disabled; set kafka.enabled")
var errMinIODisabled = errors.New(errors.ErrCodeConfigInvalid, "minio is disabled; set minio.enabled")

// infraBackend wires the infrastructure clients named by the config.
type infraBackend struct {
	cfg    *config.Config
	logger logging.Logger

	mu      sync.Mutex
	closers []func() error

	search    *opensearch.Client
	store     *opensearch.RecordStore
	rdb       *redis.Client
	producer  *kafka.Producer
	objects   *minio.Client
	collector prometheus.Collector
	metrics   *prometheus.RecordMetrics
	svc       indexing.Service
}

// NewBackend is the BackendFactory used outside tests.
func NewBackend(cfg *config.Config, logger logging.Logger) Backend {
	return &infraBackend{cfg: cfg, logger: logger}
}

func (b *infraBackend) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases every client in reverse order of creation.
func (b *infraBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

func (b *infraBackend) recordStore() (*opensearch.RecordStore, error) {
	if b.store != nil {
		return b.store, nil
	}
	oc := b.cfg.OpenSearch
	client, err := opensearch.NewClient(opensearch.ClientConfig{
		Addresses:          oc.Addresses,
		Username:           oc.Username,
		Password:           oc.Password,
		InsecureSkipVerify: oc.InsecureSkipVerify,
		MaxRetries:         oc.MaxRetries,
		RequestTimeout:     oc.RequestTimeout,
	}, b.logger)
	if err != nil {
		return nil, err
	}
	b.onClose(client.Close)

	indexer := opensearch.NewIndexer(client, opensearch.IndexerConfig{
		BulkBatchSize: oc.BulkBatchSize,
		RefreshPolicy: oc.Refresh,
	}, b.logger)
	searcher := opensearch.NewSearcher(client, opensearch.SearcherConfig{}, b.logger)
	store, err := opensearch.NewRecordStore(indexer, searcher, oc.Indices.ByKind(), opensearch.MappingOptions{}, b.logger)
	if err != nil {
		return nil, err
	}
	b.search, b.store = client, store
	return store, nil
}

func (b *infraBackend) redisClient() (*redis.Client, error) {
	if !b.cfg.Redis.Enabled || b.rdb != nil {
		return b.rdb, nil
	}
	rc := b.cfg.Redis
	client, err := redis.NewClient(redis.ClientConfig{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	}, b.logger)
	if err != nil {
		return nil, err
	}
	b.onClose(client.Close)
	b.rdb = client
	return client, nil
}

func (b *infraBackend) kafkaProducer() (*kafka.Producer, error) {
	if !b.cfg.Kafka.Enabled || b.producer != nil {
		return b.producer, nil
	}
	kc := b.cfg.Kafka
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      kc.Brokers,
		MaxRetries:   kc.MaxRetries,
		BatchSize:    kc.BatchSize,
		BatchTimeout: kc.BatchTimeout,
	}, b.logger)
	if err != nil {
		return nil, err
	}
	b.onClose(producer.Close)
	b.producer = producer
	return producer, nil
}

func (b *infraBackend) minioClient() (*minio.Client, error) {
	if !b.cfg.MinIO.Enabled {
		return nil, errMinIODisabled
	}
	if b.objects != nil {
		return b.objects, nil
	}
	mc := b.cfg.MinIO
	client, err := minio.NewClient(minio.ClientConfig{
		Endpoint:  mc.Endpoint,
		AccessKey: mc.AccessKey,
		SecretKey: mc.SecretKey,
		UseSSL:    mc.UseSSL,
		Region:    mc.Region,
		Bucket:    mc.Bucket,
	}, b.logger)
	if err != nil {
		return nil, err
	}
	b.onClose(client.Close)
	b.objects = client
	return client, nil
}

// recordMetrics returns nil when metrics are disabled.
func (b *infraBackend) recordMetrics() (*prometheus.RecordMetrics, error) {
	if !b.cfg.Metrics.Enabled || b.metrics != nil {
		return b.metrics, nil
	}
	collector, err := prometheus.NewCollector(prometheus.CollectorConfig{
		Namespace:            b.cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, b.logger)
	if err != nil {
		return nil, err
	}
	b.collector = collector
	b.metrics = prometheus.NewRecordMetrics(collector)
	return b.metrics, nil
}

// Service wires the indexing service with every enabled collaborator.
func (b *infraBackend) Service() (indexing.Service, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.service()
}

func (b *infraBackend) service() (indexing.Service, error) {
	if b.svc != nil {
		return b.svc, nil
	}
	store, err := b.recordStore()
	if err != nil {
		return nil, err
	}

	var opts []indexing.Option
	rdb, err := b.redisClient()
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		opts = append(opts,
			indexing.WithCache(redis.NewRecordCache(rdb, b.logger,
				redis.WithPrefix(b.cfg.Redis.KeyPrefix),
				redis.WithTTL(b.cfg.Redis.TTL))),
			indexing.WithIndexLock(redis.NewLocker(rdb, b.cfg.Redis.KeyPrefix, b.logger).NewMutex("indices")))
	} else if b.cfg.Redis.LocalSize > 0 {
		cache, err := local.NewRecordCache(b.cfg.Redis.LocalSize, b.logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, indexing.WithCache(cache))
	}

	cfg := indexing.Config{
		ErrorPolicy: b.cfg.Ingest.ErrorPolicy,
		Concurrency: b.cfg.Ingest.Concurrency,
	}
	producer, err := b.kafkaProducer()
	if err != nil {
		return nil, err
	}
	if producer != nil {
		cfg.EventsTopic = b.cfg.Kafka.EventsTopic
		opts = append(opts, indexing.WithPublisher(producer))
	}

	metrics, err := b.recordMetrics()
	if err != nil {
		return nil, err
	}
	if metrics != nil {
		opts = append(opts, indexing.WithMetrics(metrics))
	}

	svc, err := indexing.NewService(store, cfg, b.logger, opts...)
	if err != nil {
		return nil, err
	}
	b.svc = svc
	return svc, nil
}

// Archive wires the exporter to the snapshot bucket.
func (b *infraBackend) Archive() (Archive, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	objects, err := b.minioClient()
	if err != nil {
		return nil, err
	}
	store, err := b.recordStore()
	if err != nil {
		return nil, err
	}
	snapshots := minio.NewSnapshotStore(objects, b.cfg.MinIO.Prefix, b.logger)
	return indexing.NewExporter(store, snapshots, b.cfg.Ingest.BatchSize, b.logger), nil
}

// Server wires the HTTP API. Health covers every connected dependency.
func (b *infraBackend) Server() (*httpapi.Server, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	svc, err := b.service()
	if err != nil {
		return nil, err
	}

	checkers := []handlers.HealthChecker{b.search}
	if b.rdb != nil {
		checkers = append(checkers, b.rdb)
	}
	if b.cfg.MinIO.Enabled {
		objects, err := b.minioClient()
		if err != nil {
			return nil, err
		}
		checkers = append(checkers, objects)
	}

	routes := httpapi.RouterConfig{
		Mode:          b.cfg.Server.Mode,
		RecordHandler: handlers.NewRecordHandler(svc),
		HealthHandler: handlers.NewHealthHandler(Version, checkers...),
		Logging:       middleware.DefaultLoggingConfig(),
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: b.cfg.Server.RateLimitRPS,
			Burst:             b.cfg.Server.RateLimitBurst,
			SkipPaths:         []string{"/healthz", "/livez", b.cfg.Metrics.Path},
		},
		Logger: b.logger,
	}
	if b.metrics != nil {
		routes.MetricsHandler = b.collector.Handler()
		routes.MetricsPath = b.cfg.Metrics.Path
		routes.Observer = b.metrics
	}
	return httpapi.NewServer(b.cfg.Server, httpapi.NewRouter(routes), b.logger), nil
}

// Worker creates the ingest topics and returns a consumer feeding the
// ingest topic to an IngestHandler. Requests that exhaust their retries go
// to the dead-letter topic.
func (b *infraBackend) Worker(ctx context.Context) (*kafka.Consumer, error) {
	if !b.cfg.Kafka.Enabled {
		return nil, errKafkaDisabled
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	kc := b.cfg.Kafka
	topics, err := kafka.NewTopicManager(kc.Brokers, b.logger)
	if err != nil {
		return nil, err
	}
	err = topics.EnsureTopics(ctx, kafka.DefaultTopics(kc.IngestTopic, kc.EventsTopic)...)
	_ = topics.Close()
	if err != nil {
		return nil, err
	}

	svc, err := b.service()
	if err != nil {
		return nil, err
	}
	var handlerMetrics indexing.Metrics
	if b.metrics != nil {
		handlerMetrics = b.metrics
	}
	handler := indexing.NewIngestHandler(svc, b.cfg.Ingest.Toolkit, handlerMetrics, b.logger)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:  kc.Brokers,
		GroupID:  kc.GroupID,
		Topics:   []string{kc.IngestTopic},
		MinBytes: kc.MinBytes,
		MaxBytes: kc.MaxBytes,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      kc.MaxRetries,
			DeadLetterTopic: kafka.DeadLetterTopic(kc.IngestTopic),
		},
	}, b.producer, b.logger)
	if err != nil {
		return nil, err
	}
	consumer.Subscribe(kc.IngestTopic, handler.Handle)
	b.onClose(consumer.Close)
	return consumer, nil
}

//Personal.AI order the ending

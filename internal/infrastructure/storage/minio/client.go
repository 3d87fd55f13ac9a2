// Package minio archives record snapshots in an S3-compatible bucket.
// A snapshot is one NDJSON object per export: one index document per line.
package minio

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
	"github.com/turtacn/chemindex/pkg/types/common"
)

var (
	ErrClientClosed     = errors.New(errors.ErrCodeStorageFailed, "minio client is closed")
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "minio connection failed")
)

// ObjectAPI is the part of the MinIO SDK the store uses. GetObject returns
// a plain reader so tests do not need a live *minio.Object.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// sdkClient adapts *minio.Client to ObjectAPI.
type sdkClient struct {
	*minio.Client
}

func (c sdkClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucketName, objectName, opts)
}

// ClientConfig holds the connection settings.
type ClientConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Region         string
	Bucket         string
	ConnectTimeout time.Duration
}

// Client owns the connection to one bucket.
type Client struct {
	api    ObjectAPI
	config ClientConfig
	logger logging.Logger
	closed atomic.Bool
}

// NewClient connects to the endpoint and creates the bucket when missing.
func NewClient(cfg ClientConfig, log logging.Logger) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailed, "failed to create minio client")
	}

	c := newClient(sdkClient{mc}, cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, ErrConnectionFailed.WithDetail("endpoint=" + cfg.Endpoint).WithCause(err)
	}

	c.logger.Info("minio client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func newClient(api ObjectAPI, cfg ClientConfig, log logging.Logger) *Client {
	applyDefaults(&cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{api: api, config: cfg, logger: log.Named("minio")}
}

func applyDefaults(cfg *ClientConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
}

// ValidateConfig checks the settings NewClient cannot default.
func ValidateConfig(cfg ClientConfig) error {
	if cfg.Endpoint == "" {
		return errors.New(errors.ErrCodeValidation, "minio endpoint is required")
	}
	if cfg.Bucket == "" {
		return errors.New(errors.ErrCodeValidation, "minio bucket is required")
	}
	return nil
}

// EnsureBucket creates the configured bucket if it does not exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailed, "failed to check bucket").
			WithDetail("bucket=" + c.config.Bucket)
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeStorageFailed, "failed to create bucket").
			WithDetail("bucket=" + c.config.Bucket)
	}
	c.logger.Info("bucket created", logging.String("bucket", c.config.Bucket))
	return nil
}

// Health reports whether the bucket is reachable.
func (c *Client) Health(ctx context.Context) common.ComponentHealth {
	start := time.Now()
	h := common.ComponentHealth{Name: "minio", Status: common.HealthUp}
	if c.closed.Load() {
		h.Status = common.HealthDown
		h.Message = ErrClientClosed.Error()
		return h
	}
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	switch {
	case err != nil:
		h.Status = common.HealthDown
		h.Message = err.Error()
	case !exists:
		h.Status = common.HealthDegraded
		h.Message = "bucket " + c.config.Bucket + " missing"
	}
	h.Latency = time.Since(start)
	return h
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.config.Bucket
}

// Close marks the client closed. The SDK keeps no connections to release.
func (c *Client) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.logger.Info("minio client closed")
	}
	return nil
}

//Personal.AI order the ending

package minio

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Client wraps the MinIO client for the file storage layer
type Client struct {
	client *minio.Client
	config *Config
	logger *zap.Logger
}

// NewClient creates a new MinIO client
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	}
	if cfg.Region != "" {
		opts.Region = cfg.Region
	}

	minioClient, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, WrapError("NewClient", err, "", "")
	}

	if logger != nil {
		logger.Info("minio client initialized",
			zap.String("endpoint", cfg.Endpoint),
			zap.String("bucket", cfg.Bucket),
			zap.Bool("use_ssl", cfg.UseSSL),
		)
	}

	return &Client{
		client: minioClient,
		config: cfg,
		logger: logger,
	}, nil
}

// EnsureBucket creates the configured bucket if it does not exist yet
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return WrapError("EnsureBucket", err, c.config.Bucket, "")
	}
	if exists {
		return nil
	}

	opts := minio.MakeBucketOptions{Region: c.config.Region}
	if err := c.client.MakeBucket(ctx, c.config.Bucket, opts); err != nil {
		return WrapError("EnsureBucket", err, c.config.Bucket, "")
	}

	if c.logger != nil {
		c.logger.Info("created minio bucket", zap.String("bucket", c.config.Bucket))
	}
	return nil
}

// Ping checks if the MinIO server is accessible
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.ListBuckets(ctx)
	if err != nil {
		return WrapError("Ping", err, "", "")
	}
	return nil
}

// Bucket returns the configured bucket name
func (c *Client) Bucket() string {
	return c.config.Bucket
}

// Underlying returns the wrapped MinIO client
func (c *Client) Underlying() *minio.Client {
	return c.client
}

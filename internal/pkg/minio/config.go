package minio

import "errors"

// Config represents the configuration for the MinIO client
type Config struct {
	// Endpoint is the S3-compatible object storage endpoint,
	// e.g. "localhost:9000" or "s3.amazonaws.com"
	Endpoint string `mapstructure:"endpoint"`

	AccessKeyID     string `mapstructure:"accesskeyid"`
	SecretAccessKey string `mapstructure:"secretaccesskey"`

	// Region of the object storage (optional)
	Region string `mapstructure:"region"`

	// UseSSL determines whether to use HTTPS
	UseSSL bool `mapstructure:"usessl"`

	// Bucket is the bucket holding uploaded files, created on startup if missing
	Bucket string `mapstructure:"bucket"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: endpoint is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("minio: access key ID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("minio: secret access key is required")
	}
	if c.Bucket == "" {
		return errors.New("minio: bucket is required")
	}
	return nil
}

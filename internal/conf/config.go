package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/duongdat/filehub-backend/internal/pkg/database"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
	"github.com/duongdat/filehub-backend/internal/pkg/minio"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database database.Config `mapstructure:"database"`
	MinIO    minio.Config    `mapstructure:"minio"`
	Storage  StorageConfig   `mapstructure:"storage"`
	Upload   UploadConfig    `mapstructure:"upload"`
	Auth     AuthConfig      `mapstructure:"auth"`
	OpenAI   OpenAIConfig    `mapstructure:"openai"`
	Log      logger.Config   `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig configures the local fallback storage
type StorageConfig struct {
	// LocalRoot is the directory holding fallback copies of uploaded files
	LocalRoot string `mapstructure:"localroot"`
	// KeepLocalBackup writes a local copy even when the primary store succeeds
	KeepLocalBackup bool `mapstructure:"keeplocalbackup"`
}

type UploadConfig struct {
	// MaxSizeBytes rejects uploads larger than this (default 100 MiB)
	MaxSizeBytes int64 `mapstructure:"maxsizebytes"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwtsecret"`
	JWTIssuer     string        `mapstructure:"jwtissuer"`
	TokenDuration time.Duration `mapstructure:"tokenduration"`
}

type OpenAIConfig struct {
	// Enabled toggles generative responses; when false the assistant
	// answers with deterministic templates only
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"apikey"`
	BaseURL string `mapstructure:"baseurl"`
	Model   string `mapstructure:"model"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.LocalRoot == "" {
		c.Storage.LocalRoot = "./uploads"
	}
	if c.Upload.MaxSizeBytes == 0 {
		c.Upload.MaxSizeBytes = 100 << 20
	}
	if c.Auth.TokenDuration == 0 {
		c.Auth.TokenDuration = 24 * time.Hour
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
}

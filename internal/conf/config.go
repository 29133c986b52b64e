package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// StorageConfig holds the upload and processing pipeline settings
type StorageConfig struct {
	// PresignExpiry is the lifetime of presigned upload and download URLs
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	// CacheSafetyBuffer is subtracted from PresignExpiry when caching
	// download URLs so a cached URL never outlives its signature
	CacheSafetyBuffer time.Duration `mapstructure:"cache_safety_buffer"`
	// MaxFileSize is the largest accepted upload in bytes
	MaxFileSize int64 `mapstructure:"max_file_size"`

	ThumbnailMaxDimension int `mapstructure:"thumbnail_max_dimension"`
	ThumbnailJPEGQuality  int `mapstructure:"thumbnail_jpeg_quality"`

	// ReconcileInterval is how often the sweep for unprocessed photos runs
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	// ReconcileGrace excludes photos uploaded within this window from the sweep
	ReconcileGrace time.Duration `mapstructure:"reconcile_grace"`
	// ReconcileBatchCap limits how many photos one sweep picks up
	ReconcileBatchCap int `mapstructure:"reconcile_batch_cap"`

	// OrphanInterval is how often the stale reservation cleanup runs
	OrphanInterval time.Duration `mapstructure:"orphan_interval"`
	// OrphanTimeout is how long a pending upload may stay unconfirmed
	OrphanTimeout time.Duration `mapstructure:"orphan_timeout"`

	// DeleteBatchSize caps object keys per bulk delete request
	DeleteBatchSize int `mapstructure:"delete_batch_size"`
}

// WorkerConfig holds the background worker settings
type WorkerConfig struct {
	// Count is the number of concurrent task workers
	Count int `mapstructure:"count"`
	// PollInterval is how often idle workers poll the task queue
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// MaxTaskRetries is how many times a failed task is re-enqueued
	MaxTaskRetries int `mapstructure:"max_task_retries"`
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("minio.region", "us-east-1")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "stdout")

	viper.SetDefault("storage.presign_expiry", 15*time.Minute)
	viper.SetDefault("storage.cache_safety_buffer", time.Minute)
	viper.SetDefault("storage.max_file_size", int64(50*1024*1024))
	viper.SetDefault("storage.thumbnail_max_dimension", 800)
	viper.SetDefault("storage.thumbnail_jpeg_quality", 85)
	viper.SetDefault("storage.reconcile_interval", 5*time.Minute)
	viper.SetDefault("storage.reconcile_grace", 5*time.Minute)
	viper.SetDefault("storage.reconcile_batch_cap", 500)
	viper.SetDefault("storage.orphan_interval", time.Hour)
	viper.SetDefault("storage.orphan_timeout", time.Hour)
	viper.SetDefault("storage.delete_batch_size", 1000)

	viper.SetDefault("worker.count", 4)
	viper.SetDefault("worker.poll_interval", time.Second)
	viper.SetDefault("worker.max_task_retries", 3)
}

func LoadConfig(path string) (*Config, error) {
	setDefaults()

	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.MinIO.Endpoint == "" {
		return fmt.Errorf("minio endpoint is required")
	}
	if c.MinIO.Bucket == "" {
		return fmt.Errorf("minio bucket is required")
	}
	if c.Storage.PresignExpiry <= 0 {
		return fmt.Errorf("presign expiry must be positive")
	}
	if c.Storage.CacheSafetyBuffer >= c.Storage.PresignExpiry {
		return fmt.Errorf("cache safety buffer must be shorter than presign expiry")
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}
	if c.Storage.DeleteBatchSize <= 0 || c.Storage.DeleteBatchSize > 1000 {
		return fmt.Errorf("delete batch size must be between 1 and 1000")
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "gallery", DBName: "gallery"},
		MinIO:    MinIOConfig{Endpoint: "localhost:9000", Bucket: "photos"},
		Storage: StorageConfig{
			PresignExpiry:     15 * time.Minute,
			CacheSafetyBuffer: time.Minute,
			MaxFileSize:       50 * 1024 * 1024,
			DeleteBatchSize:   1000,
		},
		Worker: WorkerConfig{Count: 4},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing minio endpoint", func(c *Config) { c.MinIO.Endpoint = "" }, true},
		{"missing bucket", func(c *Config) { c.MinIO.Bucket = "" }, true},
		{"zero presign expiry", func(c *Config) { c.Storage.PresignExpiry = 0 }, true},
		{"buffer exceeds expiry", func(c *Config) { c.Storage.CacheSafetyBuffer = 20 * time.Minute }, true},
		{"zero max file size", func(c *Config) { c.Storage.MaxFileSize = 0 }, true},
		{"delete batch over backend limit", func(c *Config) { c.Storage.DeleteBatchSize = 1500 }, true},
		{"zero workers", func(c *Config) { c.Worker.Count = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := &DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "gallery", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=gallery sslmode=disable", cfg.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := &RedisConfig{Host: "cache", Port: 6379}
	assert.Equal(t, "cache:6379", cfg.Addr())
}

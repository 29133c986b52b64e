package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "missing host",
			config: &Config{
				Host:     "",
				Port:     5432,
				User:     "user",
				DBName:   "test",
				SSLMode:  "disable",
				LogLevel: "warn",
			},
			wantErr: true,
		},
		{
			name: "invalid port",
			config: &Config{
				Host:     "localhost",
				Port:     0,
				User:     "user",
				DBName:   "test",
				SSLMode:  "disable",
				LogLevel: "warn",
			},
			wantErr: true,
		},
		{
			name: "invalid SSL mode",
			config: &Config{
				Host:     "localhost",
				Port:     5432,
				User:     "user",
				DBName:   "test",
				SSLMode:  "maybe",
				LogLevel: "warn",
			},
			wantErr: true,
		},
		{
			name: "idle exceeds open",
			config: &Config{
				Host:         "localhost",
				Port:         5432,
				User:         "user",
				DBName:       "test",
				SSLMode:      "disable",
				LogLevel:     "warn",
				MaxIdleConns: 50,
				MaxOpenConns: 10,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db.internal",
		Port:     5433,
		User:     "gallery",
		Password: "secret",
		DBName:   "gallery",
		SSLMode:  "require",
		Timezone: "UTC",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "dbname=gallery")
	assert.Contains(t, dsn, "sslmode=require")
	assert.Contains(t, dsn, "TimeZone=UTC")
}

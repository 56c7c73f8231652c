package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(newViper(nil))
	if err != nil {
		t.Fatalf("FromViper() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.JWT.Expiration != 24*time.Hour {
		t.Errorf("JWT.Expiration = %v, want 24h", cfg.JWT.Expiration)
	}
	if cfg.JWT.Secret == "" {
		t.Error("development config should fall back to a JWT secret")
	}
	if cfg.Exam.AllowResubmission {
		t.Error("resubmission should be disabled by default")
	}
	if cfg.Kafka.Topic != "exam-events" {
		t.Errorf("Kafka.Topic = %s, want exam-events", cfg.Kafka.Topic)
	}
	if got := cfg.Database.DSN(); got != "host=localhost port=5432 user=postgres password=postgres dbname=exam_service sslmode=disable TimeZone=UTC" {
		t.Errorf("DSN() = %s", got)
	}
}

func TestFromViper(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "production requires jwt secret",
			values:  map[string]any{"ENVIRONMENT": "production"},
			wantErr: true,
		},
		{
			name:    "unknown storage driver",
			values:  map[string]any{"STORAGE_DRIVER": "mongo"},
			wantErr: true,
		},
		{
			name:    "casdoor without endpoint",
			values:  map[string]any{"AUTH_PROVIDER": "casdoor"},
			wantErr: true,
		},
		{
			name:    "bad log level",
			values:  map[string]any{"LOG_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:    "kafka enabled without brokers",
			values:  map[string]any{"KAFKA_ENABLED": true, "KAFKA_BROKERS": " , "},
			wantErr: true,
		},
		{
			name: "database url wins",
			values: map[string]any{
				"DATABASE_URL": "postgres://u:p@db:5432/exams",
				"LOG_LEVEL":    "debug",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Database.DSN() != "postgres://u:p@db:5432/exams" {
					t.Errorf("DSN() = %s", cfg.Database.DSN())
				}
				if cfg.LogLevel != slog.LevelDebug {
					t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
				}
			},
		},
		{
			name: "broker list is split and trimmed",
			values: map[string]any{
				"KAFKA_ENABLED": true,
				"KAFKA_BROKERS": "k1:9092, k2:9092,",
			},
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
					t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
				}
			},
		},
		{
			name: "memory storage with resubmission",
			values: map[string]any{
				"STORAGE_DRIVER":          "MEMORY",
				"EXAM_ALLOW_RESUBMISSION": "true",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.StorageDriver != StorageDriverMemory {
					t.Errorf("StorageDriver = %s", cfg.StorageDriver)
				}
				if !cfg.Exam.AllowResubmission {
					t.Error("AllowResubmission = false, want true")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromViper(newViper(tt.values))
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromViper() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

// Package config loads the process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Backend selection: memory, sqlite or remote.
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// Remote persistence service
	RemoteURL   string
	RemoteToken string

	// Identity
	StaticUserID     string
	IdentityAudience string

	// AMQP change-event fanout; empty URL disables it.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sync worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Insight engine
	InteractionLogPath  string
	InsightCacheSize    int
	InsightCacheTTL     time.Duration
	EmergencyFund       float64
	MonthlyDebtPayments float64
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finvoice.db"),

		RemoteURL:   getEnv("FINVOICE_REMOTE_URL", ""),
		RemoteToken: getEnv("FINVOICE_REMOTE_TOKEN", ""),

		StaticUserID:     getEnv("FINVOICE_USER_ID", "local"),
		IdentityAudience: getEnv("IDENTITY_AUDIENCE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finvoice"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_changes"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		InteractionLogPath:  getEnv("INTERACTION_LOG_PATH", ""),
		InsightCacheSize:    getEnvInt("INSIGHT_CACHE_SIZE", 128),
		InsightCacheTTL:     getEnvDuration("INSIGHT_CACHE_TTL", 5*time.Minute),
		EmergencyFund:       getEnvFloat("EMERGENCY_FUND", 0),
		MonthlyDebtPayments: getEnvFloat("MONTHLY_DEBT_PAYMENTS", 0),
	}
}

// Validate checks the loaded configuration, creating the SQLite data
// directory as a side effect when the sqlite backend is selected.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "remote":
		if c.RemoteURL == "" {
			problems = append(problems, "remote URL is required when using remote backend")
		} else if u, err := url.Parse(c.RemoteURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			problems = append(problems, fmt.Sprintf("invalid remote URL '%s': must be http or https", c.RemoteURL))
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite remote]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 || c.SyncBatchSize > 1000 {
		problems = append(problems, fmt.Sprintf("invalid sync batch size %d: must be between 1 and 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second || c.SyncInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid sync interval %v: must be between 1s and 24h", c.SyncInterval))
	}

	if c.InsightCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid insight cache size %d: must be at least 1", c.InsightCacheSize))
	}
	if c.InsightCacheTTL < time.Second {
		problems = append(problems, fmt.Sprintf("invalid insight cache TTL %v: must be at least 1 second", c.InsightCacheTTL))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

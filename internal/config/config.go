package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pivik/internal/core"
)

type Config struct {
	// HTTP Server
	Port           string
	MaxUploadBytes int64

	// Persistence
	DataBackend    string
	SQLiteDBPath   string
	SeedSampleData bool

	// AMQP ledger events; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Document storage
	DocumentBackend string
	UploadDir       string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	// Extraction
	OpenAIAPIKey string
	OpenAIModel  string

	// Budget program
	BudgetProject  string
	BudgetLimit    core.Money
	BudgetLowFunds core.Money

	// Google Sheets mirror
	GoogleSpreadsheetID    string
	GoogleSheetName        string
	GoogleSummarySheetName string
	SummaryInterval        time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validDataBackends     = []string{"memory", "sqlite"}
	validDocumentBackends = []string{"local", "minio"}
	validLogLevels        = []string{"debug", "info", "warn", "error"}
	validLogFormats       = []string{"text", "json"}
)

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		DataBackend:    getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/pivik.db"),
		SeedSampleData: getEnvBool("SEED_SAMPLE_DATA", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pivik"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		DocumentBackend: getEnv("DOCUMENT_BACKEND", "local"),
		UploadDir:       getEnv("UPLOAD_DIR", "./data/uploads"),
		MinioEndpoint:   getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:     getEnv("MINIO_BUCKET", "pivik-invoices"),
		MinioUseSSL:     getEnvBool("MINIO_USE_SSL", false),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", ""),

		BudgetProject:  getEnv("BUDGET_PROJECT", core.ProjectFedUp),
		BudgetLimit:    getEnvMoney("BUDGET_LIMIT", core.Money{Cents: 30000_00}),
		BudgetLowFunds: getEnvMoney("BUDGET_LOW_FUNDS", core.Money{Cents: 5000_00}),

		GoogleSpreadsheetID:    getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:        getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleSummarySheetName: getEnv("GOOGLE_SUMMARY_SHEET_NAME", "Summary"),
		SummaryInterval:        getEnvDuration("SUMMARY_INTERVAL", 5*time.Minute),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	if !oneOf(c.DataBackend, validDataBackends) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validDataBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(c.SQLiteDBPath); err != nil {
			errors = append(errors, err.Error())
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.DocumentBackend {
	case "local":
		if c.UploadDir == "" {
			errors = append(errors, "upload directory cannot be empty when using local document backend")
		}
	case "minio":
		if c.MinioEndpoint == "" {
			errors = append(errors, "MinIO endpoint is required when using minio document backend")
		}
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			errors = append(errors, "MinIO access and secret keys are required when using minio document backend")
		}
		if c.MinioBucket == "" {
			errors = append(errors, "MinIO bucket cannot be empty when using minio document backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid document backend '%s': must be one of %v", c.DocumentBackend, validDocumentBackends))
	}

	if strings.TrimSpace(c.BudgetProject) == "" {
		errors = append(errors, "budget project cannot be empty")
	}
	if c.BudgetLimit.Cents <= 0 {
		errors = append(errors, fmt.Sprintf("invalid budget limit %s: must be positive", c.BudgetLimit))
	}
	if c.BudgetLowFunds.Cents < 0 {
		errors = append(errors, fmt.Sprintf("invalid low funds threshold %s: must not be negative", c.BudgetLowFunds))
	}

	if c.SummaryInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid summary interval %v: must be at least 1 second", c.SummaryInterval))
	} else if c.SummaryInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid summary interval %v: must be at most 24 hours", c.SummaryInterval))
	}

	if !oneOf(c.LogLevel, validLogLevels) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !oneOf(c.LogFormat, validLogFormats) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ensureDir creates the parent directory of path when missing.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory '%s': %v", dir, err)
		}
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// getEnvMoney reads a dollar amount such as "30000" or "30000.00".
func getEnvMoney(key string, defaultValue core.Money) core.Money {
	if value := os.Getenv(key); value != "" {
		if m, err := core.ParseAmount(value); err == nil {
			return m
		}
	}
	return defaultValue
}

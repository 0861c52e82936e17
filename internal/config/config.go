// Package config loads runtime settings from the environment. A local .env
// file is read first when present.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"arwaeduc/internal/core"
)

type Config struct {
	// HTTP Server
	Port               string `envconfig:"PORT" default:"8081"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// School
	SchoolName    string `envconfig:"SCHOOL_NAME" default:"ArwaEduc"`
	Timezone      string `envconfig:"TIMEZONE" default:"Africa/Casablanca"`
	ReportLocale  string `envconfig:"REPORT_LOCALE" default:"fr"`
	CurrencyLabel string `envconfig:"CURRENCY_LABEL" default:"DH"`
	ReceiptWidth  int    `envconfig:"RECEIPT_WIDTH" default:"48"`

	// Payroll
	HoursPerGroup     int    `envconfig:"PAYROLL_HOURS_PER_GROUP" default:"8"`
	RevenuePerStudent string `envconfig:"PAYROLL_REVENUE_PER_STUDENT" default:"500.00"`

	// Backend selection
	DataBackend   string `envconfig:"DATA_BACKEND" default:"memory"`
	DataDirectory string `envconfig:"DATA_DIRECTORY" default:"./data"`
	SQLiteDBPath  string `envconfig:"SQLITE_DB_PATH" default:"./data/arwaeduc.db"`

	// AMQP
	AMQPURL         string `envconfig:"AMQP_URL"`
	AMQPExchange    string `envconfig:"AMQP_EXCHANGE" default:"arwaeduc"`
	AMQPReportQueue string `envconfig:"AMQP_REPORT_QUEUE" default:"report.requested"`
	AMQPEventQueue  string `envconfig:"AMQP_EVENT_QUEUE" default:"record.created"`

	// Cache
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheSize int           `envconfig:"CACHE_SIZE" default:"256"`

	// Reports
	ReportDir        string        `envconfig:"REPORT_DIR" default:"./data/reports"`
	ScheduleInterval time.Duration `envconfig:"REPORT_SCHEDULE_INTERVAL" default:"1h"`

	// Google Sheets
	GoogleSpreadsheetID   string `envconfig:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName       string `envconfig:"GOOGLE_SHEET_NAME" default:"Reports"`
	GoogleCredentialsJSON string `envconfig:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleCredentialsFile string `envconfig:"GOOGLE_SERVICE_ACCOUNT_FILE"`
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, nil
}

// Location resolves Timezone, falling back to UTC when it is empty.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// RevenuePerStudentCents parses RevenuePerStudent.
func (c *Config) RevenuePerStudentCents() (int64, error) {
	return core.ParseDecimalToCents(c.RevenuePerStudent)
}

// SheetsEnabled reports whether monthly summaries go to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if c.ReceiptWidth != 32 && c.ReceiptWidth != 48 {
		errors = append(errors, fmt.Sprintf("invalid receipt width %d: must be 32 or 48", c.ReceiptWidth))
	}
	if c.HoursPerGroup < 1 {
		errors = append(errors, fmt.Sprintf("invalid hours per group %d: must be at least 1", c.HoursPerGroup))
	}
	if _, err := c.RevenuePerStudentCents(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid revenue per student '%s': must be a positive amount", c.RevenuePerStudent))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(filepath.Dir(c.SQLiteDBPath)); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create SQLite database directory: %v", err))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPReportQueue == "" || c.AMQPEventQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}

	if c.ScheduleInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid schedule interval %v: must be at least 1 minute", c.ScheduleInterval))
	} else if c.ScheduleInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid schedule interval %v: must be at most 24 hours", c.ScheduleInterval))
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for Sheets publishing")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

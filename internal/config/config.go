// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// File paths
	StoragePath  string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from StoragePath and Environment

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseMaxOpenConns int `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int `mapstructure:"dbmaxidleconns"`

	// Insights service (external analytics) settings
	InsightsBaseURL         string `mapstructure:"insightsbaseurl"`
	InsightsAPIKey          string `mapstructure:"insightsapikey"`
	InsightsQueryKind       string `mapstructure:"insightsquerykind"`
	InsightsTimeoutSeconds  int    `mapstructure:"insightstimeoutseconds"`
	InsightsMaxRetries      int    `mapstructure:"insightsmaxretries"`
	InsightsRetryBaseMillis int    `mapstructure:"insightsretrybasemillis"`

	// Filtering settings
	InternalDomains string `mapstructure:"internaldomains"`
	ExtraTimezones  string `mapstructure:"extratimezones"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		// Load .env if present; real env vars take precedence
		_ = godotenv.Load()

		v := viper.New()

		v.SetDefault("appname", "gsa")
		v.SetDefault("appport", "4000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("storagepath", "storage")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("insightsbaseurl", "https://app.posthog.com")
		v.SetDefault("insightsquerykind", "HogQLQuery")
		v.SetDefault("insightstimeoutseconds", 30)
		v.SetDefault("insightsmaxretries", 3)
		v.SetDefault("insightsretrybasemillis", 250)
		v.SetDefault("internaldomains", "gridstatus.io")
		v.SetDefault("extratimezones", "")

		v.BindEnv("appname", "GSA_APP_NAME")
		v.BindEnv("appport", "GSA_APP_PORT")
		v.BindEnv("environment", "GSA_ENV")
		v.BindEnv("loglevel", "GSA_LOG_LEVEL")
		v.BindEnv("storagepath", "GSA_STORAGE_PATH")
		v.BindEnv("logsdir", "GSA_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "GSA_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "GSA_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "GSA_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbmaxopenconns", "GSA_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "GSA_DB_MAX_IDLE_CONNS")
		v.BindEnv("insightsbaseurl", "GSA_INSIGHTS_BASE_URL")
		v.BindEnv("insightsapikey", "GSA_INSIGHTS_API_KEY")
		v.BindEnv("insightsquerykind", "GSA_INSIGHTS_QUERY_KIND")
		v.BindEnv("insightstimeoutseconds", "GSA_INSIGHTS_TIMEOUT_SECONDS")
		v.BindEnv("insightsmaxretries", "GSA_INSIGHTS_MAX_RETRIES")
		v.BindEnv("insightsretrybasemillis", "GSA_INSIGHTS_RETRY_BASE_MILLIS")
		v.BindEnv("internaldomains", "GSA_INTERNAL_DOMAINS")
		v.BindEnv("extratimezones", "GSA_EXTRA_TIMEZONES")

		c := &Config{}
		if err := v.Unmarshal(c); err != nil {
			panic(fmt.Sprintf("unable to decode config: %v", err))
		}

		c.DatabaseName = filepath.Join(c.StoragePath, c.AppName+"-"+c.Environment+".db")

		cfg = c
	})

	return cfg
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true when running in the test environment
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// InsightsTimeout returns the per-attempt timeout for insights queries
func (c *Config) InsightsTimeout() time.Duration {
	return time.Duration(c.InsightsTimeoutSeconds) * time.Second
}

// InsightsRetryBaseDelay returns the initial backoff delay for insights retries
func (c *Config) InsightsRetryBaseDelay() time.Duration {
	return time.Duration(c.InsightsRetryBaseMillis) * time.Millisecond
}

// InternalDomainList returns the operator-owned email/referrer domains
// excluded when internal-traffic filtering is on.
func (c *Config) InternalDomainList() []string {
	return splitTrimmed(c.InternalDomains)
}

// ExtraTimezoneList returns additional IANA zone names accepted beyond the
// built-in allow-list.
func (c *Config) ExtraTimezoneList() []string {
	return splitTrimmed(c.ExtraTimezones)
}

func splitTrimmed(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

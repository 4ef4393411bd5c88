package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"goinsight/domain/insight"
	"goinsight/internal/calculators"
	"goinsight/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Appraisal calculators.Appraisal
	Evidence  insight.Thresholds
	Server    ServerConfig
	Paths     PathConfig
	Batch     BatchConfig
	Database  DatabaseConfig
}

// DatabaseConfig holds the optional PostgreSQL connection. An empty URL
// disables database input.
type DatabaseConfig struct {
	URL          string
	Dataset      string
	DatasetQuery string
	MaxOpenConns int
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PathConfig holds file system paths
type PathConfig struct {
	DataFile    string
	DataSheet   string
	MetricsFile string
}

// BatchConfig holds settings for multi-metric runs
type BatchConfig struct {
	Timeout time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	appraisal, err := loadAppraisalConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load appraisal configuration")
	}
	config.Appraisal = *appraisal

	config.Evidence = *loadEvidenceConfig()
	config.Server = *loadServerConfig()
	config.Paths = *loadPathConfig()
	config.Batch = BatchConfig{Timeout: getEnvDurationOrDefault("BATCH_TIMEOUT", 30*time.Second)}
	config.Database = DatabaseConfig{
		URL:          getEnvOrDefault("DATABASE_URL", ""),
		Dataset:      getEnvOrDefault("DATASET_NAME", ""),
		DatasetQuery: getEnvOrDefault("DATASET_QUERY", ""),
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 5),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadAppraisalConfig() (*calculators.Appraisal, error) {
	defaults := calculators.DefaultAppraisal()

	rate := getEnvFloatOrDefault("DISCOUNT_RATE", defaults.DiscountRate)
	if rate <= -1 || rate >= 1 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("DISCOUNT_RATE must be a fraction, got %v", rate))
	}

	return &calculators.Appraisal{
		DiscountRate: rate,
		HorizonYears: getEnvIntOrDefault("APPRAISAL_HORIZON_YEARS", defaults.HorizonYears),
		Bands:        defaults.Bands,
	}, nil
}

// loadEvidenceConfig reads gate overrides. Zero means "use the rule default".
func loadEvidenceConfig() *insight.Thresholds {
	return &insight.Thresholds{
		GapPercent:      getEnvFloatOrDefault("GAP_PERCENT", 0),
		OutlierMultiple: getEnvFloatOrDefault("OUTLIER_MULTIPLE", 0),
		VariationCV:     getEnvFloatOrDefault("VARIATION_CV", 0),
		Alpha:           getEnvFloatOrDefault("ALPHA", 0),
		MinSampleSize:   getEnvIntOrDefault("MIN_SAMPLE_SIZE", 0),
		MinRankGroups:   getEnvIntOrDefault("MIN_RANK_GROUPS", 0),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:         getEnvOrDefault("PORT", "8080"),
		ReadTimeout:  getEnvDurationOrDefault("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDurationOrDefault("WRITE_TIMEOUT", 30*time.Second),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		DataFile:    getEnvOrDefault("DATA_FILE", ""),
		DataSheet:   getEnvOrDefault("DATA_SHEET", ""),
		MetricsFile: getEnvOrDefault("METRICS_FILE", "metrics.yaml"),
	}
}

func validateConfig(config *Config) error {
	if err := config.Appraisal.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if a := config.Evidence.Alpha; a < 0 || a >= 1 {
		return errors.ConfigInvalid("ALPHA must be in [0, 1)")
	}
	if config.Evidence.GapPercent < 0 {
		return errors.ConfigInvalid("GAP_PERCENT must not be negative")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Database.MaxOpenConns <= 0 {
		return errors.ConfigInvalid("DB_MAX_OPEN_CONNS must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReferenceFile string `yaml:"reference_file" envconfig:"REFERENCE_FILE"`
	BackupDir     string `yaml:"backup_dir" envconfig:"BACKUP_DIR"`
	ReportsDir    string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// AnalysisConfig contains the tunables of the reconciliation and
// aggregation engine.
type AnalysisConfig struct {
	// LowThresholdPct keeps rows whose percent-of-nominal value is at or
	// below it when the low filter is enabled.
	LowThresholdPct float64 `yaml:"low_threshold_pct" envconfig:"LOW_THRESHOLD_PCT" validate:"gt=0,lt=200"`
	// HighThresholdPct keeps rows whose percent-of-nominal value is at or
	// above it when the high filter is enabled.
	HighThresholdPct float64 `yaml:"high_threshold_pct" envconfig:"HIGH_THRESHOLD_PCT" validate:"gt=0,lt=200"`
	// StaleCodeRows is the non-null row-count cutoff under which the
	// reference zone-code column is considered stale and rebuilt from the
	// zones sheet. Heuristic; false positives are possible on very small
	// reference tables.
	StaleCodeRows int `yaml:"stale_code_rows" envconfig:"STALE_CODE_ROWS" validate:"gte=0"`
	// TopZones is the number of zones surfaced in summary views.
	TopZones int `yaml:"top_zones" envconfig:"TOP_ZONES" validate:"gte=1"`
	// SuggestionCount is the number of fuzzy-match candidates offered per
	// unresolved station.
	SuggestionCount int `yaml:"suggestion_count" envconfig:"SUGGESTION_COUNT" validate:"gte=1,lte=20"`
	// SignatureRows is the number of leading sheet rows hashed into the
	// duplicate-detection signature.
	SignatureRows int `yaml:"signature_rows" envconfig:"SIGNATURE_ROWS" validate:"gte=1"`
}

// defaultConfig is the baseline every load starts from.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  25,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/voltcli.log",
		},
		Paths: PathsConfig{
			DataDir:       "data",
			ReferenceFile: "DB_VietSub.xlsx",
			BackupDir:     "DB_backups",
			ReportsDir:    "reports",
			LogsDir:       "logs",
		},
		Analysis: AnalysisConfig{
			LowThresholdPct:  95,
			HighThresholdPct: 110,
			StaleCodeRows:    10,
			TopZones:         12,
			SuggestionCount:  5,
			SignatureRows:    20,
		},
	}
}

// Load layers configuration: built-in defaults, then the YAML file, then
// environment variables. Later layers win only where they set a value.
func Load() (*Config, error) {
	cfg := defaultConfig()

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(cfg, *fileCfg)
	}

	var envCfg Config
	if err := envconfig.Process("VOLT", &envCfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg = mergeConfigs(cfg, envCfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for structurally invalid values.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs overlays the non-zero fields of overlay on top of base.
func mergeConfigs(base, overlay Config) Config {
	merged := base

	if overlay.Server.Port != 0 {
		merged.Server.Port = overlay.Server.Port
	}
	if overlay.Server.ReadTimeout != 0 {
		merged.Server.ReadTimeout = overlay.Server.ReadTimeout
	}
	if overlay.Server.WriteTimeout != 0 {
		merged.Server.WriteTimeout = overlay.Server.WriteTimeout
	}
	if overlay.Server.IdleTimeout != 0 {
		merged.Server.IdleTimeout = overlay.Server.IdleTimeout
	}
	if overlay.Server.ShutdownTimeout != 0 {
		merged.Server.ShutdownTimeout = overlay.Server.ShutdownTimeout
	}
	if overlay.Server.RateLimitRPS != 0 {
		merged.Server.RateLimitRPS = overlay.Server.RateLimitRPS
	}
	if overlay.Server.RateLimitBurst != 0 {
		merged.Server.RateLimitBurst = overlay.Server.RateLimitBurst
	}
	if overlay.Logging.Level != "" {
		merged.Logging.Level = overlay.Logging.Level
	}
	if overlay.Logging.Format != "" {
		merged.Logging.Format = overlay.Logging.Format
	}
	if overlay.Logging.Output != "" {
		merged.Logging.Output = overlay.Logging.Output
	}
	if overlay.Logging.FilePath != "" {
		merged.Logging.FilePath = overlay.Logging.FilePath
	}
	if overlay.Paths.DataDir != "" {
		merged.Paths.DataDir = overlay.Paths.DataDir
	}
	if overlay.Paths.ReferenceFile != "" {
		merged.Paths.ReferenceFile = overlay.Paths.ReferenceFile
	}
	if overlay.Paths.BackupDir != "" {
		merged.Paths.BackupDir = overlay.Paths.BackupDir
	}
	if overlay.Paths.ReportsDir != "" {
		merged.Paths.ReportsDir = overlay.Paths.ReportsDir
	}
	if overlay.Paths.LogsDir != "" {
		merged.Paths.LogsDir = overlay.Paths.LogsDir
	}
	if overlay.Analysis.LowThresholdPct != 0 {
		merged.Analysis.LowThresholdPct = overlay.Analysis.LowThresholdPct
	}
	if overlay.Analysis.HighThresholdPct != 0 {
		merged.Analysis.HighThresholdPct = overlay.Analysis.HighThresholdPct
	}
	if overlay.Analysis.StaleCodeRows != 0 {
		merged.Analysis.StaleCodeRows = overlay.Analysis.StaleCodeRows
	}
	if overlay.Analysis.TopZones != 0 {
		merged.Analysis.TopZones = overlay.Analysis.TopZones
	}
	if overlay.Analysis.SuggestionCount != 0 {
		merged.Analysis.SuggestionCount = overlay.Analysis.SuggestionCount
	}
	if overlay.Analysis.SignatureRows != 0 {
		merged.Analysis.SignatureRows = overlay.Analysis.SignatureRows
	}

	return merged
}

// configFilePath returns the config file location, overridable via env.
func configFilePath() string {
	if path := os.Getenv("VOLT_CONFIG_FILE"); path != "" {
		return path
	}
	return "voltcli.yaml"
}

// Package config loads and validates the migration tool configuration from
// the environment (with optional .env file), exposing it as a typed struct.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// SolutionType selects the target workspace topology.
type SolutionType string

const (
	SolutionStandaloneWorkspaces SolutionType = "StandaloneWorkspaces"
	SolutionPortfolio            SolutionType = "Portfolio"
)

// Config is the complete configuration for a migration run. Fields are
// populated from environment variables (see the env tags) over defaults.
type Config struct {
	Smartsheet SmartsheetConfig `koanf:"smartsheet" validate:"required"`
	Source     SourceConfig     `koanf:"source"     validate:"required"`
	Auth       AuthConfig       `koanf:"auth"`
	Standards  StandardsConfig  `koanf:"standards"`
	Runtime    RuntimeConfig    `koanf:"runtime"`
}

// SmartsheetConfig holds target API settings.
type SmartsheetConfig struct {
	APIToken SensitiveString `koanf:"api_token" env:"SMARTSHEET_API_TOKEN" validate:"required" sensitive:"true"`
}

// SourceConfig holds Project Online settings.
type SourceConfig struct {
	TenantID         string  `koanf:"tenant_id"          env:"TENANT_ID"          validate:"required"`
	ClientID         string  `koanf:"client_id"          env:"CLIENT_ID"          validate:"required"`
	ProjectOnlineURL string  `koanf:"project_online_url" env:"PROJECT_ONLINE_URL" validate:"required,url"`
	RateLimitPerMin  int     `koanf:"rate_limit_per_min" env:"SOURCE_RATE_LIMIT"  validate:"min=1"`
}

// AuthConfig holds OAuth behavior settings.
type AuthConfig struct {
	UseDeviceCodeFlow bool          `koanf:"use_device_code_flow" env:"USE_DEVICE_CODE_FLOW"`
	TokenCacheDir     string        `koanf:"token_cache_dir"      env:"TOKEN_CACHE_DIR"`
	DeviceCodeTimeout time.Duration `koanf:"device_code_timeout"  env:"DEVICE_CODE_TIMEOUT"`
}

// StandardsConfig holds PMO Standards and template workspace settings.
type StandardsConfig struct {
	WorkspaceID         int64 `koanf:"workspace_id"          env:"PMO_STANDARDS_WORKSPACE_ID"`
	TemplateWorkspaceID int64 `koanf:"template_workspace_id" env:"TEMPLATE_WORKSPACE_ID"`
}

// RuntimeConfig holds run-level behavior settings.
type RuntimeConfig struct {
	SolutionType   SolutionType  `koanf:"solution_type"   env:"SOLUTION_TYPE"   validate:"oneof=StandaloneWorkspaces Portfolio"`
	LogLevel       string        `koanf:"log_level"       env:"LOG_LEVEL"       validate:"oneof=DEBUG INFO WARN ERROR SILENT"`
	BatchSize      int           `koanf:"batch_size"      env:"BATCH_SIZE"      validate:"min=1,max=500"`
	MaxRetries     int           `koanf:"max_retries"     env:"MAX_RETRIES"     validate:"min=1"`
	RetryDelay     time.Duration `koanf:"retry_delay"     env:"RETRY_DELAY"`
	RequestTimeout time.Duration `koanf:"request_timeout" env:"REQUEST_TIMEOUT"`
	DryRun         bool          `koanf:"dry_run"         env:"DRY_RUN"`
	Concurrency    int           `koanf:"concurrency"     env:"CONCURRENCY"     validate:"min=1,max=16"`
	ReportPath     string        `koanf:"report_path"     env:"REPORT_PATH"`
}

// Default returns the configuration defaults applied below the environment.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			RateLimitPerMin: 300,
		},
		Auth: AuthConfig{
			TokenCacheDir:     defaultTokenCacheDir(),
			DeviceCodeTimeout: 5 * time.Minute,
		},
		Runtime: RuntimeConfig{
			SolutionType:   SolutionStandaloneWorkspaces,
			LogLevel:       "INFO",
			BatchSize:      100,
			MaxRetries:     3,
			RetryDelay:     1000 * time.Millisecond,
			RequestTimeout: 30 * time.Second,
			Concurrency:    3,
			ReportPath:     "formula-fields-report.csv",
		},
	}
}

func defaultTokenCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".sheetbridge", "tokens")
	}
	return filepath.Join(home, ".cache", "sheetbridge", "tokens")
}

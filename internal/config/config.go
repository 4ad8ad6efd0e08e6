// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrGeminiAPIKeyRequired is returned when the veo backend is selected without GEMINI_API_KEY.
	ErrGeminiAPIKeyRequired = errors.New("config: GEMINI_API_KEY is required for the veo backend")
	// ErrStabilityAPIKeyRequired is returned when the stability backend is selected without STABILITY_API_KEY.
	ErrStabilityAPIKeyRequired = errors.New("config: STABILITY_API_KEY is required for the stability backend")
	// ErrUnknownBackend is returned when BACKEND names an unsupported vendor.
	ErrUnknownBackend = errors.New("config: unknown BACKEND")
	// ErrUnknownDispatchMode is returned when DISPATCH_MODE is neither sync nor async.
	ErrUnknownDispatchMode = errors.New("config: unknown DISPATCH_MODE")
	// ErrInvalidPollBudget is returned when the poll interval or poll counts are not positive.
	ErrInvalidPollBudget = errors.New("config: poll interval and max polls must be positive")
)

// Supported values for BACKEND.
const (
	BackendVeo       = "veo"
	BackendStability = "stability"
)

// Supported values for DISPATCH_MODE.
const (
	DispatchSync  = "sync"
	DispatchAsync = "async"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port          int    `env:"PORT, default=8000" json:"port"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL, default=http://localhost:8000" json:"public_base_url"`

	// Backend selection
	Backend string `env:"BACKEND, default=veo" json:"backend"`

	// Veo (Gemini API) settings
	GeminiAPIKey string `env:"GEMINI_API_KEY" json:"-"` // Masked in JSON
	VeoModel     string `env:"VEO_MODEL, default=veo-2.0-generate-001" json:"veo_model"`

	// Stability settings
	StabilityAPIKey  string `env:"STABILITY_API_KEY" json:"-"` // Masked in JSON
	StabilityBaseURL string `env:"STABILITY_BASE_URL, default=https://api.stability.ai" json:"stability_base_url"`

	// Storage settings
	OutputDir string `env:"OUTPUT_DIR, default=generated_videos" json:"output_dir"`

	// Job settings
	PollIntervalSec      int    `env:"POLL_INTERVAL_SEC, default=20" json:"poll_interval_sec"`
	MaxPolls             int    `env:"MAX_POLLS, default=30" json:"max_polls"`
	ExtendedMaxPolls     int    `env:"EXTENDED_MAX_POLLS, default=60" json:"extended_max_polls"`
	MaxVariations        int    `env:"MAX_VARIATIONS, default=5" json:"max_variations"`
	DefaultVariations    int    `env:"DEFAULT_VARIATIONS, default=2" json:"default_variations"`
	VariationConcurrency int    `env:"VARIATION_CONCURRENCY, default=1" json:"variation_concurrency"`
	DispatchMode         string `env:"DISPATCH_MODE, default=sync" json:"dispatch_mode"`

	// Media settings
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// Optional S3 mirror settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PollInterval returns the configured poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// AsyncDispatch reports whether tool calls should return a task id immediately.
func (c *Config) AsyncDispatch() bool {
	return strings.EqualFold(c.DispatchMode, DispatchAsync)
}

// Load reads an optional .env file from the working directory and then
// the process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with an explicit list of dotenv files. Missing files are skipped.
func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the selected backend is known and has credentials.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendVeo:
		if c.GeminiAPIKey == "" {
			return ErrGeminiAPIKeyRequired
		}
	case BackendStability:
		if c.StabilityAPIKey == "" {
			return ErrStabilityAPIKeyRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}

	switch strings.ToLower(c.DispatchMode) {
	case DispatchSync, DispatchAsync:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDispatchMode, c.DispatchMode)
	}

	if c.PollIntervalSec <= 0 || c.MaxPolls <= 0 || c.ExtendedMaxPolls <= 0 {
		return ErrInvalidPollBudget
	}

	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, Backend: %s, VeoModel: %s, GeminiAPIKey: %s, StabilityAPIKey: %s, OutputDir: %s, PollIntervalSec: %d, MaxPolls: %d, ExtendedMaxPolls: %d, MaxVariations: %d, DispatchMode: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.Backend,
		c.VeoModel,
		mask(c.GeminiAPIKey),
		mask(c.StabilityAPIKey),
		c.OutputDir,
		c.PollIntervalSec,
		c.MaxPolls,
		c.ExtendedMaxPolls,
		c.MaxVariations,
		c.DispatchMode,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

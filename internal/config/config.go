package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings. WorkDir receives CLI outputs written without an explicit path.
	WorkDir string `yaml:"work_dir" env:"REELSCORE_WORK_DIR" validate:"required"`
	TempDir string `yaml:"temp_dir" env:"REELSCORE_TEMP_DIR" validate:"required"`

	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Sampling SamplingConfig `yaml:"sampling"`
	AI       AIConfig       `yaml:"ai"`
	Input    InputConfig    `yaml:"input"`
	Probes   ProbeConfig    `yaml:"probes"`
	Cache    CacheConfig    `yaml:"cache"`
	Events   EventsConfig   `yaml:"events"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path" env:"FFMPEG_PATH" validate:"required"`
	Threads    int    `yaml:"threads" validate:"gte=0"`
}

type SamplingConfig struct {
	// Points are fractional positions in [0,1]; at least three.
	Points          []float64 `yaml:"points" validate:"min=3,dive,gte=0,lte=1"`
	MaxWidth        int       `yaml:"max_width" validate:"gte=0"`
	JPEGQuality     int       `yaml:"jpeg_quality" validate:"gte=1,lte=100"`
	AudioSampleRate int       `yaml:"audio_sample_rate" validate:"gte=0"`
}

type AIConfig struct {
	Provider       string        `yaml:"provider" env:"REELSCORE_AI_PROVIDER" validate:"omitempty,oneof=gemini none"`
	GeminiAPIKey   string        `yaml:"gemini_api_key" env:"GEMINI_API_KEY" validate:"required_if=Provider gemini"`
	Model          string        `yaml:"model" env:"GEMINI_MODEL"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxInlineBytes int64         `yaml:"max_inline_bytes" validate:"gte=0"`
}

type InputConfig struct {
	AllowedMIMETypes []string `yaml:"allowed_mime_types"`
	MaxBytes         int64    `yaml:"max_bytes" validate:"gte=0"`
}

type ProbeConfig struct {
	SceneThreshold    float64 `yaml:"scene_threshold" validate:"gt=0,lte=1"`
	SilenceNoiseDB    float64 `yaml:"silence_noise_db" validate:"lt=0"`
	SilenceMinSeconds float64 `yaml:"silence_min_seconds" validate:"gt=0"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"REELSCORE_CACHE_ENABLED"`
	URL     string        `yaml:"url" env:"REDIS_URL" validate:"required_if=Enabled true"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

type EventsConfig struct {
	Enabled bool     `yaml:"enabled" env:"REELSCORE_EVENTS_ENABLED"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:"," validate:"required_if=Enabled true"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Verbose    bool   `yaml:"verbose" env:"REELSCORE_VERBOSE"`
	File       string `yaml:"file" env:"REELSCORE_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// Load reads configuration from file or returns defaults. Values from a
// .env file and the process environment override the file.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: "./work",
		TempDir: "./temp",
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			Threads:    0,
		},
		Sampling: SamplingConfig{
			Points:          []float64{0.1, 0.25, 0.5, 0.75, 0.9},
			MaxWidth:        768,
			JPEGQuality:     85,
			AudioSampleRate: 0,
		},
		AI: AIConfig{
			Provider:       "none",
			Model:          "gemini-2.5-flash",
			Timeout:        60 * time.Second,
			MaxInlineBytes: 18 << 20,
		},
		Input: InputConfig{
			AllowedMIMETypes: []string{"video/mp4", "video/quicktime", "video/webm", "video/x-matroska", "video/x-msvideo"},
			MaxBytes:         500 << 20,
		},
		Probes: ProbeConfig{
			SceneThreshold:    0.4,
			SilenceNoiseDB:    -35,
			SilenceMinSeconds: 0.5,
		},
		Cache: CacheConfig{
			Enabled: false,
			URL:     "redis://localhost:6379/0",
			TTL:     24 * time.Hour,
		},
		Events: EventsConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "analysis.completed",
		},
		Logging: LoggingConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".reelscore", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}

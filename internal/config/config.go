// Package config loads, validates and saves the t2s configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	MinRate  = 0.5
	MaxRate  = 2.0
	MinPitch = -20.0
	MaxPitch = 20.0
)

// Config is the full application configuration.
type Config struct {
	// Synthesizer backend: "gemini" or "mock".
	Engine string `yaml:"engine" mapstructure:"engine"`

	// Prebuilt voice name.
	VoiceName string `yaml:"voice_name" mapstructure:"voice_name"`

	// Speech rate requested from the synthesizer (0.5 to 2.0). Only affects
	// future synthesis.
	SpeechRate float64 `yaml:"speech_rate" mapstructure:"speech_rate"`

	// Playback speed of the loaded audio (0.5 to 2.0). Applied live.
	PlaybackSpeed float64 `yaml:"playback_speed" mapstructure:"playback_speed"`

	// Pitch in semitones. Shown in the status bar only.
	Pitch float64 `yaml:"pitch" mapstructure:"pitch"`

	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Gemini GeminiConfig `yaml:"gemini" mapstructure:"gemini"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Audio  AudioConfig  `yaml:"audio" mapstructure:"audio"`

	// Secrets come from the environment only and are never saved.
	Secrets Secrets `yaml:"-" mapstructure:"-"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeminiConfig holds Gemini client settings.
type GeminiConfig struct {
	Model             string        `yaml:"model" mapstructure:"model"`
	Endpoint          string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// CacheConfig holds synthesized audio cache settings.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MaxSizeMB int           `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// AudioConfig holds output device settings.
type AudioConfig struct {
	BufferSize time.Duration `yaml:"buffer_size" mapstructure:"buffer_size"`
}

// Secrets are read from the environment.
type Secrets struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	T2SAPIKey    string `env:"T2S_GEMINI_API_KEY"`
}

// APIKey returns the Gemini key, preferring the t2s specific variable.
func (s Secrets) APIKey() string {
	if s.T2SAPIKey != "" {
		return s.T2SAPIKey
	}
	return s.GeminiAPIKey
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Engine:        "gemini",
		VoiceName:     "Kore",
		SpeechRate:    1.0,
		PlaybackSpeed: 1.0,
		Pitch:         0,
		Export: ExportConfig{
			Dir:    ".",
			Format: "wav",
		},
		Gemini: GeminiConfig{
			Model:             "gemini-2.5-flash-preview-tts",
			Endpoint:          "https://generativelanguage.googleapis.com/v1beta",
			Timeout:           60 * time.Second,
			RequestsPerMinute: 10,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MaxSizeMB: 256,
			TTL:       7 * 24 * time.Hour,
		},
	}
}

// SetDefaults registers the defaults with v so that environment overrides
// and partial config files resolve against them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("engine", d.Engine)
	v.SetDefault("voice_name", d.VoiceName)
	v.SetDefault("speech_rate", d.SpeechRate)
	v.SetDefault("playback_speed", d.PlaybackSpeed)
	v.SetDefault("pitch", d.Pitch)
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.format", d.Export.Format)
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.endpoint", d.Gemini.Endpoint)
	v.SetDefault("gemini.timeout", d.Gemini.Timeout)
	v.SetDefault("gemini.requests_per_minute", d.Gemini.RequestsPerMinute)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.max_size_mb", d.Cache.MaxSizeMB)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("audio.buffer_size", d.Audio.BufferSize)
}

// Load reads the configuration out of v, overlays secrets from the
// environment and validates the result.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode configuration: %w", err)
	}

	secrets, err := env.ParseAs[Secrets]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing environment: %w", err)
	}
	cfg.Secrets = secrets

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// Validate checks every value and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if !inRange(c.SpeechRate, MinRate, MaxRate) {
		errs = append(errs, fmt.Errorf("speech_rate must be between %.1f and %.1f, got %v", MinRate, MaxRate, c.SpeechRate))
	}
	if !inRange(c.PlaybackSpeed, MinRate, MaxRate) {
		errs = append(errs, fmt.Errorf("playback_speed must be between %.1f and %.1f, got %v", MinRate, MaxRate, c.PlaybackSpeed))
	}
	if !inRange(c.Pitch, MinPitch, MaxPitch) {
		errs = append(errs, fmt.Errorf("pitch must be between %.0f and %.0f, got %v", MinPitch, MaxPitch, c.Pitch))
	}
	switch c.Engine {
	case "gemini", "mock":
	default:
		errs = append(errs, fmt.Errorf("engine must be gemini or mock, got %q", c.Engine))
	}
	switch strings.ToLower(c.Export.Format) {
	case "wav", "mp3":
	default:
		errs = append(errs, fmt.Errorf("export.format must be wav or mp3, got %q", c.Export.Format))
	}
	if strings.TrimSpace(c.VoiceName) == "" {
		errs = append(errs, errors.New("voice_name must not be empty"))
	}
	if c.Cache.MaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("cache.max_size_mb must not be negative, got %d", c.Cache.MaxSizeMB))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Save writes the configuration as YAML. Secrets are not written.
func Save(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("unable to encode configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}

// Package config provides the configuration structure for the
// voice-clone-service.
package config

import (
	"errors"
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/caarlos0/env/v11"
)

// Default values applied when the project TOML leaves a field unset.
const (
	DefaultHost                = "0.0.0.0"
	DefaultPort                = 7861
	DefaultVoicesDir           = "data/voices"
	DefaultModelName           = "F5TTS_v1_Base"
	DefaultBinaryPath          = "f5-tts_infer-cli"
	DefaultTimeoutSeconds      = 300
	DefaultMaxConcurrent       = 1
	DefaultReadTimeoutSecs     = 15
	DefaultWriteTimeoutSecs    = 600
	DefaultShutdownTimeoutSecs = 30
)

// Static configuration errors.
var (
	// ErrVoicesDirEmpty indicates that no voices directory is configured.
	ErrVoicesDirEmpty = errors.New("voices directory cannot be empty")
	// ErrPortRange indicates that the configured port is out of range.
	ErrPortRange = errors.New("port must be between 1 and 65535")
)

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Host                   string `env:"HOST" toml:"host"`
	Port                   int    `env:"PORT" toml:"port"`
	ReadTimeoutSeconds     int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `toml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// VoicesConfig holds the voice profile catalog configuration.
type VoicesConfig struct {
	Dir   string `env:"VOICES_DIR" toml:"dir"`
	Watch bool   `toml:"watch"`
}

// F5Config holds the configuration for the F5-TTS inference binary.
type F5Config struct {
	BinaryPath     string `toml:"binary_path"`
	ModelName      string `env:"MODEL_NAME" toml:"model_name"`
	OutputDir      string `toml:"output_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxConcurrent  int    `toml:"max_concurrent"`
}

// NATSConfig holds the optional NATS job lane configuration. The worker is
// started only when a URL is present.
type NATSConfig struct {
	URL                      string `toml:"url"`
	TextProcessedSubject     string `toml:"text_processed_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	DefaultVoiceID           string `toml:"default_voice_id"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Server ServerConfig `toml:"server"`
	Voices VoicesConfig `toml:"voices"`
	F5     F5Config     `toml:"f5"`
	NATS   NATSConfig   `toml:"nats"`
	Paths  PathsConfig  `toml:"paths"`
}

// WorkerEnabled reports whether the NATS job lane should be started.
func (c *Config) WorkerEnabled() bool {
	return c.NATS.URL != ""
}

// Load loads the configuration for the voice-clone-service: the project TOML
// through the central configurator, then process environment overrides
// (HOST, PORT, VOICES_DIR, MODEL_NAME), then defaults and validation.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	err = env.Parse(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with the package defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = DefaultReadTimeoutSecs
	}

	if c.Server.WriteTimeoutSeconds == 0 {
		// Generation can take minutes on CPU, so the write timeout covers
		// a full inference pass.
		c.Server.WriteTimeoutSeconds = DefaultWriteTimeoutSecs
	}

	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = DefaultShutdownTimeoutSecs
	}

	if c.Voices.Dir == "" {
		c.Voices.Dir = DefaultVoicesDir
	}

	if c.F5.BinaryPath == "" {
		c.F5.BinaryPath = DefaultBinaryPath
	}

	if c.F5.ModelName == "" {
		c.F5.ModelName = DefaultModelName
	}

	if c.F5.TimeoutSeconds == 0 {
		c.F5.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.F5.MaxConcurrent == 0 {
		c.F5.MaxConcurrent = DefaultMaxConcurrent
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Voices.Dir == "" {
		return ErrVoicesDirEmpty
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: got %d", ErrPortRange, c.Server.Port)
	}

	return nil
}

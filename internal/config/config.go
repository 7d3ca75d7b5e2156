package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Archive       ArchiveConfig       `yaml:"archive"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type HTTPConfig struct {
	Address                  string   `yaml:"address"`
	ReadHeaderTimeoutSeconds int      `yaml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int      `yaml:"shutdown_timeout_seconds"`
	AllowedOrigins           []string `yaml:"allowed_origins"`
}

// AudioConfig covers where recordings land and when windows are transcribed.
// The PCM format itself (16 kHz, mono, 16-bit) is fixed.
type AudioConfig struct {
	OutputDir                   string `yaml:"output_dir"`
	TempDir                     string `yaml:"temp_dir"`
	TranscriptionThresholdBytes int    `yaml:"transcription_threshold_bytes"`
	MaxPendingBytes             int    `yaml:"max_pending_bytes"`
}

type TranscriptionConfig struct {
	Provider       string `yaml:"provider"` // "openai" or "yandex"
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	Language       string `yaml:"language"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type WebSocketConfig struct {
	SendBuffer          int `yaml:"send_buffer"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	PingIntervalSeconds int `yaml:"ping_interval_seconds"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:                  ":8000",
			ReadHeaderTimeoutSeconds: 10,
			ShutdownTimeoutSeconds:   15,
			AllowedOrigins:           []string{"*"},
		},
		Audio: AudioConfig{
			OutputDir:                   "recordings",
			TranscriptionThresholdBytes: 96000,
		},
		Transcription: TranscriptionConfig{
			Provider:       "openai",
			Model:          "whisper-1",
			Language:       "en",
			TimeoutSeconds: 30,
			MaxRetries:     1,
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    "recordings/recordings.db",
		},
		WebSocket: WebSocketConfig{
			SendBuffer:          64,
			WriteTimeoutSeconds: 10,
			PingIntervalSeconds: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if port := getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.HTTP.Address = ":" + port
	}
	if dir := getenv("RECORDINGS_DIR"); dir != "" {
		c.Audio.OutputDir = dir
	}
	if p := getenv("STT_PROVIDER"); p != "" {
		c.Transcription.Provider = strings.ToLower(p)
	}
	if c.Transcription.APIKey == "" {
		switch c.Transcription.Provider {
		case "openai":
			c.Transcription.APIKey = getenv("OPENAI_API_KEY")
		case "yandex":
			c.Transcription.APIKey = getenv("YANDEX_SPEECHKIT_API_KEY")
		}
	}
	if lvl := getenv("LOG_LEVEL"); lvl != "" {
		c.Logging.Level = strings.ToLower(lvl)
	}
	if p := getenv("ARCHIVE_PATH"); p != "" {
		c.Archive.Path = p
	}
	return nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}
	if err := c.Archive.Validate(); err != nil {
		return fmt.Errorf("archive config: %w", err)
	}
	if err := c.WebSocket.Validate(); err != nil {
		return fmt.Errorf("websocket config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func (h *HTTPConfig) Validate() error {
	if h.Address == "" {
		return errors.New("address cannot be empty")
	}
	if h.ReadHeaderTimeoutSeconds <= 0 {
		return fmt.Errorf("read_header_timeout_seconds must be positive, got %d", h.ReadHeaderTimeoutSeconds)
	}
	if h.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("shutdown_timeout_seconds must be positive, got %d", h.ShutdownTimeoutSeconds)
	}
	return nil
}

func (a *AudioConfig) Validate() error {
	if a.OutputDir == "" {
		return errors.New("output_dir cannot be empty")
	}
	if a.TranscriptionThresholdBytes <= 0 {
		return fmt.Errorf("transcription_threshold_bytes must be positive, got %d", a.TranscriptionThresholdBytes)
	}
	if a.TranscriptionThresholdBytes%2 != 0 {
		return fmt.Errorf("transcription_threshold_bytes must be a whole number of samples, got %d", a.TranscriptionThresholdBytes)
	}
	if a.MaxPendingBytes < 0 {
		return fmt.Errorf("max_pending_bytes cannot be negative, got %d", a.MaxPendingBytes)
	}
	if a.MaxPendingBytes > 0 && a.MaxPendingBytes < a.TranscriptionThresholdBytes {
		return fmt.Errorf("max_pending_bytes (%d) must be 0 or at least transcription_threshold_bytes (%d)",
			a.MaxPendingBytes, a.TranscriptionThresholdBytes)
	}
	return nil
}

func (t *TranscriptionConfig) Validate() error {
	switch t.Provider {
	case "openai", "yandex":
	default:
		return fmt.Errorf("unknown provider %q (supported: openai, yandex)", t.Provider)
	}
	if t.APIKey == "" {
		return fmt.Errorf("api key for provider %q is not set", t.Provider)
	}
	if t.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", t.TimeoutSeconds)
	}
	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}
	return nil
}

func (a *ArchiveConfig) Validate() error {
	if a.Enabled && a.Path == "" {
		return errors.New("path cannot be empty when the archive is enabled")
	}
	return nil
}

func (w *WebSocketConfig) Validate() error {
	if w.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", w.SendBuffer)
	}
	if w.WriteTimeoutSeconds <= 0 {
		return fmt.Errorf("write_timeout_seconds must be positive, got %d", w.WriteTimeoutSeconds)
	}
	if w.PingIntervalSeconds <= 0 {
		return fmt.Errorf("ping_interval_seconds must be positive, got %d", w.PingIntervalSeconds)
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("unknown level %q", l.Level)
}

func (t TranscriptionConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

func (h HTTPConfig) ReadHeaderTimeout() time.Duration {
	return time.Duration(h.ReadHeaderTimeoutSeconds) * time.Second
}

func (h HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(h.ShutdownTimeoutSeconds) * time.Second
}

func (w WebSocketConfig) WriteTimeout() time.Duration {
	return time.Duration(w.WriteTimeoutSeconds) * time.Second
}

func (w WebSocketConfig) PingInterval() time.Duration {
	return time.Duration(w.PingIntervalSeconds) * time.Second
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadYAML(t *testing.T) {
	for _, k := range []string{"PORT", "RECORDINGS_DIR", "STT_PROVIDER", "OPENAI_API_KEY", "LOG_LEVEL", "ARCHIVE_PATH"} {
		t.Setenv(k, "")
	}

	path := writeConfig(t, `
http:
  address: ":9100"
audio:
  output_dir: /var/lib/voicenotes
  transcription_threshold_bytes: 64000
  max_pending_bytes: 320000
transcription:
  provider: openai
  api_key: sk-from-file
  language: de
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9100", cfg.HTTP.Address)
	require.Equal(t, "/var/lib/voicenotes", cfg.Audio.OutputDir)
	require.Equal(t, 64000, cfg.Audio.TranscriptionThresholdBytes)
	require.Equal(t, 320000, cfg.Audio.MaxPendingBytes)
	require.Equal(t, "sk-from-file", cfg.Transcription.APIKey)
	require.Equal(t, "de", cfg.Transcription.Language)
	require.Equal(t, "debug", cfg.Logging.Level)

	// untouched sections keep their defaults
	require.Equal(t, "whisper-1", cfg.Transcription.Model)
	require.Equal(t, 64, cfg.WebSocket.SendBuffer)
	require.True(t, cfg.Archive.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "http: [oops"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"PORT":           "8080",
		"RECORDINGS_DIR": "/data/rec",
		"OPENAI_API_KEY": "sk-env",
		"LOG_LEVEL":      "WARN",
		"ARCHIVE_PATH":   "/data/rec/archive.db",
	}))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, "/data/rec", cfg.Audio.OutputDir)
	require.Equal(t, "sk-env", cfg.Transcription.APIKey)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Equal(t, "/data/rec/archive.db", cfg.Archive.Path)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvPicksKeyForProvider(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envMap(map[string]string{
		"STT_PROVIDER":             "Yandex",
		"OPENAI_API_KEY":           "sk-openai",
		"YANDEX_SPEECHKIT_API_KEY": "y-key",
	})))
	require.Equal(t, "yandex", cfg.Transcription.Provider)
	require.Equal(t, "y-key", cfg.Transcription.APIKey)
}

func TestApplyEnvKeepsFileKey(t *testing.T) {
	cfg := Default()
	cfg.Transcription.APIKey = "from-file"
	require.NoError(t, cfg.applyEnv(envMap(map[string]string{"OPENAI_API_KEY": "from-env"})))
	require.Equal(t, "from-file", cfg.Transcription.APIKey)
}

func TestApplyEnvRejectsBadPort(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.applyEnv(envMap(map[string]string{"PORT": "eighty"})))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Transcription.APIKey = "k"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no api key", func(c *Config) { c.Transcription.APIKey = "" }},
		{"unknown provider", func(c *Config) { c.Transcription.Provider = "deepgram" }},
		{"odd threshold", func(c *Config) { c.Audio.TranscriptionThresholdBytes = 96001 }},
		{"zero threshold", func(c *Config) { c.Audio.TranscriptionThresholdBytes = 0 }},
		{"cap below threshold", func(c *Config) { c.Audio.MaxPendingBytes = 1000 }},
		{"negative cap", func(c *Config) { c.Audio.MaxPendingBytes = -1 }},
		{"empty output dir", func(c *Config) { c.Audio.OutputDir = "" }},
		{"archive without path", func(c *Config) { c.Archive.Path = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"zero send buffer", func(c *Config) { c.WebSocket.SendBuffer = 0 }},
		{"empty address", func(c *Config) { c.HTTP.Address = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	cfg.Archive.Enabled = false
	cfg.Archive.Path = ""
	require.NoError(t, cfg.Validate(), "path is only needed when the archive is on")
}

package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
// Numeric and boolean fields are pointers so an explicit zero is honored.
type FileConfig struct {
	Transport       string   `toml:"transport"`
	Endpoint        string   `toml:"endpoint"`
	Subject         string   `toml:"subject"`
	Token           string   `toml:"token"`
	TokenFile       string   `toml:"token_file"`
	BackoffBase     string   `toml:"backoff_base"`
	BackoffCap      string   `toml:"backoff_cap"`
	BackoffJitter   *float64 `toml:"backoff_jitter"`
	DialTimeout     string   `toml:"dial_timeout"`
	MaxAuthFailures *int     `toml:"max_auth_failures"`
	DedupWindow     string   `toml:"dedup_window"`
	DefaultDuration string   `toml:"default_duration"`
	WarningDuration string   `toml:"warning_duration"`
	ErrorDuration   string   `toml:"error_duration"`
	MaxVisible      *int     `toml:"max_visible"`
	Audio           string   `toml:"audio"`
	AudioCommand    string   `toml:"audio_command"`
	AudioDir        string   `toml:"audio_dir"`
	AudioPriority   string   `toml:"audio_priority"`
	TokenDebounce   string   `toml:"token_debounce"`
	WatchTokenFile  *bool    `toml:"watch_token_file"`
	LogLevel        string   `toml:"log_level"`
	LogFile         string   `toml:"log_file"`
	Tap             *bool    `toml:"tap"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.livefeed/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".livefeed", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("endpoint", fc.Endpoint, &cfg.Endpoint)
	s.setString("subject", fc.Subject, &cfg.Subject)
	s.setString("token", fc.Token, &cfg.Token)
	s.setString("token-file", fc.TokenFile, &cfg.TokenFile)
	s.setString("audio", fc.Audio, &cfg.Audio)
	s.setString("audio-command", fc.AudioCommand, &cfg.AudioCommand)
	s.setString("audio-dir", fc.AudioDir, &cfg.AudioDir)
	s.setString("audio-priority", fc.AudioPriority, &cfg.AudioPriority)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"backoff-base", fc.BackoffBase, &cfg.BackoffBase},
		{"backoff-cap", fc.BackoffCap, &cfg.BackoffCap},
		{"dial-timeout", fc.DialTimeout, &cfg.DialTimeout},
		{"dedup-window", fc.DedupWindow, &cfg.DedupWindow},
		{"default-duration", fc.DefaultDuration, &cfg.DefaultDuration},
		{"warning-duration", fc.WarningDuration, &cfg.WarningDuration},
		{"error-duration", fc.ErrorDuration, &cfg.ErrorDuration},
		{"token-debounce", fc.TokenDebounce, &cfg.TokenDebounce},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setFloat("backoff-jitter", fc.BackoffJitter, &cfg.BackoffJitter)
	s.setInt("max-auth-failures", fc.MaxAuthFailures, &cfg.MaxAuthFailures)
	s.setInt("max-visible", fc.MaxVisible, &cfg.MaxVisible)

	s.setBool("watch-token-file", fc.WatchTokenFile, &cfg.WatchTokenFile)
	s.setBool("tap", fc.Tap, &cfg.Tap)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

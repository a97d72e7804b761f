package cliconfig

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads LIVEFEED_* variables from a .env file into the process
// environment. Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnvConfig applies configuration from environment variables (LIVEFEED_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", os.Getenv("LIVEFEED_TRANSPORT"), &cfg.Transport)
	s.setString("endpoint", os.Getenv("LIVEFEED_ENDPOINT"), &cfg.Endpoint)
	s.setString("subject", os.Getenv("LIVEFEED_SUBJECT"), &cfg.Subject)
	s.setString("token", os.Getenv("LIVEFEED_TOKEN"), &cfg.Token)
	s.setString("token-file", os.Getenv("LIVEFEED_TOKEN_FILE"), &cfg.TokenFile)
	s.setString("audio", os.Getenv("LIVEFEED_AUDIO"), &cfg.Audio)
	s.setString("audio-command", os.Getenv("LIVEFEED_AUDIO_COMMAND"), &cfg.AudioCommand)
	s.setString("audio-dir", os.Getenv("LIVEFEED_AUDIO_DIR"), &cfg.AudioDir)
	s.setString("audio-priority", os.Getenv("LIVEFEED_AUDIO_PRIORITY"), &cfg.AudioPriority)
	s.setString("log-level", os.Getenv("LIVEFEED_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-file", os.Getenv("LIVEFEED_LOG_FILE"), &cfg.LogFile)

	if err := s.setDuration("backoff-base", os.Getenv("LIVEFEED_BACKOFF_BASE"), &cfg.BackoffBase); err != nil {
		return err
	}
	if err := s.setDuration("backoff-cap", os.Getenv("LIVEFEED_BACKOFF_CAP"), &cfg.BackoffCap); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", os.Getenv("LIVEFEED_DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("dedup-window", os.Getenv("LIVEFEED_DEDUP_WINDOW"), &cfg.DedupWindow); err != nil {
		return err
	}
	if err := s.setDuration("default-duration", os.Getenv("LIVEFEED_DEFAULT_DURATION"), &cfg.DefaultDuration); err != nil {
		return err
	}
	if err := s.setDuration("warning-duration", os.Getenv("LIVEFEED_WARNING_DURATION"), &cfg.WarningDuration); err != nil {
		return err
	}
	if err := s.setDuration("error-duration", os.Getenv("LIVEFEED_ERROR_DURATION"), &cfg.ErrorDuration); err != nil {
		return err
	}
	if err := s.setDuration("token-debounce", os.Getenv("LIVEFEED_TOKEN_DEBOUNCE"), &cfg.TokenDebounce); err != nil {
		return err
	}

	if err := s.setFloatFromString("backoff-jitter", os.Getenv("LIVEFEED_BACKOFF_JITTER"), &cfg.BackoffJitter); err != nil {
		return err
	}

	if err := s.setIntFromString("max-auth-failures", os.Getenv("LIVEFEED_MAX_AUTH_FAILURES"), &cfg.MaxAuthFailures); err != nil {
		return err
	}
	if err := s.setIntFromString("max-visible", os.Getenv("LIVEFEED_MAX_VISIBLE"), &cfg.MaxVisible); err != nil {
		return err
	}

	s.setBoolFromString("watch-token-file", os.Getenv("LIVEFEED_WATCH_TOKEN_FILE"), &cfg.WatchTokenFile)
	s.setBoolFromString("tap", os.Getenv("LIVEFEED_TAP"), &cfg.Tap)

	return nil
}

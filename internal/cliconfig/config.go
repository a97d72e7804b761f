package cliconfig

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/livefeed/pkg/connection"
	"github.com/bft-labs/livefeed/pkg/livefeed"
	"github.com/bft-labs/livefeed/pkg/mapper"
	"github.com/bft-labs/livefeed/pkg/notify"
)

// Audio backends.
const (
	AudioBell    = "bell"
	AudioCommand = "command"
	AudioNone    = "none"
)

// DefaultEndpoint is used when no endpoint is configured.
const DefaultEndpoint = "ws://localhost:8080/ws"

// Config holds CLI configuration for livefeed.
type Config struct {
	Transport string
	Endpoint  string
	Subject   string

	Token     string
	TokenFile string

	BackoffBase     time.Duration
	BackoffCap      time.Duration
	BackoffJitter   float64
	DialTimeout     time.Duration
	MaxAuthFailures int

	DedupWindow     time.Duration
	DefaultDuration time.Duration
	WarningDuration time.Duration
	ErrorDuration   time.Duration
	MaxVisible      int

	Audio          string
	AudioCommand   string
	AudioDir       string
	AudioPriority  string
	TokenDebounce  time.Duration
	WatchTokenFile bool

	LogLevel string
	LogFile  string
	Tap      bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	conn := connection.DefaultConfig()
	m := mapper.DefaultConfig()
	return Config{
		Transport:       livefeed.TransportWebSocket,
		Endpoint:        DefaultEndpoint,
		BackoffBase:     conn.BackoffInitial,
		BackoffCap:      conn.BackoffMax,
		BackoffJitter:   conn.BackoffJitter,
		DialTimeout:     conn.DialTimeout,
		MaxAuthFailures: conn.MaxAuthFailures,
		DedupWindow:     m.DedupWindow,
		DefaultDuration: m.DefaultDuration,
		WarningDuration: m.WarningDuration,
		ErrorDuration:   m.ErrorDuration,
		MaxVisible:      5,
		Audio:           AudioBell,
		AudioPriority:   notify.PriorityNormal.String(),
		TokenDebounce:   200 * time.Millisecond,
		WatchTokenFile:  true,
		LogLevel:        zerolog.InfoLevel.String(),
	}
}

// Validate checks the configuration for errors and normalizes values.
func (c *Config) Validate() error {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case livefeed.TransportWebSocket, livefeed.TransportNATS:
	case "ws":
		c.Transport = livefeed.TransportWebSocket
	default:
		return fmt.Errorf("unknown transport %q (want websocket or nats)", c.Transport)
	}

	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if err := checkScheme(c.Transport, u.Scheme); err != nil {
		return err
	}

	if c.Token != "" && c.TokenFile != "" {
		return fmt.Errorf("token and token-file are mutually exclusive")
	}

	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff base must be positive")
	}
	if c.BackoffCap < c.BackoffBase {
		return fmt.Errorf("backoff cap must not be below backoff base")
	}
	if c.BackoffJitter < 0 || c.BackoffJitter > 1 {
		return fmt.Errorf("backoff jitter must be within [0, 1]")
	}
	if c.MaxAuthFailures < 0 {
		return fmt.Errorf("max auth failures must not be negative")
	}
	if c.MaxVisible < 0 {
		return fmt.Errorf("max visible must not be negative")
	}

	c.Audio = strings.ToLower(strings.TrimSpace(c.Audio))
	switch c.Audio {
	case AudioBell, AudioNone:
	case AudioCommand:
		if c.AudioCommand == "" {
			return fmt.Errorf("audio-command is required for the command audio backend")
		}
	case "":
		c.Audio = AudioBell
	default:
		return fmt.Errorf("unknown audio backend %q", c.Audio)
	}
	if _, err := notify.ParsePriority(c.AudioPriority); err != nil {
		return fmt.Errorf("audio priority: %w", err)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

func checkScheme(transport, scheme string) error {
	switch transport {
	case livefeed.TransportWebSocket:
		if scheme != "ws" && scheme != "wss" {
			return fmt.Errorf("websocket endpoint must use ws:// or wss://, got %q", scheme)
		}
	case livefeed.TransportNATS:
		if scheme != "nats" && scheme != "tls" {
			return fmt.Errorf("nats endpoint must use nats:// or tls://, got %q", scheme)
		}
	}
	return nil
}

// Masked returns a copy safe for logging.
func (c Config) Masked() Config {
	if c.Token != "" {
		c.Token = "*****"
	}
	return c
}

// LibraryConfig converts the CLI configuration to the pipeline configuration.
func (c Config) LibraryConfig() livefeed.Config {
	return livefeed.Config{
		Transport:  c.Transport,
		Endpoint:   c.Endpoint,
		Subject:    c.Subject,
		Token:      c.Token,
		TokenFile:  c.TokenFile,
		MaxVisible: c.MaxVisible,
		Connection: connection.Config{
			BackoffInitial:  c.BackoffBase,
			BackoffMax:      c.BackoffCap,
			BackoffJitter:   c.BackoffJitter,
			DialTimeout:     c.DialTimeout,
			MaxAuthFailures: c.MaxAuthFailures,
		},
		Mapper: mapper.Config{
			DedupWindow:     c.DedupWindow,
			DefaultDuration: c.DefaultDuration,
			WarningDuration: c.WarningDuration,
			ErrorDuration:   c.ErrorDuration,
		},
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value from a pointer if not nil and flag not changed.
// Zero is a meaningful value for the settings that use it.
func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloat sets a float64 value from a pointer if not nil and flag not changed.
func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return fmt.Errorf("parse %s: must not be negative", flag)
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

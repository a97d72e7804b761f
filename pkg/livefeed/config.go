package livefeed

import (
	"fmt"
	"os"
	"strings"

	"github.com/bft-labs/livefeed/pkg/connection"
	"github.com/bft-labs/livefeed/pkg/mapper"
)

// Supported transports.
const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

// Config holds the pipeline configuration.
type Config struct {
	// Transport selects the dialer: "websocket" (default) or "nats".
	Transport string

	// Endpoint is the ws(s):// or nats:// URL of the event feed.
	Endpoint string

	// Subject is the NATS subject prefix. Ignored for websocket.
	Subject string

	// Token is the credential. Mutually exclusive with TokenFile.
	Token string

	// TokenFile is read at start and whenever a plugin reloads it.
	TokenFile string

	// MaxVisible caps the number of notifications kept. Zero is unlimited.
	MaxVisible int

	Connection connection.Config
	Mapper     mapper.Config
}

// DefaultConfig returns a Config with sensible defaults.
// At minimum Endpoint must be set.
func DefaultConfig() Config {
	return Config{
		Transport:  TransportWebSocket,
		Connection: connection.DefaultConfig(),
		Mapper:     mapper.DefaultConfig(),
	}
}

// SetDefaults fills zero values with defaults. Jitter, the auth failure
// limit and the dedup window treat zero as a setting, so they are only
// defaulted when their whole section is unset.
func (c *Config) SetDefaults() {
	def := DefaultConfig()
	if c.Transport == "" {
		c.Transport = def.Transport
	}

	if c.Connection == (connection.Config{}) {
		c.Connection = def.Connection
	}
	conn := &c.Connection
	if conn.BackoffInitial <= 0 {
		conn.BackoffInitial = def.Connection.BackoffInitial
	}
	if conn.BackoffMax <= 0 {
		conn.BackoffMax = def.Connection.BackoffMax
	}
	if conn.DialTimeout <= 0 {
		conn.DialTimeout = def.Connection.DialTimeout
	}

	if c.Mapper == (mapper.Config{}) {
		c.Mapper = def.Mapper
	}
	mc := &c.Mapper
	if mc.DefaultDuration <= 0 {
		mc.DefaultDuration = def.Mapper.DefaultDuration
	}
	if mc.WarningDuration <= 0 {
		mc.WarningDuration = def.Mapper.WarningDuration
	}
	if mc.ErrorDuration <= 0 {
		mc.ErrorDuration = def.Mapper.ErrorDuration
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportWebSocket, TransportNATS:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if c.Token != "" && c.TokenFile != "" {
		return fmt.Errorf("%w: token and token file are mutually exclusive", ErrInvalidConfig)
	}
	if c.MaxVisible < 0 {
		return fmt.Errorf("%w: max visible must not be negative", ErrInvalidConfig)
	}
	if j := c.Connection.BackoffJitter; j < 0 || j > 1 {
		return fmt.Errorf("%w: backoff jitter must be within [0, 1]", ErrInvalidConfig)
	}
	if c.Connection.BackoffMax > 0 && c.Connection.BackoffMax < c.Connection.BackoffInitial {
		return fmt.Errorf("%w: backoff max is below backoff initial", ErrInvalidConfig)
	}
	return nil
}

// ReadTokenFile returns the trimmed contents of a credential file.
func ReadTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// token resolves the credential from Token or TokenFile.
func (c Config) token() (string, error) {
	if c.TokenFile != "" {
		return ReadTokenFile(c.TokenFile)
	}
	return c.Token, nil
}

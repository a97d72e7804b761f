package websocket

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/livefeed/pkg/connection"
	"github.com/bft-labs/livefeed/pkg/log"
)

// Default transport settings.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultReadLimit        = 1 << 20
	DefaultPingInterval     = 30 * time.Second
)

// Dialer implements connection.Dialer over a WebSocket.
type Dialer struct {
	url          string
	header       http.Header
	pingInterval time.Duration
	readLimit    int64
	ws           *websocket.Dialer
	logger       log.Logger
}

// Option configures a Dialer.
type Option func(*Dialer)

// WithHeader adds a header sent with every handshake.
func WithHeader(key, value string) Option {
	return func(d *Dialer) {
		d.header.Set(key, value)
	}
}

// WithPingInterval sets the keepalive interval. Zero disables pings.
// A connection that misses two pongs in a row is treated as dropped.
func WithPingInterval(interval time.Duration) Option {
	return func(d *Dialer) {
		d.pingInterval = max(interval, 0)
	}
}

// WithReadLimit caps the size of a single frame.
func WithReadLimit(n int64) Option {
	return func(d *Dialer) {
		if n > 0 {
			d.readLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(d *Dialer) {
		d.logger = log.OrNoop(l)
	}
}

// NewDialer creates a Dialer for url (ws:// or wss://).
func NewDialer(url string, opts ...Option) *Dialer {
	hostname, _ := os.Hostname()

	d := &Dialer{
		url:          url,
		header:       make(http.Header),
		pingInterval: DefaultPingInterval,
		readLimit:    DefaultReadLimit,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		logger: log.NewNoopLogger(),
	}
	d.header.Set("X-Client-Hostname", hostname)
	d.header.Set("X-Client-OSArch", runtime.GOOS+"/"+runtime.GOARCH)

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial performs the handshake. The token is sent as a bearer credential.
// A 401 or 403 handshake response is reported as connection.ErrUnauthorized.
func (d *Dialer) Dial(ctx context.Context, token string) (connection.Conn, error) {
	header := d.header.Clone()
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := d.ws.DialContext(ctx, d.url, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return nil, fmt.Errorf("%w: handshake returned %s", connection.ErrUnauthorized, resp.Status)
			}
			return nil, fmt.Errorf("websocket handshake returned %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	ws.SetReadLimit(d.readLimit)
	c := &conn{ws: ws, done: make(chan struct{})}
	if d.pingInterval > 0 {
		c.keepalive(d.pingInterval, d.logger)
	}
	return c, nil
}

type conn struct {
	ws        *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

// ReadMessage returns the next text or binary frame.
func (c *conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// Close sends a close frame when possible and closes the socket.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
		err = c.ws.Close()
	})
	return err
}

// keepalive pings the server and extends the read deadline on every pong.
func (c *conn) keepalive(interval time.Duration, logger log.Logger) {
	wait := 2 * interval
	_ = c.ws.SetReadDeadline(time.Now().Add(wait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wait))
	})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval)); err != nil {
					logger.Debug("ping failed", log.Err(err))
					return
				}
			}
		}
	}()
}

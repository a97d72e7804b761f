package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bft-labs/livefeed/pkg/connection"
	"github.com/bft-labs/livefeed/pkg/log"
)

// DefaultSubject is the subject prefix events are published under.
const DefaultSubject = "livefeed.events"

// Dialer implements connection.Dialer over a NATS subscription.
//
// Events are read from "<subject>.>". A message published on
// "<subject>.<event name>" carries the event payload as its data.
type Dialer struct {
	url     string
	subject string
	name    string
	logger  log.Logger
}

// Option configures a Dialer.
type Option func(*Dialer)

// WithSubject sets the subject prefix.
func WithSubject(subject string) Option {
	return func(d *Dialer) {
		if subject = strings.Trim(subject, "."); subject != "" {
			d.subject = subject
		}
	}
}

// WithClientName sets the connection name reported to the server.
func WithClientName(name string) Option {
	return func(d *Dialer) {
		d.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(d *Dialer) {
		d.logger = log.OrNoop(l)
	}
}

// NewDialer creates a Dialer for the NATS server at url.
func NewDialer(url string, opts ...Option) *Dialer {
	d := &Dialer{
		url:     url,
		subject: DefaultSubject,
		name:    "livefeed",
		logger:  log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type dialResult struct {
	nc  *nats.Conn
	err error
}

// Dial connects with token authentication and subscribes to the event
// subjects. Reconnects are left to the connection.Manager.
func (d *Dialer) Dial(ctx context.Context, token string) (connection.Conn, error) {
	opts := []nats.Option{
		nats.Name(d.name),
		nats.NoReconnect(),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			d.logger.Warn("nats async error", log.Err(err))
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(max(time.Until(deadline), time.Millisecond)))
	}

	ch := make(chan dialResult, 1)
	go func() {
		nc, err := nats.Connect(d.url, opts...)
		ch <- dialResult{nc: nc, err: err}
	}()

	var res dialResult
	select {
	case res = <-ch:
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.nc != nil {
				r.nc.Close()
			}
		}()
		return nil, ctx.Err()
	}
	if res.err != nil {
		if isAuthError(res.err) {
			return nil, fmt.Errorf("%w: %v", connection.ErrUnauthorized, res.err)
		}
		return nil, fmt.Errorf("nats connect: %w", res.err)
	}

	sub, err := res.nc.SubscribeSync(d.subject + ".>")
	if err != nil {
		res.nc.Close()
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	if err := flush(ctx, res.nc); err != nil {
		res.nc.Close()
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %v", connection.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("nats flush: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	return &conn{nc: res.nc, sub: sub, prefix: d.subject + ".", ctx: readCtx, cancel: cancel}, nil
}

// flush round-trips to the server so a rejected subscription fails the dial.
func flush(ctx context.Context, nc *nats.Conn) error {
	if _, ok := ctx.Deadline(); ok {
		return nc.FlushWithContext(ctx)
	}
	return nc.Flush()
}

// isAuthError reports whether err is a credential rejection.
// Connect failures carry the server's -ERR text rather than a sentinel.
func isAuthError(err error) bool {
	if errors.Is(err, nats.ErrAuthorization) ||
		errors.Is(err, nats.ErrAuthExpired) ||
		errors.Is(err, nats.ErrAuthRevoked) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authorization violation") ||
		strings.Contains(msg, "authentication expired") ||
		strings.Contains(msg, "authentication revoked")
}

type conn struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	prefix string
	ctx    context.Context
	cancel context.CancelFunc
}

// ReadMessage blocks until the next message and returns it as a wire frame.
func (c *conn) ReadMessage() ([]byte, error) {
	msg, err := c.sub.NextMsgWithContext(c.ctx)
	if err != nil {
		return nil, err
	}
	return frame(strings.TrimPrefix(msg.Subject, c.prefix), msg.Subject, msg.Data), nil
}

// Close unblocks ReadMessage and closes the NATS connection.
func (c *conn) Close() error {
	c.cancel()
	c.nc.Close()
	return nil
}

// frame builds a wire frame from a message. Data that is not JSON is returned
// untouched and left for the codec to reject.
func frame(event, subject string, data []byte) []byte {
	if event == "" || event == subject || !json.Valid(data) {
		return data
	}
	out, err := json.Marshal([]any{event, json.RawMessage(data)})
	if err != nil {
		return data
	}
	return out
}

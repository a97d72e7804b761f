package connection

import "context"

// Conn is a live transport delivering raw frames.
//
// ReadMessage blocks until the next frame arrives or the transport fails.
// Close unblocks a pending ReadMessage.
type Conn interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens transports. Implementations wrap ErrUnauthorized when the
// server rejects the credential.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, token string) (Conn, error)

// Dial calls f(ctx, token).
func (f DialerFunc) Dial(ctx context.Context, token string) (Conn, error) {
	return f(ctx, token)
}

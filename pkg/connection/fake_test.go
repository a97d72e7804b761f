package connection

import (
	"context"
	"io"
	"sync"
	"time"
)

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(frame string) {
	c.frames <- []byte(frame)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeDialer hands out queued results, then fresh connections.
type fakeDialer struct {
	mu      sync.Mutex
	results []error
	fail    error
	block   chan struct{}
	tokens  []string
	conns   []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, token string) (Conn, error) {
	d.mu.Lock()
	d.tokens = append(d.tokens, token)
	err := d.fail
	if len(d.results) > 0 {
		err = d.results[0]
		d.results = d.results[1:]
	}
	block := d.block
	d.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	c := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tokens)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func (d *fakeDialer) seenTokens() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.tokens...)
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []string
	auth        []int
	delays      []time.Duration
}

func (o *recordingObserver) OnStateChange(prev, cur State, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, prev.String()+"->"+cur.String())
}

func (o *recordingObserver) OnAuthFailure(_ error, attempts int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.auth = append(o.auth, attempts)
}

func (o *recordingObserver) OnRetryScheduled(delay time.Duration, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delays = append(o.delays, delay)
}

func (o *recordingObserver) retryDelays() []time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]time.Duration(nil), o.delays...)
}

func (o *recordingObserver) seen() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.transitions...)
}

func (o *recordingObserver) authAttempts() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.auth...)
}

// eventLog collects handler calls.
type eventLog struct {
	mu    sync.Mutex
	items []string
}

func (l *eventLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, s)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.items...)
}

func (l *eventLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

package tokenwatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/livefeed/pkg/livefeed"
	"github.com/bft-labs/livefeed/pkg/log"
)

// reconnectRecorder captures Reconnect calls.
type reconnectRecorder struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (r *reconnectRecorder) reconnect(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	return r.err
}

func (r *reconnectRecorder) Tokens() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tokens...)
}

func writeToken(t *testing.T, path, token string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		t.Fatalf("Failed to write token: %v", err)
	}
}

func waitForTokens(t *testing.T, r *reconnectRecorder, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := r.Tokens(); len(got) >= n {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d reconnects, got %v", n, r.Tokens())
	return nil
}

func startPlugin(t *testing.T, path string, r *reconnectRecorder) *Plugin {
	t.Helper()
	plugin := New(Config{DebounceDelay: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = plugin.Shutdown(context.Background())
	})

	err := plugin.Initialize(ctx, livefeed.PluginConfig{
		TokenFile: path,
		Logger:    log.NewNoopLogger(),
		Reconnect: r.reconnect,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return plugin
}

func TestPlugin_ReconnectsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	writeToken(t, path, "first")

	r := &reconnectRecorder{}
	startPlugin(t, path, r)

	writeToken(t, path, "second\n")

	got := waitForTokens(t, r, 1)
	if got[0] != "second" {
		t.Errorf("reconnect token = %q, want %q", got[0], "second")
	}
}

func TestPlugin_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	writeToken(t, path, "first")

	r := &reconnectRecorder{}
	startPlugin(t, path, r)

	tmp := filepath.Join(dir, "token.tmp")
	writeToken(t, tmp, "rotated")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	got := waitForTokens(t, r, 1)
	if got[0] != "rotated" {
		t.Errorf("reconnect token = %q, want %q", got[0], "rotated")
	}
}

func TestPlugin_IgnoresUnchangedAndEmptyTokens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	writeToken(t, path, "same")

	r := &reconnectRecorder{}
	startPlugin(t, path, r)

	writeToken(t, path, "same\n")
	writeToken(t, filepath.Join(dir, "other"), "unrelated")
	time.Sleep(150 * time.Millisecond)
	writeToken(t, path, "   ")
	time.Sleep(150 * time.Millisecond)

	if got := r.Tokens(); len(got) != 0 {
		t.Errorf("unexpected reconnects: %v", got)
	}
}

func TestPlugin_DebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	writeToken(t, path, "v0")

	r := &reconnectRecorder{}
	startPlugin(t, path, r)

	for _, token := range []string{"v1", "v2", "v3"} {
		writeToken(t, path, token)
	}

	got := waitForTokens(t, r, 1)
	time.Sleep(100 * time.Millisecond)
	got = r.Tokens()
	if len(got) != 1 || got[0] != "v3" {
		t.Errorf("reconnects = %v, want [v3]", got)
	}
}

func TestPlugin_ReconnectFailureKeepsWatching(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	writeToken(t, path, "v0")

	r := &reconnectRecorder{err: errors.New("not running")}
	startPlugin(t, path, r)

	writeToken(t, path, "v1")
	waitForTokens(t, r, 1)
	writeToken(t, path, "v2")
	got := waitForTokens(t, r, 2)
	if got[1] != "v2" {
		t.Errorf("second reconnect token = %q, want v2", got[1])
	}
}

func TestPlugin_Name(t *testing.T) {
	if got := New(DefaultConfig()).Name(); got != "tokenwatcher" {
		t.Errorf("Name() = %q, want tokenwatcher", got)
	}
}

func TestPlugin_DisabledWithoutTokenFile(t *testing.T) {
	plugin := New(DefaultConfig())
	err := plugin.Initialize(context.Background(), livefeed.PluginConfig{
		Logger:    log.NewNoopLogger(),
		Reconnect: func(context.Context, string) error { return nil },
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_MissingDirectory(t *testing.T) {
	plugin := New(DefaultConfig())
	err := plugin.Initialize(context.Background(), livefeed.PluginConfig{
		TokenFile: filepath.Join(t.TempDir(), "missing", "token"),
		Logger:    log.NewNoopLogger(),
		Reconnect: func(context.Context, string) error { return nil },
	})
	if err == nil {
		t.Error("Initialize should fail when the token directory does not exist")
	}
}

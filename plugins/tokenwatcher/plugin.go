// Package tokenwatcher provides credential file monitoring for livefeed.
// When enabled, it watches the token file and reconnects with the new
// credential whenever the file changes.
package tokenwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/livefeed/pkg/livefeed"
	"github.com/bft-labs/livefeed/pkg/log"
)

// Plugin implements token file watching.
// It watches the directory holding the token file so that atomic replaces
// (write to temp file, then rename) are seen as well as in-place writes.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	debounceDelay    time.Duration
	reconnectTimeout time.Duration

	// Runtime state
	tokenFile string
	current   string
	reconnect func(ctx context.Context, token string) error
	logger    log.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	debounce  *time.Timer
}

// Config holds configuration options for the token watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 200 milliseconds
	DebounceDelay time.Duration

	// ReconnectTimeout bounds the reconnect triggered by a change.
	// Default: 15 seconds
	ReconnectTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:    200 * time.Millisecond,
		ReconnectTimeout: 15 * time.Second,
	}
}

// New creates a new token watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}
	if cfg.ReconnectTimeout <= 0 {
		cfg.ReconnectTimeout = def.ReconnectTimeout
	}

	return &Plugin{
		debounceDelay:    cfg.DebounceDelay,
		reconnectTimeout: cfg.ReconnectTimeout,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "tokenwatcher"
}

// Initialize starts watching the token file.
func (p *Plugin) Initialize(ctx context.Context, cfg livefeed.PluginConfig) error {
	p.mu.Lock()
	p.tokenFile = cfg.TokenFile
	p.reconnect = cfg.Reconnect
	p.logger = log.With(log.OrNoop(cfg.Logger), log.String("plugin", p.Name()))
	p.mu.Unlock()

	if p.tokenFile == "" || p.reconnect == nil {
		p.logger.Warn("token watcher disabled: no token file configured")
		return nil
	}

	// The token the pipeline starts with; only changes trigger a reconnect.
	if token, err := livefeed.ReadTokenFile(p.tokenFile); err == nil {
		p.current = token
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.tokenFile)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("token watcher initialized", log.String("path", p.tokenFile))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// watchLoop watches for token file changes.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.tokenFile)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("token watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		p.reload(ctx)
	})
}

// reload reads the token file and reconnects when the token changed.
func (p *Plugin) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	token, err := livefeed.ReadTokenFile(p.tokenFile)
	if err != nil {
		p.logger.Warn("token file unreadable", log.Err(err))
		return
	}
	if token == "" {
		p.logger.Warn("token file is empty, keeping current credential")
		return
	}

	p.mu.Lock()
	if token == p.current {
		p.mu.Unlock()
		return
	}
	p.current = token
	p.mu.Unlock()

	reconnectCtx, cancel := context.WithTimeout(ctx, p.reconnectTimeout)
	defer cancel()

	if err := p.reconnect(reconnectCtx, token); err != nil {
		p.logger.Warn("reconnect with rotated token failed", log.Err(err))
		return
	}
	p.logger.Info("reconnected with rotated token")
}

// Ensure Plugin implements livefeed.Plugin.
var _ livefeed.Plugin = (*Plugin)(nil)

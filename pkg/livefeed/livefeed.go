package livefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	natsAdapter "github.com/bft-labs/livefeed/internal/adapters/nats"
	wsAdapter "github.com/bft-labs/livefeed/internal/adapters/websocket"
	"github.com/bft-labs/livefeed/pkg/connection"
	"github.com/bft-labs/livefeed/pkg/log"
	"github.com/bft-labs/livefeed/pkg/mapper"
	"github.com/bft-labs/livefeed/pkg/notify"
)

// Livefeed is the notification pipeline: connection manager, event mapper and
// notification registry wired together. Use New() to create an instance, then
// Start() to connect.
type Livefeed struct {
	config    Config
	opts      options
	lifecycle *lifecycle
	manager   *connection.Manager
	mapper    *mapper.Mapper
	registry  *notify.Registry
	logger    log.Logger
	plugins   []Plugin

	mu          sync.Mutex
	cancel      context.CancelFunc
	initialized []Plugin
}

// Status is a point-in-time view of a Livefeed instance.
type Status struct {
	State         State
	Connection    connection.State
	Notifications int
}

// New creates a new Livefeed instance with the given configuration.
// The instance is created in StateStopped; call Start() to connect.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Livefeed, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNoop(o.logger)

	dialer := o.dialer
	if dialer == nil {
		dialer = newDialer(cfg, logger)
	}

	regOpts := []notify.RegistryOption{
		notify.WithRegistryLogger(log.With(logger, log.String("component", "registry"))),
		notify.WithMaxVisible(cfg.MaxVisible),
	}
	if o.clock != nil {
		regOpts = append(regOpts, notify.WithClock(o.clock))
	}
	if o.cuePlayer != nil {
		regOpts = append(regOpts, notify.WithCuePlayer(o.cuePlayer))
	}
	registry := notify.NewRegistry(regOpts...)

	observers := &connectionObservers{handler: o.eventHandler}
	manager := connection.NewManager(dialer, cfg.Connection,
		connection.WithLogger(log.With(logger, log.String("component", "connection"))),
		connection.WithObserver(observers),
	)
	m := mapper.New(manager, registry, cfg.Mapper,
		mapper.WithLogger(log.With(logger, log.String("component", "mapper"))),
		mapper.WithRules(o.rules...),
	)
	observers.add(m)

	return &Livefeed{
		config:    cfg,
		opts:      o,
		lifecycle: newLifecycle(logger, &eventEmitterWrapper{handler: o.eventHandler}),
		manager:   manager,
		mapper:    m,
		registry:  registry,
		logger:    logger,
		plugins:   o.plugins,
	}, nil
}

func newDialer(cfg Config, logger log.Logger) connection.Dialer {
	if cfg.Transport == TransportNATS {
		return natsAdapter.NewDialer(cfg.Endpoint,
			natsAdapter.WithSubject(cfg.Subject),
			natsAdapter.WithLogger(logger),
		)
	}
	return wsAdapter.NewDialer(cfg.Endpoint, wsAdapter.WithLogger(logger))
}

// Start initializes plugins and connects. A failed first connect is not
// fatal: the connection manager keeps retrying in the background.
// Returns ErrAlreadyRunning if already started and ErrClosed after Stop.
func (l *Livefeed) Start(ctx context.Context) error {
	runCtx, token, err := l.prepare(ctx)
	if err != nil {
		return err
	}

	// The dial runs without l.mu so Stop can cancel it.
	if err := l.manager.Connect(runCtx, token); err != nil {
		l.logger.Warn("initial connect failed",
			log.Err(err),
			log.Stringer("connection", l.manager.State()),
		)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lifecycle.State() != StateRunning {
		// Stop ran before the dial began.
		l.manager.Disconnect()
	}
	return nil
}

// prepare moves to Running with the plugins initialized and returns the run
// context and credential for the first dial.
func (l *Livefeed) prepare(ctx context.Context) (context.Context, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lifecycle.CanStart() {
		if l.lifecycle.State() == StateClosed {
			return nil, "", ErrClosed
		}
		return nil, "", ErrAlreadyRunning
	}
	if err := l.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return nil, "", err
	}

	token, err := l.config.token()
	if err != nil {
		_ = l.lifecycle.TransitionTo(StateStopped, "token unavailable")
		return nil, "", err
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	pluginCfg := PluginConfig{
		TokenFile: l.config.TokenFile,
		Endpoint:  l.config.Endpoint,
		Transport: l.config.Transport,
		Logger:    l.logger,
		Reconnect: l.reconnect,
	}
	for _, p := range l.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			l.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			l.shutdownPlugins()
			cancel()
			_ = l.lifecycle.TransitionTo(StateStopped, "plugin init failed: "+p.Name())
			return nil, "", fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		l.initialized = append(l.initialized, p)
		l.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	if err := l.lifecycle.TransitionTo(StateRunning, "pipeline wired"); err != nil {
		cancel()
		return nil, "", err
	}
	return runCtx, token, nil
}

// Stop disconnects, shuts plugins down in reverse order and closes the
// mapper and registry. The instance cannot be restarted.
func (l *Livefeed) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lifecycle.CanStop() {
		return ErrNotRunning
	}
	if err := l.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		return err
	}

	l.manager.Disconnect()
	if l.cancel != nil {
		l.cancel()
	}
	l.shutdownPlugins()
	l.mapper.Close()
	l.registry.Close()

	return l.lifecycle.TransitionTo(StateClosed, "graceful shutdown")
}

// shutdownPlugins shuts initialized plugins down in reverse order.
func (l *Livefeed) shutdownPlugins() {
	shutdownCtx := context.Background()
	for i := len(l.initialized) - 1; i >= 0; i-- {
		p := l.initialized[i]
		if err := p.Shutdown(shutdownCtx); err != nil {
			l.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			l.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
	l.initialized = nil
}

// reconnect is handed to plugins. It swaps the credential on a live
// connection, or reconnects one the auth policy closed.
func (l *Livefeed) reconnect(ctx context.Context, token string) error {
	if l.lifecycle.State() != StateRunning {
		return ErrNotRunning
	}
	err := l.manager.Reconnect(ctx, token)
	if errors.Is(err, connection.ErrClosed) {
		return l.manager.Connect(ctx, token)
	}
	return err
}

// Registry returns the notification registry. Rendering surfaces subscribe
// to it.
func (l *Livefeed) Registry() *notify.Registry {
	return l.registry
}

// Manager returns the connection manager, e.g. to add event listeners.
func (l *Livefeed) Manager() *connection.Manager {
	return l.manager
}

// Status returns the current state. Safe to call concurrently.
func (l *Livefeed) Status() Status {
	return Status{
		State:         l.lifecycle.State(),
		Connection:    l.manager.State(),
		Notifications: l.registry.Len(),
	}
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	versions := ModuleVersions()
	for name, minVersion := range CompatibilityMatrix() {
		if !isVersionCompatible(versions[name], minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, versions[name], minVersion)
		}
	}
	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}

package livefeed

import (
	"github.com/bft-labs/livefeed/pkg/connection"
	"github.com/bft-labs/livefeed/pkg/log"
	"github.com/bft-labs/livefeed/pkg/mapper"
	"github.com/bft-labs/livefeed/pkg/notify"
)

// Option configures optional behavior of Livefeed.
type Option func(*options)

// options holds the optional configuration for a Livefeed instance.
type options struct {
	logger       log.Logger
	dialer       connection.Dialer
	cuePlayer    notify.CuePlayer
	eventHandler EventHandler
	plugins      []Plugin
	clock        notify.Clock
	rules        []mapper.Rule
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDialer replaces the transport selected by Config.Transport.
func WithDialer(d connection.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithCuePlayer plays audio feedback for new notifications.
// *audio.Adapter satisfies notify.CuePlayer.
func WithCuePlayer(p notify.CuePlayer) Option {
	return func(o *options) {
		o.cuePlayer = p
	}
}

// WithEventHandler sets a handler for lifecycle and connection events.
// Events are called synchronously. If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Livefeed starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithClock sets the registry time source. Useful in tests.
func WithClock(c notify.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithRules adds mapper rules for events outside the built-in catalog.
func WithRules(rules ...mapper.Rule) Option {
	return func(o *options) {
		o.rules = append(o.rules, rules...)
	}
}

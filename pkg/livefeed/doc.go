// Package livefeed provides an embeddable real-time notification pipeline.
//
// A Livefeed instance keeps one persistent server-push connection open,
// maps the domain events it receives (projects, materials, drawings, workers,
// sync) into user-facing notifications, and holds those notifications in a
// registry that any number of rendering surfaces subscribe to.
//
// # Basic Usage
//
//	cfg := livefeed.DefaultConfig()
//	cfg.Endpoint = "wss://api.example.com/events"
//	cfg.TokenFile = "/run/secrets/livefeed-token"
//
//	lf, err := livefeed.New(cfg, livefeed.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	unsubscribe := lf.Registry().Subscribe(func(list []notify.Notification) {
//	    render(list)
//	})
//	defer unsubscribe()
//
//	if err := lf.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer lf.Stop()
//
// # Transports
//
// Config.Transport selects a WebSocket dialer (bearer credential in the
// handshake) or a NATS dialer (token auth, events on "<subject>.<event>").
// Use [WithDialer] to plug in any other [connection.Dialer].
//
// # Event Handling
//
// Implement [EventHandler] (embed [BaseEventHandler] for no-op defaults) and
// pass it via [WithEventHandler] to observe lifecycle changes, connection
// changes and authentication failures.
//
// # Plugins
//
// Plugins are initialized in registration order on Start and shut down in
// reverse order on Stop. They receive a [PluginConfig] whose Reconnect
// function swaps the credential of the live connection:
//
//	import "github.com/bft-labs/livefeed/plugins/tokenwatcher"
//
//	lf, err := livefeed.New(cfg, tokenwatcher.WithDefaultTokenWatcher())
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules and [CompatibilityMatrix]
// to check minimum compatible versions.
package livefeed

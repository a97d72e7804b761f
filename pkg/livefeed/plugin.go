package livefeed

import (
	"context"

	"github.com/bft-labs/livefeed/pkg/log"
)

// Plugin extends a Livefeed instance. Plugins are initialized in
// registration order on Start and shut down in reverse order on Stop.
type Plugin interface {
	// Name returns the plugin identifier.
	Name() string

	// Initialize starts the plugin. ctx is cancelled on Stop.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to plugins on Initialize.
type PluginConfig struct {
	// TokenFile is the credential file path, empty when the token is inline.
	TokenFile string

	Endpoint  string
	Transport string
	Logger    log.Logger

	// Reconnect replaces the live transport with one using token. It also
	// revives a connection closed after repeated authentication failures.
	Reconnect func(ctx context.Context, token string) error
}

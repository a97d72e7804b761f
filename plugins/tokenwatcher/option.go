package tokenwatcher

import "github.com/bft-labs/livefeed/pkg/livefeed"

// WithTokenWatcher returns a livefeed Option that enables token file watching.
// Config.TokenFile must be set for the plugin to do anything.
//
// Usage:
//
//	lf, err := livefeed.New(cfg,
//	    tokenwatcher.WithTokenWatcher(tokenwatcher.Config{
//	        DebounceDelay: 200 * time.Millisecond,
//	    }),
//	)
func WithTokenWatcher(cfg Config) livefeed.Option {
	return livefeed.WithPlugin(New(cfg))
}

// WithDefaultTokenWatcher returns a livefeed Option that enables token
// watching with default settings.
//
// Usage:
//
//	lf, err := livefeed.New(cfg, tokenwatcher.WithDefaultTokenWatcher())
func WithDefaultTokenWatcher() livefeed.Option {
	return WithTokenWatcher(DefaultConfig())
}

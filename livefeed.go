// Package livefeed provides a real-time notification pipeline for
// construction-management clients.
//
// Example usage:
//
//	cfg := livefeed.DefaultConfig()
//	cfg.Endpoint = "wss://api.example.com/events"
//	cfg.Token = "your-api-key"
//	err := livefeed.Run(ctx, cfg, func(list []livefeed.Notification) {
//	    render(list)
//	})
package livefeed

import (
	"context"
	"errors"

	lf "github.com/bft-labs/livefeed/pkg/livefeed"
	"github.com/bft-labs/livefeed/pkg/notify"
)

// Config holds the pipeline configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = lf.Config

// Option configures optional behavior of the pipeline.
type Option = lf.Option

// Notification is an entry of the notification registry.
type Notification = notify.Notification

// Livefeed is a pipeline instance.
type Livefeed = lf.Livefeed

// New creates a pipeline. See the pkg/livefeed package for details.
func New(cfg Config, opts ...Option) (*Livefeed, error) {
	return lf.New(cfg, opts...)
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set Endpoint before calling Run.
func DefaultConfig() Config {
	return lf.DefaultConfig()
}

// Run starts the pipeline, delivers every registry snapshot to render and
// blocks until ctx is cancelled.
func Run(ctx context.Context, cfg Config, render func([]Notification), opts ...Option) error {
	p, err := lf.New(cfg, opts...)
	if err != nil {
		return err
	}

	if render != nil {
		unsubscribe := p.Registry().Subscribe(render)
		defer unsubscribe()
	}

	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	if err := p.Stop(); err != nil && !errors.Is(err, lf.ErrNotRunning) {
		return err
	}
	return nil
}

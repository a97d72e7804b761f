package livefeed

import "errors"

// Common errors.
var (
	ErrAlreadyRunning = errors.New("livefeed: already running")
	ErrNotRunning     = errors.New("livefeed: not running")
	ErrClosed         = errors.New("livefeed: instance closed")
	ErrInvalidConfig  = errors.New("livefeed: invalid config")
)

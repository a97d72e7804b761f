// Package log provides the logging abstraction shared by livefeed components.
//
// Components accept a Logger and default to a no-op implementation, so the
// pipeline stays silent unless the embedding application wires a real logger.
// A zerolog adapter is provided for applications that already use zerolog.
//
// # Usage
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	connLog := log.With(logger, log.String("component", "connection"))
//	connLog.Info("transport open", log.String("attempt", id))
//
// Use the no-op logger in tests:
//
//	logger := log.NewNoopLogger()
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package log

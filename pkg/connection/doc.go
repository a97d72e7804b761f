// Package connection owns the persistent server-push connection of a session.
//
// A Manager dials a transport through a Dialer, parses every inbound frame
// into a named Event, and dispatches it synchronously to the listeners
// registered for that name, in wire order. Listeners survive reconnects.
//
// # State Machine
//
// Valid state transitions:
//   - Idle -> Connecting
//   - Connecting -> Open, Reconnecting, Closed
//   - Open -> Reconnecting, Connecting, Closed
//   - Reconnecting -> Connecting, Closed
//   - Closed -> Connecting
//
// Open -> Connecting happens only when Reconnect replaces the credential.
//
// # Reconnection
//
// When an open transport drops, or a dial fails, the Manager moves to
// Reconnecting and retries after an exponential, jittered, capped delay.
// Delays never decrease while failures accumulate and return to the base
// delay after a successful connect. Retries continue until Disconnect, a new
// Connect, or (when Config.MaxAuthFailures is set) too many consecutive
// authentication failures.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package connection

// Package mapper turns domain events from the connection layer into
// notification requests.
//
// A Mapper registers one listener per catalog event at construction. Each
// event is matched to its Rule, validated, de-duplicated and rendered into a
// notify.Request that is added to the Sink. Events with missing or malformed
// payloads are dropped without a notification.
//
// Equivalent requests (same category, related entity and kind) emitted within
// Config.DedupWindow are suppressed, which keeps bulk backend operations from
// flooding the screen.
//
// The Mapper also observes the connection state and keeps a single
// "connection lost" notice on screen for the length of an outage.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package mapper

// Package audio plays short feedback cues for notifications.
//
// PlayCue is fire-and-forget: it never blocks the caller on playback and
// never reports an error. A missing sound device, a missing player binary, or
// a panicking backend are all logged at debug level and otherwise ignored.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package audio

package connection

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized marks a dial rejected because of the credential.
	// Dialers wrap it so the Manager can tell auth failures from network ones.
	ErrUnauthorized = errors.New("connection: unauthorized")

	// ErrTokenExpired is returned without dialing when the credential is a
	// JWT whose expiry has passed. It wraps ErrUnauthorized.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrUnauthorized)

	// ErrConnectInProgress is returned by Connect while another dial runs.
	ErrConnectInProgress = errors.New("connection: connect in progress")

	// ErrSuperseded is returned when a newer Connect or Reconnect replaced
	// the attempt before it completed.
	ErrSuperseded = errors.New("connection: attempt superseded")

	// ErrClosed is returned when the Manager was disconnected.
	ErrClosed = errors.New("connection: closed")

	// ErrMalformedMessage is returned by ParseMessage for unusable frames.
	ErrMalformedMessage = errors.New("connection: malformed message")
)

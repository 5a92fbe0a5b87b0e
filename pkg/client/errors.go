package client

import "errors"

var (
	// ErrOpInvalid is returned by ApplyLocal when the op fails apply
	// against the client's current snapshot.
	ErrOpInvalid = errors.New("client: operation invalid against current snapshot")

	// ErrUnexpectedAck is returned by OnServerAck when called while the
	// client is Synchronized (no op outstanding to acknowledge).
	ErrUnexpectedAck = errors.New("client: unexpected ack with no outstanding operation")

	// ErrTransportFailure wraps a failure reported by the transport. It
	// never alters the state machine: pending is preserved so a reconnect
	// can resend it.
	ErrTransportFailure = errors.New("client: transport failure")
)

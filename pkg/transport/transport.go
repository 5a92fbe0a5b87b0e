// Package transport declares the narrow bidirectional transport contract
// component D of the system needs (connect/send/disconnect with
// asynchronous delivery) and one concrete in-memory implementation for
// wiring the client state machine and server in tests and the demo
// command. Concrete network transports (WebSocket, SSE, polling) are
// explicitly out of scope; this package only has to preserve in-order,
// per-document delivery for whatever transport a deployment chooses.
package transport

import "context"

// Kind tags which variant of the wire envelope a Message carries, matching
// the ClientToServer/ServerToClient schema.
type Kind string

const (
	KindOp      Kind = "op"
	KindAck     Kind = "ack"
	KindInit    Kind = "init"
	KindTimeout Kind = "timeout"
)

// Message is the wire envelope exchanged over a Transport. Op carries its
// own JSON-tagged-component encoding (see pkg/ot); Message itself only
// adds the kind/revision/snapshot framing.
type Message struct {
	Kind           Kind   `json:"type"`
	Op             []byte `json:"op,omitempty"`
	Revision       int    `json:"revision,omitempty"`
	Snapshot       string `json:"snapshot,omitempty"`
	SuggestPolling bool   `json:"suggestPolling,omitempty"`
}

// Transport is a bidirectional channel for exchanging Messages between one
// client and the server for a single document.
//
// connect/send/disconnect never block the caller's OT state-machine logic;
// the reference model treats them as the only suspension points (see
// SPEC_FULL.md's concurrency model). Receive is realized here as a
// channel, one of the realizations the spec calls out as acceptable for a
// callback-style on_receive.
type Transport interface {
	// ID identifies this transport endpoint.
	ID() string
	// Connect establishes the connection. MemoryTransport delivers messages
	// to Receive() whether or not Connect has been called.
	Connect(ctx context.Context) error
	// Send delivers msg to the remote side.
	Send(ctx context.Context, msg *Message) error
	// Receive returns the channel messages from the remote side arrive on.
	Receive() <-chan *Message
	// Disconnect tears down the connection.
	Disconnect() error
	// IsConnected reports whether Connect has succeeded and Disconnect has
	// not yet been called.
	IsConnected() bool
}

// Error is a typed transport failure, carrying a stable code so callers
// can distinguish send/receive/closed failures without string matching.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	// ErrClosed is returned by Send once Disconnect has been called.
	ErrClosed = &Error{Code: "closed", Message: "transport: closed"}
	// ErrSendFailed wraps an otherwise-unspecified send failure.
	ErrSendFailed = &Error{Code: "send_failed", Message: "transport: send failed"}
)

// BaseTransport provides the channel plumbing shared by in-memory and
// future concrete transport implementations.
type BaseTransport struct {
	id        string
	sendCh    chan *Message
	recvCh    chan *Message
	closeCh   chan struct{}
	connected bool
}

// NewBaseTransport returns a BaseTransport identified by id, with buffered
// send/receive channels.
func NewBaseTransport(id string) *BaseTransport {
	return &BaseTransport{
		id:      id,
		sendCh:  make(chan *Message, 64),
		recvCh:  make(chan *Message, 64),
		closeCh: make(chan struct{}),
	}
}

func (t *BaseTransport) ID() string { return t.id }

func (t *BaseTransport) Send(ctx context.Context, msg *Message) error {
	select {
	case <-t.closeCh:
		return ErrClosed
	default:
	}

	select {
	case <-t.closeCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case t.sendCh <- msg:
		return nil
	}
}

func (t *BaseTransport) Receive() <-chan *Message { return t.recvCh }

func (t *BaseTransport) Disconnect() error {
	select {
	case <-t.closeCh:
		return nil
	default:
		close(t.closeCh)
		t.connected = false
		return nil
	}
}

func (t *BaseTransport) IsConnected() bool { return t.connected }

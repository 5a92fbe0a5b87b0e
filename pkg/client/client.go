// Package client implements the three-state client synchronization
// machine: it coalesces local edits into a pending/buffer pair, reconciles
// incoming remote operations against them, and keeps the local snapshot
// convergent with the server's linearization.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/coreseekdev/openot/pkg/ot"
	"github.com/coreseekdev/openot/pkg/transport"
)

// State names the three machine states from the data model.
type State int

const (
	// Synchronized means no unacknowledged ops are outstanding.
	Synchronized State = iota
	// AwaitingConfirm means one op was sent and awaits acknowledgment.
	AwaitingConfirm
	// AwaitingWithBuffer means one op is in flight and further local edits
	// have coalesced into buffer.
	AwaitingWithBuffer
)

func (s State) String() string {
	switch s {
	case Synchronized:
		return "synchronized"
	case AwaitingConfirm:
		return "awaiting_confirm"
	case AwaitingWithBuffer:
		return "awaiting_with_buffer"
	default:
		return "unknown"
	}
}

// Unsubscribe removes a listener registered with Subscribe.
type Unsubscribe func()

// Client is the reference client state machine for the Text OT type.
// Concrete typing lives here, at the client, per the server's opaque type
// registry design: Client works directly with *ot.Operation rather than
// the server's opaque []byte encoding.
type Client struct {
	mu sync.Mutex

	snapshot string
	revision int
	state    State
	pending  *ot.Operation
	buffer   *ot.Operation

	transport transport.Transport
	listeners map[int]func(string)
	nextSub   int
	logger    *log.Logger
}

// Option configures a Client at construction time, the same functional-
// options pattern pkg/server uses for Server.
type Option func(*Client)

// WithLogger overrides the Client's logger, which defaults to
// log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New constructs a Client in Synchronized, seeded with initialSnapshot and
// initialRevision. If tr is non-nil, New registers the client's receive
// loop and initiates connect without blocking; queued local ops remain
// buffered until the transport finishes connecting.
func New(initialSnapshot string, initialRevision int, tr transport.Transport, opts ...Option) *Client {
	c := &Client{
		snapshot:  initialSnapshot,
		revision:  initialRevision,
		state:     Synchronized,
		transport: tr,
		listeners: make(map[int]func(string)),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if tr != nil {
		go func() { _ = tr.Connect(context.Background()) }()
		go c.receiveLoop()
	}

	return c
}

// Snapshot returns the client's current local snapshot.
func (c *Client) Snapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Revision returns the client's current revision.
func (c *Client) Revision() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// State returns the client's current machine state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers listener to be invoked, synchronously with the
// mutation, after every snapshot change. The returned Unsubscribe handle
// removes it.
func (c *Client) Subscribe(listener func(snapshot string)) Unsubscribe {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = listener
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) notify() {
	snapshot := c.snapshot
	for _, l := range c.listeners {
		l(snapshot)
	}
}

// ApplyLocal is the user-edit path: op is validated against the current
// snapshot, applied, and folded into pending/buffer per the state machine.
func (c *Client) ApplyLocal(op *ot.Operation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	newSnapshot, err := ot.Apply(c.snapshot, op)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpInvalid, err)
	}
	c.snapshot = newSnapshot

	switch c.state {
	case Synchronized:
		c.pending = op
		c.state = AwaitingConfirm
		c.send(op, c.revision)

	case AwaitingConfirm:
		c.buffer = op
		c.state = AwaitingWithBuffer

	case AwaitingWithBuffer:
		composed, err := ot.Compose(c.buffer, op)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOpInvalid, err)
		}
		c.buffer = composed
	}

	c.notify()
	return nil
}

// OnServerAck handles an incoming {kind: Ack} message.
func (c *Client) OnServerAck() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onServerAck()
}

func (c *Client) onServerAck() error {
	switch c.state {
	case Synchronized:
		return ErrUnexpectedAck

	case AwaitingConfirm:
		c.pending = nil
		c.state = Synchronized
		c.revision++

	case AwaitingWithBuffer:
		c.pending = c.buffer
		c.buffer = nil
		c.state = AwaitingConfirm
		c.revision++
		c.send(c.pending, c.revision)
	}
	return nil
}

// OnRemote handles an incoming committed operation from another client,
// already transformed and linearized by the server.
func (c *Client) OnRemote(op *ot.Operation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onRemote(op)
}

func (c *Client) onRemote(op *ot.Operation) error {
	switch c.state {
	case Synchronized:
		newSnapshot, err := ot.Apply(c.snapshot, op)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOpInvalid, err)
		}
		c.snapshot = newSnapshot
		c.revision++

	case AwaitingConfirm:
		opPrime, err := ot.Transform(op, c.pending, ot.Right)
		if err != nil {
			return err
		}
		pendingPrime, err := ot.Transform(c.pending, op, ot.Left)
		if err != nil {
			return err
		}
		c.pending = pendingPrime

		newSnapshot, err := ot.Apply(c.snapshot, opPrime)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOpInvalid, err)
		}
		c.snapshot = newSnapshot
		c.revision++

	case AwaitingWithBuffer:
		opVsPending, err := ot.Transform(op, c.pending, ot.Right)
		if err != nil {
			return err
		}
		pendingPrime, err := ot.Transform(c.pending, op, ot.Left)
		if err != nil {
			return err
		}

		opVsBuffer, err := ot.Transform(opVsPending, c.buffer, ot.Right)
		if err != nil {
			return err
		}
		bufferPrime, err := ot.Transform(c.buffer, opVsPending, ot.Left)
		if err != nil {
			return err
		}

		c.pending = pendingPrime
		c.buffer = bufferPrime

		newSnapshot, err := ot.Apply(c.snapshot, opVsBuffer)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOpInvalid, err)
		}
		c.snapshot = newSnapshot
		c.revision++
	}

	c.notify()
	return nil
}

func (c *Client) send(op *ot.Operation, revision int) {
	if c.transport == nil {
		return
	}
	data, err := json.Marshal(op)
	if err != nil {
		return
	}
	msg := &transport.Message{Kind: transport.KindOp, Op: data, Revision: revision}
	go func() {
		if err := c.transport.Send(context.Background(), msg); err != nil {
			// Send failures never mutate the state machine; pending is
			// preserved so a reconnect can resend it (see Reconnect).
			c.logger.Printf("client: send failed, pending preserved for reconnect: %v", fmt.Errorf("%w: %v", ErrTransportFailure, err))
		}
	}()
}

// Reconnect resends the outstanding pending op at the client's current
// revision, for use after a transport reconnect. Pending has already been
// transformed against any remote ops applied since it was first sent, so
// it pairs with the current revision. It is a no-op in Synchronized.
func (c *Client) Reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.send(c.pending, c.revision)
	}
}

func (c *Client) receiveLoop() {
	for msg := range c.transport.Receive() {
		switch msg.Kind {
		case transport.KindAck:
			c.mu.Lock()
			_ = c.onServerAck()
			c.mu.Unlock()

		case transport.KindOp:
			var op ot.Operation
			if err := json.Unmarshal(msg.Op, &op); err != nil {
				continue
			}
			c.mu.Lock()
			_ = c.onRemote(&op)
			c.mu.Unlock()

		case transport.KindInit:
			c.mu.Lock()
			c.snapshot = msg.Snapshot
			c.revision = msg.Revision
			c.state = Synchronized
			c.pending = nil
			c.buffer = nil
			c.notify()
			c.mu.Unlock()
		}
	}
}

package transport

import (
	"context"
	"sync"
)

// MemoryTransport is an in-process Transport backed by Go channels, for
// wiring the client state machine and server together in tests and the
// demo command without a real network.
type MemoryTransport struct {
	*BaseTransport
	mu   sync.Mutex
	peer *MemoryTransport
}

// NewMemoryPipe returns two MemoryTransport endpoints wired to each other:
// a message sent on one arrives on the other's Receive channel. This
// models the client/server pairing directly, in the same channel-pair
// idiom the teacher's BaseTransport send/recv channels use internally.
func NewMemoryPipe(clientID, serverID string) (client, server *MemoryTransport) {
	client = &MemoryTransport{BaseTransport: NewBaseTransport(clientID)}
	server = &MemoryTransport{BaseTransport: NewBaseTransport(serverID)}
	client.peer = server
	server.peer = client
	return client, server
}

// Connect marks the endpoint connected. Memory pipes need no handshake.
func (t *MemoryTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = true
	return nil
}

// Send delivers msg to the paired endpoint's Receive channel.
func (t *MemoryTransport) Send(ctx context.Context, msg *Message) error {
	t.mu.Lock()
	peer := t.peer
	t.mu.Unlock()
	if peer == nil {
		return ErrSendFailed
	}

	select {
	case <-t.BaseTransport.closeCh:
		return ErrClosed
	default:
	}

	select {
	case <-t.BaseTransport.closeCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case peer.recvCh <- msg:
		return nil
	}
}

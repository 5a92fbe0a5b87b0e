// Command openot-demo wires two in-process clients and one in-process
// server together over the in-memory transport and adapter, showing the
// full data-flow diagram from spec.md §2: each client's local edit is
// caught up against concurrent history and committed, and the resulting
// operation is broadcast back so both clients converge on the same text.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/coreseekdev/openot/pkg/client"
	"github.com/coreseekdev/openot/pkg/memadapter"
	"github.com/coreseekdev/openot/pkg/ot"
	"github.com/coreseekdev/openot/pkg/server"
	"github.com/coreseekdev/openot/pkg/transport"
)

// hub is the thin "broadcast to every other subscriber" glue spec.md
// §4.3 step 7 leaves to the caller: Server.Submit itself never touches a
// transport. One hub serves one document.
type hub struct {
	docID string
	srv   *server.Server
	peers map[string]*transport.MemoryTransport
}

func newHub(docID string, srv *server.Server) *hub {
	return &hub{docID: docID, srv: srv, peers: make(map[string]*transport.MemoryTransport)}
}

// join mints a fresh client/server transport pair for clientID, registers
// the server-side end with the hub, and starts relaying submissions from
// it. It returns the client-side end for a client.Client to use.
func (h *hub) join(ctx context.Context, clientID string) *transport.MemoryTransport {
	clientSide, serverSide := transport.NewMemoryPipe(clientID+"-client", clientID+"-server")
	h.peers[clientID] = serverSide
	go h.relay(ctx, clientID, serverSide)
	return clientSide
}

func (h *hub) relay(ctx context.Context, clientID string, ep *transport.MemoryTransport) {
	if err := ep.Connect(ctx); err != nil {
		log.Printf("hub: %s: connect: %v", clientID, err)
		return
	}

	for msg := range ep.Receive() {
		if msg.Kind != transport.KindOp {
			continue
		}

		result, err := h.srv.Submit(ctx, h.docID, msg.Op, msg.Revision)
		if err != nil {
			log.Printf("hub: %s: submit rejected: %v", clientID, err)
			continue
		}

		if err := ep.Send(ctx, &transport.Message{Kind: transport.KindAck}); err != nil {
			log.Printf("hub: %s: ack: %v", clientID, err)
		}

		for peerID, peer := range h.peers {
			if peerID == clientID {
				continue
			}
			broadcast := &transport.Message{Kind: transport.KindOp, Op: result.Op, Revision: result.Revision}
			if err := peer.Send(ctx, broadcast); err != nil {
				log.Printf("hub: %s: broadcast to %s: %v", clientID, peerID, err)
			}
		}
	}
}

func main() {
	ctx := context.Background()

	adapter := memadapter.New()
	srv := server.New(adapter)
	if err := srv.RegisterType(ot.NewTextType()); err != nil {
		log.Fatalf("register type: %v", err)
	}

	docID := uuid.NewString()
	if err := srv.CreateDocument(ctx, docID, ot.TextName, nil); err != nil {
		log.Fatalf("create document %s: %v", docID, err)
	}
	fmt.Printf("document %s created\n", docID)

	h := newHub(docID, srv)
	aliceTr := h.join(ctx, "alice")
	bobTr := h.join(ctx, "bob")

	alice := client.New("", 0, aliceTr)
	bob := client.New("", 0, bobTr)

	alice.Subscribe(func(s string) { fmt.Printf("alice sees: %q\n", s) })
	bob.Subscribe(func(s string) { fmt.Printf("bob   sees: %q\n", s) })

	if err := alice.ApplyLocal(ot.NewBuilder().Insert("Hello").Build()); err != nil {
		log.Fatalf("alice local edit: %v", err)
	}
	if err := bob.ApplyLocal(ot.NewBuilder().Insert("World").Build()); err != nil {
		log.Fatalf("bob local edit: %v", err)
	}

	// The relay goroutines above run concurrently with this function;
	// give them a moment to finish the round trip before reading final
	// state. A production caller would instead block on a completion
	// signal per submission.
	time.Sleep(200 * time.Millisecond)

	fmt.Printf("alice final: %q (rev %d)\n", alice.Snapshot(), alice.Revision())
	fmt.Printf("bob   final: %q (rev %d)\n", bob.Snapshot(), bob.Revision())
}

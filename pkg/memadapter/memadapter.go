// Package memadapter supplies the one reference BackendAdapter this
// module ships: an in-memory, mutex-guarded implementation of the
// optimistic-concurrency contract spec.md §4.4 and SPEC_FULL.md's D′
// require. It exists so Server (pkg/server) has a concrete, correct
// adapter to run against in tests and the demo command — it is not a
// production storage backend (those are out of scope per spec.md §1).
package memadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreseekdev/openot/pkg/server"
)

// document is the adapter's private bookkeeping for one doc_id. Per
// DESIGN.md's pkg/memadapter entry, the stored snapshot is never
// recomputed on commit; only the initial snapshot and the append-only
// log are authoritative.
type document struct {
	typeName        string
	v               int
	initialSnapshot []byte
	log             [][]byte
}

// Adapter is an in-memory BackendAdapter. The zero value is not usable;
// construct with New.
type Adapter struct {
	mu   sync.Mutex
	docs map[string]*document
}

// New returns an empty Adapter.
func New() *Adapter {
	return &Adapter{docs: make(map[string]*document)}
}

// CreateDocument initializes docID at v=0 with an empty log.
func (a *Adapter) CreateDocument(_ context.Context, docID, typeName string, initialSnapshot []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.docs[docID]; exists {
		return fmt.Errorf("%w: %s", server.ErrDocumentExists, docID)
	}

	snapshot := make([]byte, len(initialSnapshot))
	copy(snapshot, initialSnapshot)
	a.docs[docID] = &document{typeName: typeName, initialSnapshot: snapshot}
	return nil
}

// GetRecord returns docID's {type_name, v, snapshot}. Snapshot is always
// the document's initial snapshot, unchanged by any commit — callers
// needing the current text must replay TypeName's Apply over the log
// themselves, starting from Snapshot.
func (a *Adapter) GetRecord(_ context.Context, docID string) (*server.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, ok := a.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", server.ErrDocumentNotFound, docID)
	}

	snapshot := make([]byte, len(doc.initialSnapshot))
	copy(snapshot, doc.initialSnapshot)
	return &server.Record{TypeName: doc.typeName, V: doc.v, Snapshot: snapshot}, nil
}

// GetHistory returns the operations committed at log indices [start, end),
// oldest first. end == nil means "to the current tail".
func (a *Adapter) GetHistory(_ context.Context, docID string, start int, end *int) ([][]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, ok := a.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", server.ErrDocumentNotFound, docID)
	}

	stop := doc.v
	if end != nil {
		stop = *end
	}
	if start < 0 || stop > len(doc.log) || start > stop {
		return nil, fmt.Errorf("server: history range [%d, %d) out of bounds for log of length %d", start, stop, len(doc.log))
	}

	out := make([][]byte, stop-start)
	copy(out, doc.log[start:stop])
	return out, nil
}

// SaveOperation atomically appends op as the commit advancing docID from
// newRevision-1 to newRevision. It fails server.ErrConcurrencyConflict
// unless the adapter's current v is exactly newRevision-1.
func (a *Adapter) SaveOperation(_ context.Context, docID string, op []byte, newRevision int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, ok := a.docs[docID]
	if !ok {
		return fmt.Errorf("%w: %s", server.ErrDocumentNotFound, docID)
	}

	if doc.v != newRevision-1 {
		return fmt.Errorf("%w: adapter at v=%d, caller expected v=%d", server.ErrConcurrencyConflict, doc.v, newRevision-1)
	}

	opCopy := make([]byte, len(op))
	copy(opCopy, op)
	doc.log = append(doc.log, opCopy)
	doc.v = newRevision
	return nil
}

var _ server.BackendAdapter = (*Adapter)(nil)

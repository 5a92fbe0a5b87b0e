// Package server implements the authoritative catch-up-and-commit
// pipeline: it linearizes a client's concurrent submission against the
// tail of a document's committed history and commits it under optimistic
// locking via a BackendAdapter.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/coreseekdev/openot/pkg/ottype"
)

// defaultMaxCommitRetries bounds how many times Submit re-attempts the
// catch-up-and-commit cycle after an adapter CAS miss before giving up
// with ErrConcurrencyConflict. The spec only requires "at least one"
// retry; three gives headroom under light contention without risking an
// unbounded retry storm.
const defaultMaxCommitRetries = 3

// Option configures a Server at construction time, the pattern the
// teacher uses for its engine/session config structs, expressed as
// functional options.
type Option func(*Server)

// WithLogger overrides the Server's logger, which defaults to
// log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxCommitRetries overrides how many times Submit retries a commit
// after a ConcurrencyConflict from the adapter.
func WithMaxCommitRetries(n int) Option {
	return func(s *Server) { s.maxCommitRetries = n }
}

// Server is the authoritative server component (spec.md §4.3). It holds
// a registry of OT types and a single BackendAdapter; both the registry
// and the adapter are shared across all documents the server serves.
type Server struct {
	types            *ottype.Registry
	adapter          BackendAdapter
	logger           *log.Logger
	maxCommitRetries int
}

// New constructs a Server backed by adapter, with an empty type registry.
func New(adapter BackendAdapter, opts ...Option) *Server {
	s := &Server{
		types:            ottype.NewRegistry(),
		adapter:          adapter,
		logger:           log.Default(),
		maxCommitRetries: defaultMaxCommitRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterType adds t, keyed by t.Name(). Re-registering the same Type
// value is idempotent; registering a different Type under a name already
// in use fails ErrTypeConflict.
func (s *Server) RegisterType(t ottype.Type) error {
	if err := s.types.Register(t); err != nil {
		return fmt.Errorf("%w: %v", ErrTypeConflict, err)
	}
	return nil
}

// CreateDocument delegates to the adapter to initialize doc_id at v=0
// with initialSnapshot and an empty log, keyed to a type that must
// already be registered — an unregistered type_name can never be caught
// up against later, so rejecting it here surfaces the mistake at
// creation instead of at the first Submit.
func (s *Server) CreateDocument(ctx context.Context, docID, typeName string, initialSnapshot []byte) error {
	if _, err := s.types.Lookup(typeName); err != nil {
		return fmt.Errorf("%w: %s", ErrTypeUnknown, typeName)
	}
	if err := s.adapter.CreateDocument(ctx, docID, typeName, initialSnapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Result is what Submit returns: the (possibly rewritten) operation as
// it was actually committed, and the revision it committed at. The
// caller is responsible for broadcasting Op at Revision to every other
// subscriber of the document — that fan-out is a transport concern, not
// Server's (spec.md §4.3 step 7).
type Result struct {
	Op       []byte
	Revision int
}

// Submit catches up op — submitted by a client whose last known revision
// was clientRevision — against any history committed since, then commits
// it under optimistic locking.
//
// The catch-up transform always treats committed history as the priority
// side (ottype.Right for op, i.e. op yields): the server's discipline is
// that committed history always wins a positional tie, matching the
// client's own "server-wins-on-ties" policy (spec.md §4.2).
//
// On an adapter CAS miss (another commit raced in between GetRecord and
// SaveOperation), Submit re-reads the record and re-catches-up from the
// original op, up to maxCommitRetries times, before giving up with
// ErrConcurrencyConflict.
func (s *Server) Submit(ctx context.Context, docID string, op []byte, clientRevision int) (*Result, error) {
	// submissionID correlates this Submit call's retry attempts in the
	// log; it never touches the committed log or the wire protocol.
	submissionID := uuid.NewString()

	for attempt := 0; ; attempt++ {
		record, err := s.adapter.GetRecord(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocumentNotFound, err)
		}

		typ, err := s.types.Lookup(record.TypeName)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrTypeUnknown, record.TypeName)
		}

		if clientRevision > record.V {
			return nil, fmt.Errorf("%w: client at %d, document at %d", ErrRevisionFromFuture, clientRevision, record.V)
		}

		opStar := op
		if clientRevision < record.V {
			v := record.V
			history, err := s.adapter.GetHistory(ctx, docID, clientRevision, &v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
			}
			for _, past := range history {
				opStar, err = typ.Transform(opStar, past, ottype.Right)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrOpMalformed, err)
				}
			}
		}

		newRevision := record.V + 1
		err = s.adapter.SaveOperation(ctx, docID, opStar, newRevision)
		if err == nil {
			return &Result{Op: opStar, Revision: newRevision}, nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if attempt >= s.maxCommitRetries {
			s.logger.Printf("server: [%s] submit to %s exhausted %d retries: %v", submissionID, docID, s.maxCommitRetries, err)
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		s.logger.Printf("server: [%s] submit to %s raced a concurrent commit, retrying (attempt %d)", submissionID, docID, attempt+1)
	}
}

// Package ottype declares the server's view of an OT type: a uniform
// vtable of apply/transform/compose operating on an opaque byte-encoded
// snapshot and operation, so the server's type registry never needs to
// know the concrete shape of any registered type's data.
package ottype

import "errors"

// Side designates the priority side of a Transform call, mirroring
// ot.Side at the opaque-bytes boundary.
type Side int

const (
	Left Side = iota
	Right
)

// Type is the server-facing contract a concrete OT data type must
// satisfy. Snapshot and operation payloads are opaque []byte: a type is
// free to choose its own encoding (ot.TextType uses the JSON component
// schema; a scripted type might use whatever its script produces).
type Type interface {
	// Name identifies this type in the registry.
	Name() string
	// Apply runs op against snapshot and returns the resulting snapshot.
	Apply(snapshot, op []byte) ([]byte, error)
	// Transform resolves op `a` against a concurrently-applied op `b`,
	// with side breaking Insert/Insert-style ties.
	Transform(a, b []byte, side Side) ([]byte, error)
	// Compose produces a single op equivalent to applying a then b.
	Compose(a, b []byte) ([]byte, error)
}

// ErrTypeConflict is returned by a Registry when registering a second,
// differently-behaved type under a name that's already taken.
var ErrTypeConflict = errors.New("ottype: type already registered under this name")

// ErrTypeUnknown is returned when looking up a type name the registry has
// no entry for.
var ErrTypeUnknown = errors.New("ottype: unknown type")

// Registry is the server's heterogeneous name -> Type map. Registration is
// idempotent for the same concrete Type value; registering a different
// Type under an already-used name is a conflict.
type Registry struct {
	types map[string]Type
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Type)}
}

// Register adds t, keyed by t.Name(). Re-registering the exact same Type
// value under its own name is a no-op; registering any other Type under a
// name already present fails ErrTypeConflict.
func (r *Registry) Register(t Type) error {
	name := t.Name()
	if existing, ok := r.types[name]; ok {
		if existing == t {
			return nil
		}
		return ErrTypeConflict
	}
	r.types[name] = t
	return nil
}

// Lookup returns the type registered under name, or ErrTypeUnknown.
func (r *Registry) Lookup(name string) (Type, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, ErrTypeUnknown
	}
	return t, nil
}

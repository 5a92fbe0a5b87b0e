// Package scripttype provides a Type (pkg/ottype) whose apply/transform
// /compose behavior is supplied as JavaScript, evaluated in a goja VM.
// This is the concrete shape of spec.md §9's "optional alternative OT
// type... with optional semantic hooks": rather than wrapping a specific
// external JSON-OT library (explicitly out of scope per spec.md §1), it
// lets any scripted algebra register as a server Type, grounded in the
// teacher's own use of a goja.Runtime to script a mock client in
// e2e/transport_test.go.
package scripttype

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/coreseekdev/openot/pkg/ottype"
)

// Type adapts three named JavaScript functions to the ottype.Type
// contract:
//
//	function apply(snapshot, op) -> snapshot
//	function transform(a, b, side) -> a'   // side: 0 = Left, 1 = Right
//	function compose(a, b) -> ab
//
// Snapshot and op values cross the Go/JS boundary JSON-decoded and
// re-encoded, so the script sees and returns plain JS values (numbers,
// strings, objects, arrays) rather than raw bytes.
type Type struct {
	mu        sync.Mutex
	vm        *goja.Runtime
	name      string
	applyFn   goja.Callable
	transFn   goja.Callable
	composeFn goja.Callable
}

// New evaluates source in a fresh goja VM and binds it as a Type
// registered under name. source must define top-level apply, transform,
// and compose functions; New fails if any is missing.
func New(name, source string) (*Type, error) {
	vm := goja.New()
	if _, err := vm.RunString(source); err != nil {
		return nil, fmt.Errorf("scripttype: evaluate %q script: %w", name, err)
	}

	t := &Type{vm: vm, name: name}

	bindings := []struct {
		jsName string
		dst    *goja.Callable
	}{
		{"apply", &t.applyFn},
		{"transform", &t.transFn},
		{"compose", &t.composeFn},
	}
	for _, b := range bindings {
		fn, ok := goja.AssertFunction(vm.Get(b.jsName))
		if !ok {
			return nil, fmt.Errorf("scripttype: %q script must define function %q", name, b.jsName)
		}
		*b.dst = fn
	}

	return t, nil
}

// Name identifies this type in a server's ottype.Registry.
func (t *Type) Name() string { return t.name }

// Apply calls the script's apply(snapshot, op).
func (t *Type) Apply(snapshot, op []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapVal, opVal, err := t.decodeTwo(snapshot, op)
	if err != nil {
		return nil, err
	}

	result, err := t.applyFn(goja.Undefined(), snapVal, opVal)
	if err != nil {
		return nil, fmt.Errorf("scripttype: %s: apply: %w", t.name, err)
	}
	return t.encode(result)
}

// Transform calls the script's transform(a, b, side).
func (t *Type) Transform(a, b []byte, side ottype.Side) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	aVal, bVal, err := t.decodeTwo(a, b)
	if err != nil {
		return nil, err
	}

	result, err := t.transFn(goja.Undefined(), aVal, bVal, t.vm.ToValue(int(side)))
	if err != nil {
		return nil, fmt.Errorf("scripttype: %s: transform: %w", t.name, err)
	}
	return t.encode(result)
}

// Compose calls the script's compose(a, b).
func (t *Type) Compose(a, b []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	aVal, bVal, err := t.decodeTwo(a, b)
	if err != nil {
		return nil, err
	}

	result, err := t.composeFn(goja.Undefined(), aVal, bVal)
	if err != nil {
		return nil, fmt.Errorf("scripttype: %s: compose: %w", t.name, err)
	}
	return t.encode(result)
}

func (t *Type) decodeTwo(a, b []byte) (goja.Value, goja.Value, error) {
	var av, bv interface{}
	if err := json.Unmarshal(a, &av); err != nil {
		return nil, nil, fmt.Errorf("scripttype: %s: decode first argument: %w", t.name, err)
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return nil, nil, fmt.Errorf("scripttype: %s: decode second argument: %w", t.name, err)
	}
	return t.vm.ToValue(av), t.vm.ToValue(bv), nil
}

func (t *Type) encode(v goja.Value) ([]byte, error) {
	out, err := json.Marshal(v.Export())
	if err != nil {
		return nil, fmt.Errorf("scripttype: %s: encode result: %w", t.name, err)
	}
	return out, nil
}

var _ ottype.Type = (*Type)(nil)

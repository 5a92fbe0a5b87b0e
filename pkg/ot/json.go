package ot

import (
	"encoding/json"
	"fmt"
)

// component is the wire form of a single Op: an object carrying exactly one
// of "r" (Retain), "i" (Insert), or "d" (Delete).
type component struct {
	R *int    `json:"r,omitempty"`
	I *string `json:"i,omitempty"`
	D *int    `json:"d,omitempty"`
}

// MarshalJSON encodes op as `[ {"r":n} | {"i":"s"} | {"d":n}, … ]`.
func (op *Operation) MarshalJSON() ([]byte, error) {
	wire := make([]component, len(op.ops))
	for i, c := range op.ops {
		switch v := c.(type) {
		case RetainOp:
			n := int(v)
			wire[i] = component{R: &n}
		case InsertOp:
			s := string(v)
			wire[i] = component{I: &s}
		case DeleteOp:
			n := v.Length()
			wire[i] = component{D: &n}
		default:
			return nil, fmt.Errorf("%w: unknown component type %T", ErrOpMalformed, c)
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes op from the wire form produced by MarshalJSON.
// Per the tagged-variant contract, a component object carrying more than
// one of "r"/"i"/"d", or none of them, is rejected as ErrOpMalformed.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var wire []component
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrOpMalformed, err)
	}

	b := NewBuilder()
	for _, c := range wire {
		present := 0
		if c.R != nil {
			present++
		}
		if c.I != nil {
			present++
		}
		if c.D != nil {
			present++
		}
		if present != 1 {
			return fmt.Errorf("%w: component must carry exactly one of r/i/d, got %d", ErrOpMalformed, present)
		}

		switch {
		case c.R != nil:
			if *c.R <= 0 {
				return fmt.Errorf("%w: retain must be positive", ErrOpMalformed)
			}
			b.Retain(*c.R)
		case c.I != nil:
			if *c.I == "" {
				return fmt.Errorf("%w: insert must be nonempty", ErrOpMalformed)
			}
			b.Insert(*c.I)
		case c.D != nil:
			if *c.D <= 0 {
				return fmt.Errorf("%w: delete must be positive", ErrOpMalformed)
			}
			b.Delete(*c.D)
		}
	}

	built := b.Build()
	op.ops = built.ops
	op.baseLength = built.baseLength
	op.targetLength = built.targetLength
	return nil
}

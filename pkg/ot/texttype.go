package ot

import (
	"encoding/json"
	"fmt"

	"github.com/coreseekdev/openot/pkg/ottype"
)

// TextName is the registry name the built-in text type is registered
// under.
const TextName = "text"

// TextType adapts this package's Operation-based apply/transform/compose
// to the server's opaque-bytes ottype.Type contract. Snapshots are raw
// UTF-8 text; operations are the `[{"r":n}|{"i":"s"}|{"d":n}, …]` wire
// form implemented in json.go.
type TextType struct{}

// NewTextType returns the built-in Text OT type, ready to register with an
// ottype.Registry.
func NewTextType() TextType { return TextType{} }

func (TextType) Name() string { return TextName }

func (TextType) Apply(snapshot, opBytes []byte) ([]byte, error) {
	op, err := decodeOp(opBytes)
	if err != nil {
		return nil, err
	}
	result, err := Apply(string(snapshot), op)
	if err != nil {
		return nil, err
	}
	return []byte(result), nil
}

func (TextType) Transform(aBytes, bBytes []byte, side ottype.Side) ([]byte, error) {
	a, err := decodeOp(aBytes)
	if err != nil {
		return nil, err
	}
	b, err := decodeOp(bBytes)
	if err != nil {
		return nil, err
	}
	var s Side
	if side == ottype.Right {
		s = Right
	} else {
		s = Left
	}
	aPrime, err := Transform(a, b, s)
	if err != nil {
		return nil, err
	}
	return encodeOp(aPrime)
}

func (TextType) Compose(aBytes, bBytes []byte) ([]byte, error) {
	a, err := decodeOp(aBytes)
	if err != nil {
		return nil, err
	}
	b, err := decodeOp(bBytes)
	if err != nil {
		return nil, err
	}
	composed, err := Compose(a, b)
	if err != nil {
		return nil, err
	}
	return encodeOp(composed)
}

func decodeOp(data []byte) (*Operation, error) {
	var op Operation
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("ot: decode operation: %w", err)
	}
	return &op, nil
}

func encodeOp(op *Operation) ([]byte, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("ot: encode operation: %w", err)
	}
	return data, nil
}

var _ ottype.Type = TextType{}

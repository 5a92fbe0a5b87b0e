package ot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Lengths(t *testing.T) {
	op := NewBuilder().Build()
	assert.Equal(t, 0, op.BaseLength())
	assert.Equal(t, 0, op.TargetLength())

	op = NewBuilder().Retain(5).Insert("abc").Retain(2).Delete(2).Build()
	assert.Equal(t, 9, op.BaseLength())
	assert.Equal(t, 10, op.TargetLength())
}

func TestBuilder_MergesAdjacentAndDropsZero(t *testing.T) {
	op := NewBuilder().
		Retain(5).Retain(0).
		Insert("lo").Insert("rem").Insert("").
		Delete(3).Delete(0).Delete(2).
		Build()

	require.Len(t, op.Components(), 3)
	assert.Equal(t, RetainOp(5), op.Components()[0])
	assert.Equal(t, InsertOp("lorem"), op.Components()[1])
	assert.Equal(t, DeleteOp(-5), op.Components()[2])
}

func TestBuilder_InsertReordersAheadOfDelete(t *testing.T) {
	op := NewBuilder().Delete(2).Insert("x").Build()
	require.Len(t, op.Components(), 2)
	assert.True(t, IsInsert(op.Components()[0]))
	assert.True(t, IsDelete(op.Components()[1]))
}

// S1 — Apply.
func TestApply_InsertAtEnd(t *testing.T) {
	op := NewBuilder().Retain(5).Insert(" World").Build()
	out, err := Apply("Hello", op)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", out)
}

// S2 — Apply delete.
func TestApply_Delete(t *testing.T) {
	op := NewBuilder().Retain(1).Delete(1).Retain(3).Build()
	out, err := Apply("Hello", op)
	require.NoError(t, err)
	assert.Equal(t, "Hllo", out)
}

func TestApply_LenientTailIsCopiedThrough(t *testing.T) {
	op := NewBuilder().Retain(2).Build()
	out, err := Apply("Hello", op)
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)

	_, err = ApplyWithMode("Hello", op, ApplyStrict)
	assert.ErrorIs(t, err, ErrOpMalformed)
}

func TestApply_OutOfBounds(t *testing.T) {
	op := NewBuilder().Retain(10).Build()
	_, err := Apply("Hello", op)
	assert.ErrorIs(t, err, ErrOpOutOfBounds)
}

func TestApply_EmptyOpIsIdentity(t *testing.T) {
	op := NewBuilder().Build()
	out, err := Apply("Hello", op)
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
}

// S3 — Compose cancellation.
func TestCompose_InsertThenDeleteCancels(t *testing.T) {
	a := NewBuilder().Insert("a").Build()
	b := NewBuilder().Delete(1).Build()
	composed, err := Compose(a, b)
	require.NoError(t, err)
	assert.Len(t, composed.Components(), 0)
}

func TestCompose_EquivalentToSequentialApply(t *testing.T) {
	a := NewBuilder().Retain(5).Insert(" Go").Build()
	b := NewBuilder().Retain(8).Delete(3).Build()

	composed, err := Compose(a, b)
	require.NoError(t, err)

	viaCompose, err := Apply("Hello World", composed)
	require.NoError(t, err)

	viaSequential, err := Apply("Hello World", a)
	require.NoError(t, err)
	viaSequential, err = Apply(viaSequential, b)
	require.NoError(t, err)

	assert.Equal(t, viaSequential, viaCompose)
}

func TestCompose_EmptyOpIsIdentity(t *testing.T) {
	op := NewBuilder().Retain(3).Insert("x").Build()
	id := NewBuilder().Retain(op.TargetLength()).Build()

	composed, err := Compose(op, id)
	require.NoError(t, err)
	assert.True(t, op.Equals(composed))

	id2 := NewBuilder().Retain(op.BaseLength()).Build()
	composed2, err := Compose(id2, op)
	require.NoError(t, err)
	assert.True(t, op.Equals(composed2))
}

// S4 — Transform Insert-vs-Insert tie-break.
func TestTransform_InsertInsertLeftWins(t *testing.T) {
	a := NewBuilder().Retain(3).Insert("A").Build()
	b := NewBuilder().Retain(3).Insert("B").Build()

	aPrime, err := Transform(a, b, Left)
	require.NoError(t, err)
	assert.Equal(t, `[{"r":3},{"i":"A"},{"r":1}]`, mustJSON(t, aPrime))
}

func TestTransform_InsertInsertRightYields(t *testing.T) {
	b := NewBuilder().Retain(3).Insert("B").Build()
	a := NewBuilder().Retain(3).Insert("A").Build()

	bPrime, err := Transform(b, a, Right)
	require.NoError(t, err)
	assert.Equal(t, `[{"r":4},{"i":"B"}]`, mustJSON(t, bPrime))
}

func TestTransform_TP1Convergence(t *testing.T) {
	s := "Hello"
	a := NewBuilder().Retain(5).Insert(" World").Build()
	b := NewBuilder().Insert("Hi ").Retain(5).Build()

	bPrime, err := Transform(b, a, Right)
	require.NoError(t, err)
	leftPath, err := Apply(s, a)
	require.NoError(t, err)
	leftPath, err = Apply(leftPath, bPrime)
	require.NoError(t, err)

	aPrime, err := Transform(a, b, Left)
	require.NoError(t, err)
	rightPath, err := Apply(s, b)
	require.NoError(t, err)
	rightPath, err = Apply(rightPath, aPrime)
	require.NoError(t, err)

	assert.Equal(t, leftPath, rightPath)
}

func TestTransform_DeleteVsDeleteIsRedundant(t *testing.T) {
	a := NewBuilder().Retain(1).Delete(3).Retain(1).Build()
	b := NewBuilder().Retain(1).Delete(3).Retain(1).Build()

	aPrime, err := Transform(a, b, Left)
	require.NoError(t, err)
	assert.True(t, aPrime.IsNoop())
}

func TestTransform_EmptyOpIsIdentity(t *testing.T) {
	a := NewBuilder().Retain(3).Insert("x").Build()
	id := NewBuilder().Retain(a.BaseLength()).Build()

	aPrime, err := Transform(a, id, Left)
	require.NoError(t, err)
	assert.True(t, a.Equals(aPrime))
}

func TestInvert_RoundTrips(t *testing.T) {
	base := "Hello World"
	op := NewBuilder().Retain(6).Delete(5).Insert("Go").Build()

	applied, err := Apply(base, op)
	require.NoError(t, err)
	assert.Equal(t, "Hello Go", applied)

	inverse := op.Invert(base)
	restored, err := Apply(applied, inverse)
	require.NoError(t, err)
	assert.Equal(t, base, restored)
}

func TestOperationJSON_RoundTrip(t *testing.T) {
	op := NewBuilder().Retain(2).Insert("hi").Delete(3).Build()

	data, err := json.Marshal(op)
	require.NoError(t, err)
	assert.Equal(t, `[{"r":2},{"i":"hi"},{"d":3}]`, string(data))

	var decoded Operation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, op.Equals(&decoded))
}

func TestOperationJSON_RejectsMultiKeyComponent(t *testing.T) {
	var op Operation
	err := json.Unmarshal([]byte(`[{"r":2,"i":"x"}]`), &op)
	assert.ErrorIs(t, err, ErrOpMalformed)
}

func TestOperationJSON_RejectsEmptyComponent(t *testing.T) {
	var op Operation
	err := json.Unmarshal([]byte(`[{}]`), &op)
	assert.ErrorIs(t, err, ErrOpMalformed)
}

func mustJSON(t *testing.T, op *Operation) string {
	t.Helper()
	data, err := json.Marshal(op)
	require.NoError(t, err)
	return string(data)
}

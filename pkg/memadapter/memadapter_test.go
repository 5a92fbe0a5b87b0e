package memadapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreseekdev/openot/pkg/memadapter"
	"github.com/coreseekdev/openot/pkg/server"
)

func TestAdapter_CreateAndGetRecord(t *testing.T) {
	ctx := context.Background()
	a := memadapter.New()

	require.NoError(t, a.CreateDocument(ctx, "doc1", "text", []byte("hello")))

	rec, err := a.GetRecord(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "text", rec.TypeName)
	assert.Equal(t, 0, rec.V)
	assert.Equal(t, []byte("hello"), rec.Snapshot)
}

func TestAdapter_CreateDocument_RejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	a := memadapter.New()
	require.NoError(t, a.CreateDocument(ctx, "doc1", "text", nil))

	err := a.CreateDocument(ctx, "doc1", "text", nil)
	assert.ErrorIs(t, err, server.ErrDocumentExists)
}

func TestAdapter_GetRecord_UnknownDocument(t *testing.T) {
	a := memadapter.New()
	_, err := a.GetRecord(context.Background(), "nope")
	assert.ErrorIs(t, err, server.ErrDocumentNotFound)
}

func TestAdapter_SaveOperation_AppendsAndAdvancesRevision(t *testing.T) {
	ctx := context.Background()
	a := memadapter.New()
	require.NoError(t, a.CreateDocument(ctx, "doc1", "text", nil))

	require.NoError(t, a.SaveOperation(ctx, "doc1", []byte("op0"), 1))
	require.NoError(t, a.SaveOperation(ctx, "doc1", []byte("op1"), 2))

	rec, err := a.GetRecord(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.V)

	history, err := a.GetHistory(ctx, "doc1", 0, nil)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []byte("op0"), history[0])
	assert.Equal(t, []byte("op1"), history[1])
}

func TestAdapter_SaveOperation_RejectsStaleOrAheadRevision(t *testing.T) {
	ctx := context.Background()
	a := memadapter.New()
	require.NoError(t, a.CreateDocument(ctx, "doc1", "text", nil))
	require.NoError(t, a.SaveOperation(ctx, "doc1", []byte("op0"), 1))

	assert.ErrorIs(t, a.SaveOperation(ctx, "doc1", []byte("op1"), 1), server.ErrConcurrencyConflict)
	assert.ErrorIs(t, a.SaveOperation(ctx, "doc1", []byte("op1"), 3), server.ErrConcurrencyConflict)
}

func TestAdapter_GetHistory_PartialRange(t *testing.T) {
	ctx := context.Background()
	a := memadapter.New()
	require.NoError(t, a.CreateDocument(ctx, "doc1", "text", nil))
	require.NoError(t, a.SaveOperation(ctx, "doc1", []byte("op0"), 1))
	require.NoError(t, a.SaveOperation(ctx, "doc1", []byte("op1"), 2))
	require.NoError(t, a.SaveOperation(ctx, "doc1", []byte("op2"), 3))

	end := 2
	history, err := a.GetHistory(ctx, "doc1", 1, &end)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, []byte("op1"), history[0])
}

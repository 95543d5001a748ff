package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"orchai/core/events"
	"orchai/core/types"
	"orchai/crypto"
)

func newTestIndexer(t *testing.T, opts Options) *Indexer {
	t.Helper()
	db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	ix, err := New(db, opts)
	require.NoError(t, err)
	return ix
}

// drain runs the indexer until every queued record has been written.
func drain(t *testing.T, ix *Indexer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ix.Run(ctx) }()
	require.Eventually(t, func() bool { return len(ix.queue) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("indexer did not stop")
	}
}

func deposit(height uint64, index int, sender crypto.Address) events.ContractExecuted {
	return events.ContractExecuted{
		TxHash:   fmt.Sprintf("%064x", height),
		Height:   height,
		Index:    index,
		Contract: crypto.AccountAddress("market"),
		Sender:   sender,
		Attributes: []types.Attribute{
			{Key: "action", Value: "deposit_stable"},
			{Key: "deposit_amount", Value: "1000"},
		},
	}
}

func TestIndexerPersistsEvents(t *testing.T) {
	ix := newTestIndexer(t, Options{})
	alice := crypto.AccountAddress("alice")
	bob := crypto.AccountAddress("bob")

	ix.Emit(events.ContractInstantiated{TxHash: "00", Height: 1, Code: "market", Label: "market", Contract: crypto.AccountAddress("market"), Creator: crypto.AccountAddress("owner")})
	ix.Emit(deposit(2, 0, alice))
	ix.Emit(deposit(3, 0, bob))
	ix.Emit(events.BlockProduced{Height: 3, Time: 1_700_000_018, ChainID: "orchai-indexer"})
	ix.Emit(events.EpochKeeper{Height: 3, TxHash: "ab"})
	drain(t, ix)

	all, err := ix.Events(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, events.TypeContractInstantiated, all[0].Type)
	require.Equal(t, uint64(2), all[1].Height)

	deposits, err := ix.Events(context.Background(), Filter{Action: "deposit_stable", Sender: bob.String()})
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	require.Equal(t, uint64(3), deposits[0].Height)
	var attrs map[string]string
	require.NoError(t, json.Unmarshal([]byte(deposits[0].Attributes), &attrs))
	require.Equal(t, "1000", attrs["deposit_amount"])

	ranged, err := ix.Events(context.Background(), Filter{FromHeight: 2, ToHeight: 2})
	require.NoError(t, err)
	require.Len(t, ranged, 1)

	block, err := ix.LatestBlock(context.Background())
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Equal(t, uint64(3), block.Height)
	require.Equal(t, "orchai-indexer", block.ChainID)

	runs, err := ix.KeeperRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "ab", runs[0].TxHash)
}

func TestIndexerIgnoresReplays(t *testing.T) {
	ix := newTestIndexer(t, Options{BatchSize: 1})
	alice := crypto.AccountAddress("alice")
	ix.Emit(deposit(5, 1, alice))
	ix.Emit(deposit(5, 1, alice))
	ix.Emit(events.BlockProduced{Height: 5, Time: 30})
	ix.Emit(events.BlockProduced{Height: 5, Time: 30})
	drain(t, ix)

	got, err := ix.Events(context.Background(), Filter{Contract: crypto.AccountAddress("market").String()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 1, got[0].Position)
}

func TestIndexerDropsWhenQueueFull(t *testing.T) {
	ix := newTestIndexer(t, Options{QueueSize: 1})
	ix.Emit(deposit(1, 0, crypto.AccountAddress("alice")))
	ix.Emit(deposit(2, 0, crypto.AccountAddress("alice")))
	require.Len(t, ix.queue, 1)

	// Unrelated event types never reach the queue.
	ix.queue = make(chan record, 1)
	ix.Emit(otherEvent{})
	require.Len(t, ix.queue, 0)
}

type otherEvent struct{}

func (otherEvent) EventType() string   { return "other" }
func (otherEvent) Event() *types.Event { return &types.Event{Type: "other"} }

func TestLatestBlockEmpty(t *testing.T) {
	ix := newTestIndexer(t, Options{})
	block, err := ix.LatestBlock(context.Background())
	require.NoError(t, err)
	require.Nil(t, block)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	require.Error(t, err)
	require.Equal(t, maxLimit, Filter{Limit: 5000}.limit())
	require.Equal(t, defaultLimit, Filter{}.limit())
}

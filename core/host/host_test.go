package host

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"orchai/core/events"
	"orchai/crypto"
	"orchai/storage"
)

var errBoom = errors.New("boom")

// counter is a minimal contract used to exercise dispatch semantics.
type counter struct{}

type counterMsg struct {
	Incr *struct {
		By uint64 `json:"by"`
	} `json:"incr,omitempty"`
	Forward *struct {
		Target crypto.Address `json:"target"`
		By     uint64         `json:"by"`
		Fail   bool           `json:"fail"`
	} `json:"forward,omitempty"`
	Spawn *struct {
		Label string `json:"label"`
	} `json:"spawn,omitempty"`
	Recurse *struct{} `json:"recurse,omitempty"`
	Peek    *struct {
		Target crypto.Address `json:"target"`
		Bump   bool           `json:"bump"`
	} `json:"peek,omitempty"`
	Fail *struct{} `json:"fail,omitempty"`
}

type countResponse struct {
	Count uint64 `json:"count"`
}

var countKey = []byte("count")

func readCount(kv storage.KV) (uint64, error) {
	raw, err := kv.Get(countKey)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func writeCount(kv storage.KV, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return kv.Put(countKey, buf[:])
}

func (counter) Instantiate(deps Deps, _ Env, _ MessageInfo, _ json.RawMessage) (*Response, error) {
	return NewResponse().AddAttribute("action", "instantiate"), writeCount(deps.Store, 0)
}

func (counter) Execute(deps Deps, env Env, _ MessageInfo, raw json.RawMessage) (*Response, error) {
	var msg counterMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Incr != nil:
		n, err := readCount(deps.Store)
		if err != nil {
			return nil, err
		}
		if err := writeCount(deps.Store, n+msg.Incr.By); err != nil {
			return nil, err
		}
		return NewResponse().AddAttribute("action", "incr").AddAttribute("count", n+msg.Incr.By), nil
	case msg.Forward != nil:
		n, err := readCount(deps.Store)
		if err != nil {
			return nil, err
		}
		if err := writeCount(deps.Store, n+1); err != nil {
			return nil, err
		}
		resp := NewResponse().AddAttribute("action", "forward")
		resp.AddMessage(NewExecute(msg.Forward.Target, map[string]any{"incr": map[string]any{"by": msg.Forward.By}}))
		if msg.Forward.Fail {
			resp.AddMessage(NewExecute(msg.Forward.Target, map[string]any{"fail": map[string]any{}}))
		}
		return resp, nil
	case msg.Spawn != nil:
		return NewResponse().AddMessage(NewInstantiate("counter", msg.Spawn.Label, map[string]any{})), nil
	case msg.Recurse != nil:
		return NewResponse().AddMessage(NewExecute(env.Contract, map[string]any{"recurse": map[string]any{}})), nil
	case msg.Peek != nil:
		if msg.Peek.Bump {
			n, err := readCount(deps.Store)
			if err != nil {
				return nil, err
			}
			if err := writeCount(deps.Store, n+10); err != nil {
				return nil, err
			}
		}
		var out countResponse
		if err := deps.Querier.Query(msg.Peek.Target, map[string]any{"count": map[string]any{}}, &out); err != nil {
			return nil, err
		}
		return NewResponse().SetData(out)
	case msg.Fail != nil:
		return nil, errBoom
	}
	return nil, errors.New("unknown message")
}

func (counter) Query(deps Deps, _ Env, _ json.RawMessage) (json.RawMessage, error) {
	n, err := readCount(deps.Store)
	if err != nil {
		return nil, err
	}
	return json.Marshal(countResponse{Count: n})
}

func newTestHost(t *testing.T, opts ...Option) *Host {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	h := New(db, opts...)
	h.Register("counter", counter{})
	require.NoError(t, h.SetBlock(BlockInfo{Height: 1, Time: 1_700_000_000, ChainID: "test"}))
	return h
}

func instantiateCounter(t *testing.T, h *Host, creator crypto.Address, label string) crypto.Address {
	t.Helper()
	res, err := h.Instantiate(context.Background(), creator, "counter", label, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, crypto.ContractAddress(creator, label), res.Contract)
	return res.Contract
}

func queryCount(t *testing.T, h *Host, addr crypto.Address) uint64 {
	t.Helper()
	var out countResponse
	require.NoError(t, h.Query(context.Background(), addr, map[string]any{"count": map[string]any{}}, &out))
	return out.Count
}

func TestExecuteCommitsAndEmitsEvents(t *testing.T) {
	var seen []events.Event
	h := newTestHost(t, WithEmitter(events.EmitterFunc(func(ev events.Event) { seen = append(seen, ev) })))
	owner := crypto.AccountAddress("owner")
	addr := instantiateCounter(t, h, owner, "a")
	seen = nil

	res, err := h.Execute(context.Background(), owner, addr, map[string]any{"incr": map[string]any{"by": 5}})
	require.NoError(t, err)
	require.Len(t, res.TxHash, 64)
	require.Equal(t, uint64(5), queryCount(t, h, addr))

	require.Len(t, seen, 1)
	executed, ok := seen[0].(events.ContractExecuted)
	require.True(t, ok)
	require.Equal(t, "incr", executed.Action())
	require.Equal(t, addr, executed.Contract)
	require.Equal(t, "5", executed.Event().Attributes["count"])
}

func TestSubMessageFailureRollsBackWholeTransaction(t *testing.T) {
	var emitted int
	h := newTestHost(t, WithEmitter(events.EmitterFunc(func(events.Event) { emitted++ })))
	owner := crypto.AccountAddress("owner")
	a := instantiateCounter(t, h, owner, "a")
	b := instantiateCounter(t, h, owner, "b")
	emitted = 0

	_, err := h.Execute(context.Background(), owner, a, map[string]any{
		"forward": map[string]any{"target": b, "by": 3, "fail": true},
	})
	require.ErrorIs(t, err, errBoom)
	var contractErr *ContractError
	require.ErrorAs(t, err, &contractErr)
	require.Equal(t, "execute", contractErr.Op)
	require.Zero(t, queryCount(t, h, a))
	require.Zero(t, queryCount(t, h, b))
	require.Zero(t, emitted)

	_, err = h.Execute(context.Background(), owner, a, map[string]any{
		"forward": map[string]any{"target": b, "by": 3},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), queryCount(t, h, a))
	require.Equal(t, uint64(3), queryCount(t, h, b))
}

func TestQueriesObservePendingWrites(t *testing.T) {
	h := newTestHost(t)
	owner := crypto.AccountAddress("owner")
	a := instantiateCounter(t, h, owner, "a")
	b := instantiateCounter(t, h, owner, "b")

	_, err := h.Execute(context.Background(), owner, a, map[string]any{"forward": map[string]any{"target": b, "by": 7}})
	require.NoError(t, err)

	res, err := h.Execute(context.Background(), owner, a, map[string]any{"peek": map[string]any{"target": b}})
	require.NoError(t, err)
	var out countResponse
	require.NoError(t, json.Unmarshal(res.Data, &out))
	require.Equal(t, uint64(7), out.Count)

	// The bump is not committed yet when the querier reads it back.
	res, err = h.Execute(context.Background(), owner, a, map[string]any{"peek": map[string]any{"target": a, "bump": true}})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(res.Data, &out))
	require.Equal(t, uint64(11), out.Count)
}

func TestInstantiateRejectsDuplicatesAndUnknownCode(t *testing.T) {
	h := newTestHost(t)
	owner := crypto.AccountAddress("owner")
	instantiateCounter(t, h, owner, "a")

	_, err := h.Instantiate(context.Background(), owner, "counter", "a", map[string]any{})
	require.ErrorIs(t, err, ErrContractExists)

	_, err = h.Instantiate(context.Background(), owner, "missing", "b", map[string]any{})
	require.ErrorIs(t, err, ErrUnknownCode)

	other := crypto.AccountAddress("other")
	addr := instantiateCounter(t, h, other, "a")
	require.NotEqual(t, crypto.ContractAddress(owner, "a"), addr)

	infos, err := h.Contracts()
	require.NoError(t, err)
	require.Len(t, infos, 2)
}

func TestContractSpawnedBySubMessage(t *testing.T) {
	h := newTestHost(t)
	owner := crypto.AccountAddress("owner")
	parent := instantiateCounter(t, h, owner, "parent")

	_, err := h.Execute(context.Background(), owner, parent, map[string]any{"spawn": map[string]any{"label": "child"}})
	require.NoError(t, err)
	child := crypto.ContractAddress(parent, "child")
	require.Zero(t, queryCount(t, h, child))
}

func TestUnknownContractAndDepthLimit(t *testing.T) {
	h := newTestHost(t)
	owner := crypto.AccountAddress("owner")

	_, err := h.Execute(context.Background(), owner, crypto.AccountAddress("nobody"), map[string]any{"incr": map[string]any{"by": 1}})
	require.ErrorIs(t, err, ErrUnknownContract)
	var contractErr *ContractError
	require.False(t, errors.As(err, &contractErr))

	addr := instantiateCounter(t, h, owner, "loop")
	_, err = h.Execute(context.Background(), owner, addr, map[string]any{"recurse": map[string]any{}})
	require.ErrorIs(t, err, ErrMaxCallDepth)
}

func TestContractsCannotSignTransactions(t *testing.T) {
	h := newTestHost(t)
	owner := crypto.AccountAddress("owner")
	a := instantiateCounter(t, h, owner, "a")
	b := instantiateCounter(t, h, owner, "b")

	_, err := h.Execute(context.Background(), a, b, map[string]any{"incr": map[string]any{"by": 1}})
	require.ErrorIs(t, err, ErrContractSender)
	require.Zero(t, queryCount(t, h, b))

	_, err = h.Instantiate(context.Background(), a, "counter", "child", map[string]any{})
	require.ErrorIs(t, err, ErrContractSender)

	// The same call is fine when a forwards it as a sub-message.
	_, err = h.Execute(context.Background(), owner, a, map[string]any{"forward": map[string]any{"target": b, "by": 1}})
	require.NoError(t, err)
	require.Equal(t, uint64(1), queryCount(t, h, b))
}

func TestSetBlockRejectsRegression(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	h := New(db)
	require.NoError(t, h.SetBlock(BlockInfo{Height: 10, Time: 100}))
	require.ErrorIs(t, h.SetBlock(BlockInfo{Height: 9, Time: 100}), ErrHeightRegressed)

	restored := New(db)
	ok, err := restored.LoadBlock()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), restored.Block().Height)
}

func TestCancelledContextAborts(t *testing.T) {
	h := newTestHost(t)
	owner := crypto.AccountAddress("owner")
	addr := instantiateCounter(t, h, owner, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Execute(ctx, owner, addr, map[string]any{"incr": map[string]any{"by": 1}})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, queryCount(t, h, addr))
}

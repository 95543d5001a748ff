package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"orchai/core/events"
	"orchai/crypto"
	"orchai/observability"
	"orchai/storage"
)

// frame is the execution context of one transaction or top-level query.
type frame struct {
	host   *Host
	ctx    context.Context
	kv     storage.KV
	block  BlockInfo
	txHash string
	events []events.Event
}

func (f *frame) dispatch(sender crypto.Address, msg Msg, depth int) (json.RawMessage, crypto.Address, error) {
	if depth > MaxCallDepth {
		return nil, crypto.Address{}, ErrMaxCallDepth
	}
	if err := f.ctx.Err(); err != nil {
		return nil, crypto.Address{}, err
	}
	switch {
	case msg.Execute != nil:
		data, err := f.execute(sender, msg.Execute, depth)
		return data, crypto.Address{}, err
	case msg.Instantiate != nil:
		return f.instantiate(sender, msg.Instantiate, depth)
	default:
		return nil, crypto.Address{}, ErrEmptyMessage
	}
}

func (f *frame) execute(sender crypto.Address, exec *ExecuteMsg, depth int) (json.RawMessage, error) {
	code, contract, err := f.lookup(exec.Contract)
	if err != nil {
		return nil, err
	}
	raw, err := encodePayload(exec.Payload)
	if err != nil {
		return nil, err
	}
	env := Env{Block: f.block, Contract: exec.Contract}
	resp, err := contract.Execute(f.deps(exec.Contract, depth), env, MessageInfo{Sender: sender}, raw)
	if err != nil {
		return nil, &ContractError{Op: "execute", Code: code, Target: exec.Contract.String(), Err: err}
	}
	if resp == nil {
		resp = NewResponse()
	}
	f.record(code, exec.Contract, sender, resp)
	for _, sub := range resp.Messages {
		if _, _, err := f.dispatch(exec.Contract, sub, depth+1); err != nil {
			return nil, err
		}
	}
	return resp.Data, nil
}

func (f *frame) instantiate(sender crypto.Address, inst *InstantiateMsg, depth int) (json.RawMessage, crypto.Address, error) {
	contract, ok := f.host.code(inst.Code)
	if !ok {
		return nil, crypto.Address{}, fmt.Errorf("%w: %q", ErrUnknownCode, inst.Code)
	}
	addr := crypto.ContractAddress(sender, inst.Label)
	exists, err := f.kv.Has(codeKey(addr))
	if err != nil {
		return nil, crypto.Address{}, err
	}
	if exists {
		return nil, crypto.Address{}, fmt.Errorf("%w: %s", ErrContractExists, addr)
	}
	if err := f.kv.Put(codeKey(addr), []byte(inst.Code)); err != nil {
		return nil, crypto.Address{}, err
	}
	raw, err := encodePayload(inst.Payload)
	if err != nil {
		return nil, crypto.Address{}, err
	}
	env := Env{Block: f.block, Contract: addr}
	resp, err := contract.Instantiate(f.deps(addr, depth), env, MessageInfo{Sender: sender}, raw)
	if err != nil {
		return nil, crypto.Address{}, &ContractError{Op: "instantiate", Code: inst.Code, Target: fmt.Sprintf("%q", inst.Label), Err: err}
	}
	if resp == nil {
		resp = NewResponse()
	}
	f.events = append(f.events, events.ContractInstantiated{
		TxHash:   f.txHash,
		Height:   f.block.Height,
		Code:     inst.Code,
		Label:    inst.Label,
		Contract: addr,
		Creator:  sender,
	})
	f.record(inst.Code, addr, sender, resp)
	for _, sub := range resp.Messages {
		if _, _, err := f.dispatch(addr, sub, depth+1); err != nil {
			return nil, crypto.Address{}, err
		}
	}
	return resp.Data, addr, nil
}

func (f *frame) query(addr crypto.Address, req json.RawMessage, depth int) (json.RawMessage, error) {
	if depth > MaxCallDepth {
		return nil, ErrMaxCallDepth
	}
	code, contract, err := f.lookup(addr)
	if err != nil {
		return nil, err
	}
	deps := Deps{
		Store:   storage.NewPrefixed(storage.ReadOnly(f.kv), storePrefix(addr)),
		Querier: &Querier{frame: f, depth: depth + 1},
		Logger:  f.host.logger.With("contract", addr.String(), "code", code),
	}
	res, err := contract.Query(deps, Env{Block: f.block, Contract: addr}, req)
	if err != nil {
		return nil, &ContractError{Op: "query", Code: code, Target: addr.String(), Err: err}
	}
	return res, nil
}

func (f *frame) deps(addr crypto.Address, depth int) Deps {
	return Deps{
		Store:   storage.NewPrefixed(f.kv, storePrefix(addr)),
		Querier: &Querier{frame: f, depth: depth + 1},
		Logger:  f.host.logger.With("contract", addr.String()),
	}
}

func (f *frame) lookup(addr crypto.Address) (string, Contract, error) {
	raw, err := f.kv.Get(codeKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownContract, addr)
	}
	if err != nil {
		return "", nil, err
	}
	code := string(raw)
	contract, ok := f.host.code(code)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownCode, code)
	}
	return code, contract, nil
}

func (f *frame) record(code string, addr, sender crypto.Address, resp *Response) {
	observability.HostMetrics().RecordMessage(code, resp.action())
	f.events = append(f.events, events.ContractExecuted{
		TxHash:     f.txHash,
		Height:     f.block.Height,
		Index:      len(f.events),
		Contract:   addr,
		Sender:     sender,
		Attributes: resp.Attributes,
	})
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("host: encode payload: %w", err)
	}
	return raw, nil
}

// Querier lets a contract issue read-only smart queries to other contracts.
// Queries issued during execution observe the transaction's pending writes.
type Querier struct {
	frame *frame
	depth int
}

// QueryRaw sends req to contract and returns the raw response.
func (q *Querier) QueryRaw(contract crypto.Address, req json.RawMessage) (json.RawMessage, error) {
	return q.frame.query(contract, req, q.depth)
}

// Query marshals req, queries contract and decodes the response into out.
func (q *Querier) Query(contract crypto.Address, req any, out any) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("host: encode query: %w", err)
	}
	res, err := q.QueryRaw(contract, raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res, out); err != nil {
		return fmt.Errorf("host: decode query response from %s: %w", contract, err)
	}
	return nil
}

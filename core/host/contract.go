// Package host runs contract state machines. It owns storage, the block
// clock and message dispatch: a transaction executes one message, every
// message a handler emits is dispatched depth-first in order, and any error
// anywhere in the call tree discards all writes made by the transaction.
package host

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"orchai/core/types"
	"orchai/crypto"
	"orchai/storage"
)

// BlockInfo describes the block a message executes in.
type BlockInfo struct {
	Height  uint64 `json:"height"`
	Time    uint64 `json:"time"`
	ChainID string `json:"chain_id"`
}

// Env is the trusted execution environment handed to a contract.
type Env struct {
	Block    BlockInfo
	Contract crypto.Address
}

// MessageInfo identifies the caller. For dispatched sub-messages the sender
// is the emitting contract.
type MessageInfo struct {
	Sender crypto.Address
}

// Deps bundles the capabilities available to a handler. Store is scoped to
// the executing contract; during queries it is read-only.
type Deps struct {
	Store   storage.KV
	Querier *Querier
	Logger  *slog.Logger
}

// Contract is a stateless code object. All state lives in Deps.Store.
type Contract interface {
	Instantiate(deps Deps, env Env, info MessageInfo, msg json.RawMessage) (*Response, error)
	Execute(deps Deps, env Env, info MessageInfo, msg json.RawMessage) (*Response, error)
	Query(deps Deps, env Env, msg json.RawMessage) (json.RawMessage, error)
}

// Msg is a message emitted by a handler. Exactly one field is set.
type Msg struct {
	Execute     *ExecuteMsg     `json:"execute,omitempty"`
	Instantiate *InstantiateMsg `json:"instantiate,omitempty"`
}

// ExecuteMsg calls Execute on an existing contract. Payload is marshalled to
// JSON at dispatch time.
type ExecuteMsg struct {
	Contract crypto.Address `json:"contract"`
	Payload  any            `json:"msg"`
}

// InstantiateMsg creates a new contract from a registered code. The address
// is derived from the emitting contract and the label.
type InstantiateMsg struct {
	Code    string `json:"code"`
	Label   string `json:"label"`
	Payload any    `json:"msg"`
}

// NewExecute builds an execute message.
func NewExecute(contract crypto.Address, payload any) Msg {
	return Msg{Execute: &ExecuteMsg{Contract: contract, Payload: payload}}
}

// NewInstantiate builds an instantiate message.
func NewInstantiate(code, label string, payload any) Msg {
	return Msg{Instantiate: &InstantiateMsg{Code: code, Label: label, Payload: payload}}
}

// Response is returned by Instantiate and Execute handlers.
type Response struct {
	Messages   []Msg
	Attributes []types.Attribute
	Data       json.RawMessage
}

// NewResponse returns an empty response.
func NewResponse() *Response {
	return &Response{}
}

// AddMessage appends messages dispatched after the handler returns.
func (r *Response) AddMessage(msgs ...Msg) *Response {
	r.Messages = append(r.Messages, msgs...)
	return r
}

// AddAttribute appends a key/value attribute; values are formatted with
// fmt.Sprint so numeric and address types render in their canonical form.
func (r *Response) AddAttribute(key string, value any) *Response {
	r.Attributes = append(r.Attributes, types.Attribute{Key: key, Value: fmt.Sprint(value)})
	return r
}

// SetData attaches a JSON payload returned to the caller.
func (r *Response) SetData(v any) (*Response, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r.Data = raw
	return r, nil
}

func (r *Response) action() string {
	if r == nil {
		return ""
	}
	for _, attr := range r.Attributes {
		if attr.Key == "action" {
			return attr.Value
		}
	}
	return ""
}

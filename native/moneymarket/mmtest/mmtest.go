// Package mmtest provides stand-in contracts for tests that exercise one
// money market contract without deploying the rest.
package mmtest

import (
	"encoding/json"
	"sync"

	"orchai/core/host"
	"orchai/crypto"
)

// Forward asks a Relay to execute Msg against Contract with the relay's own
// address as sender.
type Forward struct {
	Contract crypto.Address  `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

// NewForward encodes msg for a Relay.
func NewForward(contract crypto.Address, msg any) (Forward, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Forward{}, err
	}
	return Forward{Contract: contract, Msg: raw}, nil
}

// Relay lets a test act with the authority of a contract address. Answer,
// when set, serves its queries. Messages that are not a Forward are
// accepted and recorded.
type Relay struct {
	Answer   func(req json.RawMessage) (any, error)
	Recorder *Recorder
}

var _ host.Contract = Relay{}

func (Relay) Instantiate(host.Deps, host.Env, host.MessageInfo, json.RawMessage) (*host.Response, error) {
	return host.NewResponse(), nil
}

func (r Relay) Execute(_ host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg Forward
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Contract.IsZero() {
		r.Recorder.record(raw)
		return host.NewResponse(), nil
	}
	return host.NewResponse().AddMessage(host.NewExecute(msg.Contract, msg.Msg)), nil
}

func (r Relay) Query(_ host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	if r.Answer == nil {
		return json.RawMessage("{}"), nil
	}
	resp, err := r.Answer(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

// Recorder collects the payloads a Sink receives.
type Recorder struct {
	mu  sync.Mutex
	got []json.RawMessage
}

// Messages returns the payloads received so far.
func (r *Recorder) Messages() []json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]json.RawMessage(nil), r.got...)
}

func (r *Recorder) record(raw json.RawMessage) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, append(json.RawMessage(nil), raw...))
}

// Sink accepts every message. A nil Recorder discards them.
type Sink struct {
	Recorder *Recorder
}

var _ host.Contract = Sink{}

func (Sink) Instantiate(host.Deps, host.Env, host.MessageInfo, json.RawMessage) (*host.Response, error) {
	return host.NewResponse(), nil
}

func (s Sink) Execute(_ host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	s.Recorder.record(raw)
	return host.NewResponse(), nil
}

func (Sink) Query(host.Deps, host.Env, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage("{}"), nil
}

package events

import (
	"strconv"

	"orchai/core/types"
	"orchai/crypto"
)

const (
	// TypeContractExecuted is emitted for every contract execution inside a
	// committed transaction, including dispatched sub-messages.
	TypeContractExecuted = "wasm.execute"
	// TypeContractInstantiated is emitted when a new contract is created.
	TypeContractInstantiated = "wasm.instantiate"
)

// ContractExecuted carries the attributes returned by one contract handler.
type ContractExecuted struct {
	TxHash     string
	Height     uint64
	Index      int
	Contract   crypto.Address
	Sender     crypto.Address
	Attributes []types.Attribute
}

func (ContractExecuted) EventType() string { return TypeContractExecuted }

// Action returns the value of the "action" attribute, if present.
func (e ContractExecuted) Action() string {
	for _, attr := range e.Attributes {
		if attr.Key == "action" {
			return attr.Value
		}
	}
	return ""
}

func (e ContractExecuted) Event() *types.Event {
	attrs := map[string]string{
		"txHash":   e.TxHash,
		"height":   strconv.FormatUint(e.Height, 10),
		"index":    strconv.Itoa(e.Index),
		"contract": e.Contract.String(),
		"sender":   e.Sender.String(),
	}
	for _, attr := range e.Attributes {
		// Contract attributes never shadow the envelope fields.
		if _, reserved := attrs[attr.Key]; reserved {
			continue
		}
		attrs[attr.Key] = attr.Value
	}
	return &types.Event{Type: TypeContractExecuted, Attributes: attrs}
}

// ContractInstantiated records the creation of a contract instance.
type ContractInstantiated struct {
	TxHash   string
	Height   uint64
	Code     string
	Label    string
	Contract crypto.Address
	Creator  crypto.Address
}

func (ContractInstantiated) EventType() string { return TypeContractInstantiated }

func (e ContractInstantiated) Event() *types.Event {
	return &types.Event{
		Type: TypeContractInstantiated,
		Attributes: map[string]string{
			"txHash":   e.TxHash,
			"height":   strconv.FormatUint(e.Height, 10),
			"code":     e.Code,
			"label":    e.Label,
			"contract": e.Contract.String(),
			"creator":  e.Creator.String(),
		},
	}
}

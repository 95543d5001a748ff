package events

import (
	"strconv"

	"orchai/core/types"
)

const (
	// TypeBlockProduced is emitted after the node advances its block clock.
	TypeBlockProduced = "block.produced"
	// TypeEpochKeeper reports the outcome of a keeper epoch attempt.
	TypeEpochKeeper = "keeper.epoch"
)

type BlockProduced struct {
	Height  uint64
	Time    uint64
	ChainID string
}

func (BlockProduced) EventType() string { return TypeBlockProduced }

func (e BlockProduced) Event() *types.Event {
	return &types.Event{
		Type: TypeBlockProduced,
		Attributes: map[string]string{
			"height":  strconv.FormatUint(e.Height, 10),
			"time":    strconv.FormatUint(e.Time, 10),
			"chainId": e.ChainID,
		},
	}
}

// EpochKeeper records a keeper run. Error is empty on success.
type EpochKeeper struct {
	Height uint64
	TxHash string
	Error  string
}

func (EpochKeeper) EventType() string { return TypeEpochKeeper }

func (e EpochKeeper) Event() *types.Event {
	attrs := map[string]string{
		"height": strconv.FormatUint(e.Height, 10),
	}
	if e.TxHash != "" {
		attrs["txHash"] = e.TxHash
	}
	if e.Error != "" {
		attrs["error"] = e.Error
	}
	return &types.Event{Type: TypeEpochKeeper, Attributes: attrs}
}

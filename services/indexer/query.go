package indexer

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Filter narrows an event listing. Zero values match everything.
type Filter struct {
	Contract   string
	Sender     string
	Action     string
	Type       string
	TxHash     string
	FromHeight uint64
	ToHeight   uint64
	Limit      int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultLimit
	case f.Limit > maxLimit:
		return maxLimit
	default:
		return f.Limit
	}
}

// Events lists indexed events in commit order.
func (ix *Indexer) Events(ctx context.Context, f Filter) ([]Event, error) {
	q := ix.db.WithContext(ctx).Model(&Event{})
	if f.Contract != "" {
		q = q.Where("contract = ?", f.Contract)
	}
	if f.Sender != "" {
		q = q.Where("sender = ?", f.Sender)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.TxHash != "" {
		q = q.Where("tx_hash = ?", f.TxHash)
	}
	if f.FromHeight > 0 {
		q = q.Where("height >= ?", f.FromHeight)
	}
	if f.ToHeight > 0 {
		q = q.Where("height <= ?", f.ToHeight)
	}
	var out []Event
	err := q.Order("height ASC").Order("tx_hash ASC").Order("event_index ASC").Limit(f.limit()).Find(&out).Error
	return out, err
}

// LatestBlock returns the highest indexed block, or nil before the first
// block is written.
func (ix *Indexer) LatestBlock(ctx context.Context) (*Block, error) {
	var block Block
	err := ix.db.WithContext(ctx).Order("height DESC").First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &block, nil
}

// KeeperRuns lists the most recent keeper attempts, newest first.
func (ix *Indexer) KeeperRuns(ctx context.Context, limit int) ([]KeeperRun, error) {
	var out []KeeperRun
	err := ix.db.WithContext(ctx).Order("height DESC").Order("created_at DESC").Limit(Filter{Limit: limit}.limit()).Find(&out).Error
	return out, err
}

// Package indexer persists committed contract events, produced blocks and
// keeper runs to SQL for historical queries.
package indexer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"orchai/core/events"
	"orchai/observability/metrics"
)

const (
	defaultQueueSize     = 4096
	defaultBatchSize     = 256
	defaultFlushInterval = 500 * time.Millisecond
)

// Open connects to the configured SQL backend. driver is "sqlite" or
// "postgres".
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), cfg)
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
}

type Options struct {
	Logger        *slog.Logger
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

// Indexer subscribes to the node event fanout. Emit never blocks: events
// arriving while the queue is full are dropped and counted.
type Indexer struct {
	db        *gorm.DB
	logger    *slog.Logger
	queue     chan record
	batchSize int
	interval  time.Duration
}

type record struct {
	event  *Event
	block  *Block
	keeper *KeeperRun
}

// New migrates db and returns an indexer writing to it.
func New(db *gorm.DB, opts Options) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	interval := opts.FlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Indexer{
		db:        db,
		logger:    logger.With(slog.String("component", "indexer")),
		queue:     make(chan record, queueSize),
		batchSize: batch,
		interval:  interval,
	}, nil
}

// Emit implements events.Emitter.
func (ix *Indexer) Emit(ev events.Event) {
	rec, ok := toRecord(ev)
	if !ok {
		return
	}
	select {
	case ix.queue <- rec:
	default:
		metrics.Indexer().IncDropped()
	}
}

// Run writes queued records until ctx is done, then flushes what remains.
func (ix *Indexer) Run(ctx context.Context) error {
	ticker := time.NewTicker(ix.interval)
	defer ticker.Stop()
	pending := make([]record, 0, ix.batchSize)
	flush := func(ctx context.Context) {
		if len(pending) == 0 {
			return
		}
		if err := ix.write(ctx, pending); err != nil {
			metrics.Indexer().IncWriteFailure()
			ix.logger.Error("persist batch", slog.Int("size", len(pending)), slog.Any("error", err))
		}
		pending = pending[:0]
	}
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case rec := <-ix.queue:
					pending = append(pending, rec)
				default:
					flush(context.Background())
					return ctx.Err()
				}
			}
		case rec := <-ix.queue:
			pending = append(pending, rec)
			if len(pending) >= ix.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

func (ix *Indexer) write(ctx context.Context, batch []record) error {
	var (
		evs     []*Event
		blocks  []*Block
		keepers []*KeeperRun
		height  uint64
	)
	perType := make(map[string]int)
	for _, rec := range batch {
		switch {
		case rec.event != nil:
			evs = append(evs, rec.event)
			perType[rec.event.Type]++
		case rec.block != nil:
			blocks = append(blocks, rec.block)
			if rec.block.Height > height {
				height = rec.block.Height
			}
		case rec.keeper != nil:
			keepers = append(keepers, rec.keeper)
		}
	}
	err := ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ignore := clause.OnConflict{DoNothing: true}
		if len(evs) > 0 {
			if err := tx.Clauses(ignore).CreateInBatches(evs, 100).Error; err != nil {
				return fmt.Errorf("insert events: %w", err)
			}
		}
		if len(blocks) > 0 {
			if err := tx.Clauses(ignore).CreateInBatches(blocks, 100).Error; err != nil {
				return fmt.Errorf("insert blocks: %w", err)
			}
		}
		if len(keepers) > 0 {
			if err := tx.Create(keepers).Error; err != nil {
				return fmt.Errorf("insert keeper runs: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	m := metrics.Indexer()
	m.ObserveBatch(len(batch))
	for kind, n := range perType {
		m.ObserveIndexed(kind, n)
	}
	if height > 0 {
		m.SetHeight(height)
	}
	return nil
}

func toRecord(ev events.Event) (record, bool) {
	switch e := ev.(type) {
	case events.ContractExecuted:
		attrs, err := json.Marshal(e.Event().Attributes)
		if err != nil {
			return record{}, false
		}
		return record{event: &Event{
			ID:         uuid.New(),
			Digest:     digest(e.TxHash, e.Height, e.Index, events.TypeContractExecuted, e.Contract.String()),
			TxHash:     e.TxHash,
			Height:     e.Height,
			Position:   e.Index,
			Type:       events.TypeContractExecuted,
			Contract:   e.Contract.String(),
			Sender:     e.Sender.String(),
			Action:     e.Action(),
			Attributes: string(attrs),
		}}, true
	case events.ContractInstantiated:
		attrs, err := json.Marshal(e.Event().Attributes)
		if err != nil {
			return record{}, false
		}
		return record{event: &Event{
			ID:         uuid.New(),
			Digest:     digest(e.TxHash, e.Height, 0, events.TypeContractInstantiated, e.Contract.String()),
			TxHash:     e.TxHash,
			Height:     e.Height,
			Type:       events.TypeContractInstantiated,
			Contract:   e.Contract.String(),
			Sender:     e.Creator.String(),
			Action:     "instantiate",
			Attributes: string(attrs),
		}}, true
	case events.BlockProduced:
		return record{block: &Block{Height: e.Height, Time: e.Time, ChainID: e.ChainID}}, true
	case events.EpochKeeper:
		return record{keeper: &KeeperRun{ID: uuid.New(), Height: e.Height, TxHash: e.TxHash, Error: e.Error}}, true
	default:
		return record{}, false
	}
}

// digest identifies an event so replays after a restart do not duplicate rows.
func digest(txHash string, height uint64, index int, kind, contract string) string {
	sum := blake3.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%s|%s", txHash, height, index, kind, contract)))
	return hex.EncodeToString(sum[:])
}

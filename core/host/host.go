package host

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"lukechampine.com/blake3"

	"orchai/core/events"
	"orchai/crypto"
	"orchai/observability"
	"orchai/storage"
)

var (
	ErrUnknownCode     = errors.New("host: unknown code")
	ErrUnknownContract = errors.New("host: unknown contract")
	ErrContractExists  = errors.New("host: contract already exists")
	ErrMaxCallDepth    = errors.New("host: maximum call depth exceeded")
	ErrEmptyMessage    = errors.New("host: empty message")
	ErrHeightRegressed = errors.New("host: block height must not decrease")
	ErrContractSender  = errors.New("host: contracts cannot sign transactions")
)

// ContractError wraps an error returned by a contract handler. Failures of the
// host itself are never wrapped in it.
type ContractError struct {
	Op     string
	Code   string
	Target string
	Err    error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Code, e.Target, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// MaxCallDepth bounds nested dispatch and query recursion.
const MaxCallDepth = 32

var (
	codeKeyPrefix  = []byte("h/code/")
	txSeqKey       = []byte("h/txseq")
	blockKey       = []byte("h/block")
	contractPrefix = []byte("c/")
)

// Option customises a Host.
type Option func(*Host)

// WithLogger sets the structured logger used by the host and handed to
// contracts.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithEmitter sets the sink receiving events of committed transactions.
func WithEmitter(emitter events.Emitter) Option {
	return func(h *Host) {
		if emitter != nil {
			h.emitter = emitter
		}
	}
}

// Host executes transactions against registered contract codes.
type Host struct {
	mu      sync.Mutex
	blockMu sync.RWMutex
	codesMu sync.RWMutex

	db      storage.Database
	codes   map[string]Contract
	block   BlockInfo
	logger  *slog.Logger
	emitter events.Emitter
	tracer  trace.Tracer
}

// Result describes a committed transaction.
type Result struct {
	TxHash   string          `json:"tx_hash"`
	Height   uint64          `json:"height"`
	Contract crypto.Address  `json:"contract,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Events   []events.Event  `json:"-"`
}

// ContractInfo pairs an instantiated address with its code.
type ContractInfo struct {
	Address crypto.Address `json:"address"`
	Code    string         `json:"code"`
}

// New returns a host over db. Codes must be registered before use.
func New(db storage.Database, opts ...Option) *Host {
	h := &Host{
		db:      db,
		codes:   make(map[string]Contract),
		logger:  slog.Default(),
		emitter: events.NoopEmitter{},
		tracer:  otel.Tracer("orchai/host"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register makes a contract code available for instantiation.
func (h *Host) Register(code string, contract Contract) {
	h.codesMu.Lock()
	defer h.codesMu.Unlock()
	h.codes[code] = contract
}

func (h *Host) code(name string) (Contract, bool) {
	h.codesMu.RLock()
	defer h.codesMu.RUnlock()
	contract, ok := h.codes[name]
	return contract, ok
}

// Block returns the current block.
func (h *Host) Block() BlockInfo {
	h.blockMu.RLock()
	defer h.blockMu.RUnlock()
	return h.block
}

// SetBlock advances the clock. It waits for an in-flight transaction and
// persists the block so a restarted node resumes from it.
func (h *Host) SetBlock(block BlockInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	current := h.Block()
	if block.Height < current.Height || block.Time < current.Time {
		return ErrHeightRegressed
	}
	raw, err := json.Marshal(block)
	if err != nil {
		return err
	}
	if err := h.db.Put(blockKey, raw); err != nil {
		return fmt.Errorf("host: persist block: %w", err)
	}
	h.blockMu.Lock()
	h.block = block
	h.blockMu.Unlock()
	observability.HostMetrics().SetHeight(block.Height)
	return nil
}

// LoadBlock restores the persisted clock. It reports false on a fresh
// database.
func (h *Host) LoadBlock() (bool, error) {
	raw, err := h.db.Get(blockKey)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var block BlockInfo
	if err := json.Unmarshal(raw, &block); err != nil {
		return false, fmt.Errorf("host: decode block: %w", err)
	}
	h.blockMu.Lock()
	h.block = block
	h.blockMu.Unlock()
	return true, nil
}

// Contracts lists every instantiated contract.
func (h *Host) Contracts() ([]ContractInfo, error) {
	snap, err := h.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()
	it := snap.NewIterator(codeKeyPrefix, nil)
	defer it.Release()
	var out []ContractInfo
	for it.Next() {
		addr, err := crypto.NewAddress(it.Key()[len(codeKeyPrefix):])
		if err != nil {
			return nil, err
		}
		out = append(out, ContractInfo{Address: addr, Code: string(it.Value())})
	}
	return out, it.Error()
}

// Execute runs payload against contract as a top-level transaction.
func (h *Host) Execute(ctx context.Context, sender, contract crypto.Address, payload any) (*Result, error) {
	return h.runTx(ctx, "execute", sender, NewExecute(contract, payload))
}

// Instantiate creates a contract as a top-level transaction. The new address
// is returned in Result.Contract.
func (h *Host) Instantiate(ctx context.Context, sender crypto.Address, code, label string, payload any) (*Result, error) {
	return h.runTx(ctx, "instantiate", sender, NewInstantiate(code, label, payload))
}

// Query runs a smart query against committed state and decodes the result
// into out.
func (h *Host) Query(ctx context.Context, contract crypto.Address, req any, out any) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("host: encode query: %w", err)
	}
	res, err := h.QueryRaw(ctx, contract, raw)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(res, out)
}

// QueryRaw runs a smart query and returns the raw JSON response.
func (h *Host) QueryRaw(ctx context.Context, contract crypto.Address, req json.RawMessage) (json.RawMessage, error) {
	_, span := h.tracer.Start(ctx, "host.query", trace.WithAttributes(attribute.String("contract", contract.String())))
	defer span.End()
	snap, err := h.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()
	f := &frame{host: h, ctx: ctx, kv: storage.ReadOnly(snap), block: h.Block()}
	res, err := f.query(contract, req, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (h *Host) runTx(ctx context.Context, kind string, sender crypto.Address, msg Msg) (res *Result, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	block := h.Block()
	ctx, span := h.tracer.Start(ctx, "host."+kind, trace.WithAttributes(
		attribute.String("sender", sender.String()),
		attribute.Int64("height", int64(block.Height)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		observability.HostMetrics().ObserveTx(kind, err, time.Since(start))
	}()

	tx, err := h.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("host: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Discard()
		}
	}()

	// Contract authority only flows through sub-messages.
	switch _, err := tx.Get(codeKey(sender)); {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrContractSender, sender)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	seq, err := nextSeq(tx)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("host: encode message: %w", err)
	}
	hash := txHash(block.Height, seq, sender, encoded)
	span.SetAttributes(attribute.String("tx_hash", hash))

	f := &frame{host: h, ctx: ctx, kv: tx, block: block, txHash: hash}
	data, addr, err := f.dispatch(sender, msg, 0)
	if err != nil {
		h.logger.Warn("transaction reverted",
			slog.String("kind", kind),
			slog.String("sender", sender.String()),
			slog.String("txHash", hash),
			slog.Any("error", err))
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("host: commit: %w", err)
	}
	committed = true

	h.logger.Debug("transaction committed",
		slog.String("kind", kind),
		slog.String("txHash", hash),
		slog.Uint64("height", block.Height),
		slog.Int("events", len(f.events)))
	for _, ev := range f.events {
		h.emitter.Emit(ev)
	}
	return &Result{TxHash: hash, Height: block.Height, Contract: addr, Data: data, Events: f.events}, nil
}

func nextSeq(kv storage.KV) (uint64, error) {
	var seq uint64
	raw, err := kv.Get(txSeqKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		seq = binary.BigEndian.Uint64(raw)
	}
	seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := kv.Put(txSeqKey, buf[:]); err != nil {
		return 0, err
	}
	return seq, nil
}

func txHash(height, seq uint64, sender crypto.Address, payload []byte) string {
	buf := make([]byte, 0, 16+crypto.AddressLength+len(payload))
	buf = binary.BigEndian.AppendUint64(buf, height)
	buf = binary.BigEndian.AppendUint64(buf, seq)
	buf = append(buf, sender[:]...)
	buf = append(buf, payload...)
	sum := blake3.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

func codeKey(addr crypto.Address) []byte {
	return append(append([]byte{}, codeKeyPrefix...), addr[:]...)
}

func storePrefix(addr crypto.Address) []byte {
	return append(append([]byte{}, contractPrefix...), addr[:]...)
}

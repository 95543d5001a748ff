package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("storage: key not found")
	// ErrReadOnly is returned by writes against a read-only view.
	ErrReadOnly = errors.New("storage: read-only view")
)

// Reader is the read half of a key-value store.
type Reader interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// NewIterator walks keys under prefix in ascending order starting at
	// start (inclusive) when start is non-nil.
	NewIterator(prefix, start []byte) Iterator
}

// KV is a readable and writable key-value store.
type KV interface {
	Reader
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Iterator is satisfied by goleveldb iterators.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Tx is an atomic batch of writes that is either committed or discarded.
type Tx interface {
	KV
	Commit() error
	Discard()
}

// Snapshot is a consistent read-only view of the database.
type Snapshot interface {
	Reader
	Release()
}

// Database is the persistent store backing the host runtime.
type Database interface {
	KV
	Begin() (Tx, error)
	Snapshot() (Snapshot, error)
	Close() error
}

// LevelDB is a Database backed by goleveldb, either on disk or in memory.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

// NewMemDB returns a LevelDB instance over in-memory storage. Used by tests
// and ephemeral nodes.
func NewMemDB() *LevelDB {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		panic(fmt.Sprintf("open memory leveldb: %v", err))
	}
	return &LevelDB{db: db}
}

func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	return translate(ldb.db.Get(key, nil))
}

func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, nil)
}

func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, nil)
}

func (ldb *LevelDB) NewIterator(prefix, start []byte) Iterator {
	return ldb.db.NewIterator(iterRange(prefix, start), nil)
}

// Begin opens a write transaction. Only one transaction may be open at a
// time; goleveldb blocks other writers until it is committed or discarded.
func (ldb *LevelDB) Begin() (Tx, error) {
	tx, err := ldb.db.OpenTransaction()
	if err != nil {
		return nil, err
	}
	return &levelTx{tx: tx}, nil
}

func (ldb *LevelDB) Snapshot() (Snapshot, error) {
	snap, err := ldb.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &levelSnapshot{snap: snap}, nil
}

// Close closes the database connection.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}

type levelTx struct {
	tx *leveldb.Transaction
}

func (t *levelTx) Get(key []byte) ([]byte, error) { return translate(t.tx.Get(key, nil)) }
func (t *levelTx) Has(key []byte) (bool, error) { return t.tx.Has(key, nil) }
func (t *levelTx) Put(key, value []byte) error { return t.tx.Put(key, value, nil) }
func (t *levelTx) Delete(key []byte) error { return t.tx.Delete(key, nil) }
func (t *levelTx) Commit() error { return t.tx.Commit() }
func (t *levelTx) Discard() { t.tx.Discard() }
func (t *levelTx) NewIterator(prefix, start []byte) Iterator {
	return t.tx.NewIterator(iterRange(prefix, start), nil)
}

type levelSnapshot struct {
	snap *leveldb.Snapshot
}

func (s *levelSnapshot) Get(key []byte) ([]byte, error) { return translate(s.snap.Get(key, nil)) }
func (s *levelSnapshot) Has(key []byte) (bool, error) { return s.snap.Has(key, nil) }
func (s *levelSnapshot) Release() { s.snap.Release() }
func (s *levelSnapshot) NewIterator(prefix, start []byte) Iterator {
	return s.snap.NewIterator(iterRange(prefix, start), nil)
}

func translate(value []byte, err error) ([]byte, error) {
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func iterRange(prefix, start []byte) *util.Range {
	r := util.BytesPrefix(prefix)
	if start != nil && bytes.Compare(start, r.Start) > 0 {
		r.Start = start
	}
	return r
}

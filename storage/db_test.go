package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db1.Put([]byte("key"), []byte("value")))
	require.NoError(t, db1.Close())

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()
	got, err := db2.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)

	_, err = db2.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionCommitAndDiscard(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("a"), []byte("1")))
	got, err := tx.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)
	tx.Discard()

	_, err = db.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)

	tx, err = db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("a"), []byte("2")))
	require.NoError(t, tx.Commit())

	got, err = db.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)
}

func TestPrefixedIterationAndReadOnly(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	scoped := NewPrefixed(db, []byte("c/market/"))
	other := NewPrefixed(db, []byte("c/oracle/"))
	require.NoError(t, scoped.Put([]byte("b/1"), []byte("x")))
	require.NoError(t, scoped.Put([]byte("b/2"), []byte("y")))
	require.NoError(t, scoped.Put([]byte("b/3"), []byte("z")))
	require.NoError(t, other.Put([]byte("b/9"), []byte("no")))

	it := scoped.NewIterator([]byte("b/"), []byte("b/2"))
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	require.NoError(t, it.Error())
	require.Equal(t, []string{"b/2", "b/3"}, keys)

	snap, err := db.Snapshot()
	require.NoError(t, err)
	defer snap.Release()
	view := NewPrefixed(ReadOnly(snap), []byte("c/market/"))
	got, err := view.Get([]byte("b/1"))
	require.NoError(t, err)
	require.Equal(t, []byte("x"), got)
	require.ErrorIs(t, view.Put([]byte("b/4"), nil), ErrReadOnly)
	require.ErrorIs(t, view.Delete([]byte("b/1")), ErrReadOnly)
}

package common

import (
	"orchai/storage"
)

const (
	DefaultLimit uint32 = 10
	MaxLimit     uint32 = 30
)

// ClampLimit applies the default and maximum page sizes.
func ClampLimit(limit *uint32) int {
	if limit == nil {
		return int(DefaultLimit)
	}
	if *limit > MaxLimit {
		return int(MaxLimit)
	}
	return int(*limit)
}

// Range visits up to limit records under prefix in key order, beginning
// strictly after startAfter when it is non-nil. The callback receives the
// key suffix following prefix.
func Range(kv storage.Reader, prefix, startAfter []byte, limit int, fn func(suffix, value []byte) error) error {
	var start []byte
	if startAfter != nil {
		start = make([]byte, 0, len(prefix)+len(startAfter)+1)
		start = append(start, prefix...)
		start = append(start, startAfter...)
		start = append(start, 0)
	}
	it := kv.NewIterator(prefix, start)
	defer it.Release()
	for n := 0; n < limit && it.Next(); n++ {
		key := it.Key()
		if err := fn(key[len(prefix):], it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

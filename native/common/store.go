package common

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"orchai/storage"
)

// Load decodes the RLP record stored under key into out. It reports false
// when the key is absent.
func Load(kv storage.Reader, key []byte, out any) (bool, error) {
	raw, err := kv.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// MustLoad is Load for records that are required to exist, such as a
// contract's config.
func MustLoad(kv storage.Reader, key []byte, out any) error {
	ok, err := Load(kv, key, out)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%q: %w", key, storage.ErrNotFound)
	}
	return nil
}

// Save RLP-encodes value under key. value must be a pointer so that the
// pointer-receiver encoders of the numeric types are reachable.
func Save(kv storage.KV, key []byte, value any) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return kv.Put(key, raw)
}

// Remove deletes key.
func Remove(kv storage.KV, key []byte) error {
	return kv.Delete(key)
}

// Key joins a namespace and a suffix into a store key.
func Key(namespace string, suffix []byte) []byte {
	out := make([]byte, 0, len(namespace)+len(suffix))
	out = append(out, namespace...)
	return append(out, suffix...)
}

// Decode decodes a raw RLP record, typically a value yielded by Range.
func Decode(raw []byte, out any) error {
	return rlp.DecodeBytes(raw, out)
}

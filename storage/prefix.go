package storage

// NewPrefixed scopes kv to keys beginning with prefix. Keys passed in and
// returned by iterators are relative to the prefix.
func NewPrefixed(kv KV, prefix []byte) KV {
	p := make([]byte, len(prefix))
	copy(p, prefix)
	return &prefixed{parent: kv, prefix: p}
}

// ReadOnly wraps r so that writes fail with ErrReadOnly.
func ReadOnly(r Reader) KV {
	return readOnly{Reader: r}
}

type prefixed struct {
	parent KV
	prefix []byte
}

func (p *prefixed) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

func (p *prefixed) Get(key []byte) ([]byte, error) { return p.parent.Get(p.key(key)) }

func (p *prefixed) Has(key []byte) (bool, error) { return p.parent.Has(p.key(key)) }

func (p *prefixed) Put(key, value []byte) error { return p.parent.Put(p.key(key), value) }

func (p *prefixed) Delete(key []byte) error { return p.parent.Delete(p.key(key)) }

func (p *prefixed) NewIterator(prefix, start []byte) Iterator {
	var full []byte
	if start != nil {
		full = p.key(start)
	}
	return &prefixIterator{Iterator: p.parent.NewIterator(p.key(prefix), full), strip: len(p.prefix)}
}

type prefixIterator struct {
	Iterator
	strip int
}

// Key returns a copy of the current key with the scope prefix removed.
func (it *prefixIterator) Key() []byte {
	raw := it.Iterator.Key()
	if len(raw) < it.strip {
		return nil
	}
	out := make([]byte, len(raw)-it.strip)
	copy(out, raw[it.strip:])
	return out
}

func (it *prefixIterator) Value() []byte {
	raw := it.Iterator.Value()
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}

type readOnly struct {
	Reader
}

func (readOnly) Put([]byte, []byte) error { return ErrReadOnly }

func (readOnly) Delete([]byte) error { return ErrReadOnly }

package events

import (
	"sync"

	"orchai/core/types"
)

// Event represents a structured state change emitted by the host.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. gateway, indexer).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Fanout delivers each event to every subscribed emitter in subscription
// order. It is safe for concurrent use.
type Fanout struct {
	mu   sync.RWMutex
	subs map[int]Emitter
	next int
}

// NewFanout returns an empty fanout.
func NewFanout() *Fanout {
	return &Fanout{subs: make(map[int]Emitter)}
}

// Subscribe registers e and returns a function removing it again.
func (f *Fanout) Subscribe(e Emitter) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = e
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Emit implements the Emitter interface.
func (f *Fanout) Emit(ev Event) {
	if f == nil {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i := 0; i < f.next; i++ {
		if sub, ok := f.subs[i]; ok {
			sub.Emit(ev)
		}
	}
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (fn EmitterFunc) Emit(ev Event) { fn(ev) }

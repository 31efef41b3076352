// Package kvstore is a typed, fault-tolerant key-value store for the
// client-local engine state. Records are flat JSON documents keyed by a
// logical store name; every successful write is broadcast to subscribers so
// open views re-read instead of operating on stale copies.
package kvstore

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when a key has no (readable) record. Callers
	// fall back to their own default value.
	ErrNotFound = errors.New("kvstore: not found")

	// ErrUnavailable means the durable store cannot be reached. Writes fail
	// closed; reads fall back to defaults.
	ErrUnavailable = errors.New("kvstore: storage unavailable")

	// ErrQuotaExceeded means the write was rejected for lack of space. The
	// caller surfaces a recoverable "free some space" condition.
	ErrQuotaExceeded = errors.New("kvstore: storage quota exceeded")
)

// Change is emitted after every successful write or delete. Consumers
// re-fetch the key rather than receiving a payload.
type Change struct {
	Key string
}

type Store interface {
	// Get unmarshals the record at key into dest. A missing or corrupted
	// record yields ErrNotFound; corrupted records are discarded on the way.
	Get(ctx context.Context, key string, dest any) error
	// Put marshals value and stores it at key.
	Put(ctx context.Context, key string, value any) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Subscribe registers a change listener. The returned func cancels the
	// subscription. Notification is fire-and-forget: a subscriber that does
	// not keep up misses events and is expected to re-read on the next one.
	Subscribe() (<-chan Change, func())
	Close() error
}

// subscriber fan-out shared by the store implementations.
type broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Change
	next int
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Change)}
}

func (b *broadcaster) subscribe() (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Change, 16)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *broadcaster) publish(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- Change{Key: key}:
		default:
			// slow subscriber, drop
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

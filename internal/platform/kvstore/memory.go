package kvstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Memory is a map-backed Store. It round-trips values through JSON so it has
// the same serialization behavior as the sqlite store, and it doubles as the
// in-memory fake for tests: writes can be made to fail with an injected
// error, and raw bytes can be planted to simulate corruption.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
	bc      *broadcaster
	log     *slog.Logger

	// FailWrites, when non-nil, is returned by every Put and Delete.
	FailWrites error
}

func NewMemory(log *slog.Logger) *Memory {
	if log == nil {
		log = slog.Default()
	}
	return &Memory{
		records: make(map[string][]byte),
		bc:      newBroadcaster(),
		log:     log,
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Get(ctx context.Context, key string, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	raw, ok := m.records[key]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// self-heal: drop the corrupted record, caller uses its default
		m.log.Warn("discarding corrupted record", slog.String("key", key), slog.Any("err", err))
		m.mu.Lock()
		delete(m.records, key)
		m.mu.Unlock()
		m.bc.publish(key)
		return ErrNotFound
	}
	return nil
}

func (m *Memory) Put(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailWrites != nil {
		return m.FailWrites
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records[key] = raw
	m.mu.Unlock()
	m.bc.publish(key)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()
	m.bc.publish(key)
	return nil
}

func (m *Memory) Subscribe() (<-chan Change, func()) {
	return m.bc.subscribe()
}

func (m *Memory) Close() error {
	m.bc.closeAll()
	return nil
}

// PutRaw plants raw bytes at key without broadcasting, for corruption tests.
func (m *Memory) PutRaw(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = append([]byte(nil), raw...)
}

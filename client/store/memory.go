package store

import (
	"bytes"
	"context"
	"runtime"
	"sync"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process store without expiration. Single-key reads and writes go
// straight to the cache; conditional operations are serialized by a mutex.
type MemoryStore struct {
	name  string
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:  name,
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (m *MemoryStore) Name() string {
	return m.name
}

func (m *MemoryStore) DefaultOperation() string {
	return "get"
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, nil
	}
	return v.([]byte), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) PutIfAbsent(_ context.Context, key string, value []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.cache.Get(key); ok {
		return prev.([]byte), nil
	}
	m.cache.Set(key, value, cache.NoExpiration)
	return nil, nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cache.Get(key); !ok {
		return false, nil
	}
	m.cache.Delete(key)
	return true, nil
}

func (m *MemoryStore) RemoveElement(_ context.Context, key string, expected []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.cache.Get(key)
	if !ok || !bytes.Equal(cur.([]byte), expected) {
		return false, nil
	}
	m.cache.Delete(key)
	return true, nil
}

func (m *MemoryStore) Replace(_ context.Context, key string, value []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.cache.Get(key)
	if !ok {
		return nil, nil
	}
	m.cache.Set(key, value, cache.NoExpiration)
	return prev.([]byte), nil
}

func (m *MemoryStore) ReplaceElement(_ context.Context, key string, oldValue, newValue []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.cache.Get(key)
	if !ok || !bytes.Equal(cur.([]byte), oldValue) {
		return false, nil
	}
	m.cache.Set(key, newValue, cache.NoExpiration)
	return true, nil
}

func (m *MemoryStore) Size(_ context.Context) (int64, error) {
	return int64(m.cache.ItemCount()), nil
}

// Footprint reports the heap of the whole process, which the store shares with the workload
func (m *MemoryStore) Footprint(_ context.Context) (Footprint, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Footprint{Heap: int64(ms.HeapAlloc), OffHeap: Unsupported, Disk: Unsupported}, nil
}

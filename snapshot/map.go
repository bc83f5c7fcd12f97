package snapshot

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

var _ PrimitiveStorage[string] = &MapStorage[string]{}

// MapStorage keeps snapshot blobs in process memory. It is the storage used
// in tests and by applications that only want save/load within one run.
type MapStorage[K comparable] struct {
	mu          sync.RWMutex
	internalMap map[K][]byte
}

func NewMapStorage[K comparable]() *MapStorage[K] {
	return &MapStorage[K]{
		internalMap: make(map[K][]byte),
	}
}

func (m *MapStorage[K]) GetBytes(_ context.Context, key K) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bz, ok := m.internalMap[key]
	if !ok {
		return nil, eris.Wrapf(ErrKeyNotFound, "%v", key)
	}
	return bz, nil
}

func (m *MapStorage[K]) Set(_ context.Context, key K, value any) error {
	var bz []byte
	switch v := value.(type) {
	case []byte:
		bz = v
	case string:
		bz = []byte(v)
	default:
		return eris.Errorf("cannot store value of type %T", value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.internalMap[key] = bz
	return nil
}

func (m *MapStorage[K]) Delete(_ context.Context, key K) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.internalMap, key)
	return nil
}

func (m *MapStorage[K]) Keys(_ context.Context) ([]K, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc := make([]K, 0, len(m.internalMap))
	for k := range m.internalMap {
		acc = append(acc, k)
	}
	return acc, nil
}

func (m *MapStorage[K]) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.internalMap = make(map[K][]byte)
	return nil
}

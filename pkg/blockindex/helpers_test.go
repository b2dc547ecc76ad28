package blockindex

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/ssargent/blkidx/pkg/storage"
)

// memStore is an in-memory ordered store for tests
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(key []byte) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memStore) WriteBatch(entries []storage.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, e := range entries {
		m.data[string(e.Key)] = append([]byte(nil), e.Value...)
	}
	return nil
}

func (m *memStore) set(key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = value
}

func (m *memStore) Scan(lower, upper []byte, fn storage.ScanFunc) error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if lower != nil && bytes.Compare([]byte(k), lower) < 0 {
			continue
		}
		if upper != nil && bytes.Compare([]byte(k), upper) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	m.mu.Unlock()
	sort.Strings(keys)

	for _, k := range keys {
		if err := fn([]byte(k), m.data[k]); err != nil {
			if errors.Is(err, storage.ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return nil
}

// getOnly hides Scan from the reader
type getOnly struct {
	store *memStore
}

func (g getOnly) Get(key []byte) ([]byte, bool, error) {
	return g.store.Get(key)
}

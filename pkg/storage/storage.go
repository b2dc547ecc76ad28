// Package storage adapts ordered LSM key-value engines to the narrow
// interface the block index needs.
//
// Two engines are supported: pebble (default) and goleveldb. Both are opened
// once with an explicit Config; the returned Store is owned by the caller and
// passed to whatever needs lookups.
package storage

import (
	"fmt"

	"go.uber.org/zap"
)

// Errors
var (
	ErrStopScan = &StorageError{"scan stopped"}
	ErrReadOnly = &StorageError{"store is read-only"}
)

// StorageError represents a storage adapter error
type StorageError struct {
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}

// Entry is a key-value pair written as part of a batch
type Entry struct {
	Key   []byte
	Value []byte
}

// ScanFunc receives each key-value pair of a scan. The slices are only valid
// for the duration of the call. Returning ErrStopScan ends the scan without
// error.
type ScanFunc func(key, value []byte) error

// Store is an opened ordered key-value store
type Store interface {
	// Get returns the value stored at key. A missing key is reported as
	// found == false with a nil error.
	Get(key []byte) (value []byte, found bool, err error)
	// Put writes a single key
	Put(key, value []byte) error
	// WriteBatch writes all entries atomically
	WriteBatch(entries []Entry) error
	// Scan visits keys in [lower, upper) in ascending order. A nil bound is unbounded.
	Scan(lower, upper []byte, fn ScanFunc) error
	// Close releases the store
	Close() error
}

// Open opens the store at path with the engine selected by cfg
func Open(path string, cfg Config, log *zap.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	log = log.With(zap.String("engine", cfg.Engine), zap.String("path", path))

	var (
		store Store
		err   error
	)
	switch cfg.Engine {
	case EnginePebble:
		store, err = openPebble(path, cfg, log)
	case EngineLevelDB:
		store, err = openLevelDB(path, cfg, log)
	}
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		return nil, fmt.Errorf("failed to open %s store at %s: %w", cfg.Engine, path, err)
	}

	log.Info("store opened", zap.Bool("read_only", cfg.ReadOnly))
	return store, nil
}

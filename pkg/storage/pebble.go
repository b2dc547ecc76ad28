package storage

import (
	"errors"

	"github.com/cockroachdb/pebble"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// PebbleStore is a Store backed by pebble
type PebbleStore struct {
	db       *pebble.DB
	readOnly bool
	log      *zap.Logger
}

func openPebble(path string, cfg Config, log *zap.Logger) (*PebbleStore, error) {
	db, err := pebble.Open(path, cfg.pebbleOptions(log))
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db, readOnly: cfg.ReadOnly, log: log}, nil
}

// Get returns a copy of the value at key
func (s *PebbleStore) Get(key []byte) ([]byte, bool, error) {
	data, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	value := make([]byte, len(data))
	copy(value, data)
	return value, true, nil
}

// Put writes a single key with a synced write
func (s *PebbleStore) Put(key, value []byte) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.db.Set(key, value, pebble.Sync)
}

// WriteBatch commits entries in one synced batch
func (s *PebbleStore) WriteBatch(entries []Entry) error {
	if s.readOnly {
		return ErrReadOnly
	}

	batch := s.db.NewBatch()
	for _, e := range entries {
		if err := batch.Set(e.Key, e.Value, nil); err != nil {
			return multierr.Append(err, batch.Close())
		}
	}
	return multierr.Append(batch.Commit(pebble.Sync), batch.Close())
}

// Scan iterates keys in [lower, upper)
func (s *PebbleStore) Scan(lower, upper []byte, fn ScanFunc) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return err
	}

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			if errors.Is(err, ErrStopScan) {
				return iter.Close()
			}
			return multierr.Append(err, iter.Close())
		}
	}

	return multierr.Append(iter.Error(), iter.Close())
}

// Close flushes and closes the database
func (s *PebbleStore) Close() error {
	s.log.Debug("closing store")
	return s.db.Close()
}

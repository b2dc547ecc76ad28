package storage

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

// LevelDBStore is a Store backed by goleveldb, for indexes written by
// LevelDB-based tools
type LevelDBStore struct {
	db       *leveldb.DB
	readOnly bool
	log      *zap.Logger
}

var syncWrite = &opt.WriteOptions{Sync: true}

func openLevelDB(path string, cfg Config, log *zap.Logger) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, cfg.levelDBOptions())
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db, readOnly: cfg.ReadOnly, log: log}, nil
}

// Get returns the value at key. goleveldb already returns a private copy.
func (s *LevelDBStore) Get(key []byte) ([]byte, bool, error) {
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put writes a single key with a synced write
func (s *LevelDBStore) Put(key, value []byte) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.db.Put(key, value, syncWrite)
}

// WriteBatch commits entries in one synced batch
func (s *LevelDBStore) WriteBatch(entries []Entry) error {
	if s.readOnly {
		return ErrReadOnly
	}

	batch := new(leveldb.Batch)
	for _, e := range entries {
		batch.Put(e.Key, e.Value)
	}
	return s.db.Write(batch, syncWrite)
}

// Scan iterates keys in [lower, upper)
func (s *LevelDBStore) Scan(lower, upper []byte, fn ScanFunc) error {
	iter := s.db.NewIterator(&util.Range{Start: lower, Limit: upper}, nil)
	defer iter.Release()

	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			if errors.Is(err, ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return iter.Error()
}

// Close closes the database
func (s *LevelDBStore) Close() error {
	s.log.Debug("closing store")
	return s.db.Close()
}

package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/zap"
)

// Supported engines
const (
	EnginePebble  = "pebble"
	EngineLevelDB = "leveldb"
)

// Supported compression settings
const (
	CompressionSnappy = "snappy"
	CompressionZstd   = "zstd"
	CompressionNone   = "none"
)

// numLevels matches the LSM depth pebble uses by default
const numLevels = 7

// Config holds the tuning options applied once when a store is opened
type Config struct {
	Engine                 string `yaml:"engine"`
	ReadOnly               bool   `yaml:"read_only"`
	CreateIfMissing        bool   `yaml:"create_if_missing"`
	MaxOpenFiles           int    `yaml:"max_open_files"`
	WriteBufferSize        int64  `yaml:"write_buffer_size"`
	TargetFileSize         int64  `yaml:"target_file_size"`
	Compression            string `yaml:"compression"`
	DisableAutoCompactions bool   `yaml:"disable_auto_compactions"`
	CompactionConcurrency  int    `yaml:"compaction_concurrency"`
}

// DefaultConfig returns settings tuned for bulk loading a block index.
// Automatic compactions stay off until the initial load is done; remember to
// raise the process open-file limit to match MaxOpenFiles.
func DefaultConfig() Config {
	return Config{
		Engine:                 EnginePebble,
		CreateIfMissing:        true,
		MaxOpenFiles:           100_000,
		WriteBufferSize:        256 << 20,
		TargetFileSize:         1 << 30,
		Compression:            CompressionSnappy,
		DisableAutoCompactions: true,
		CompactionConcurrency:  2,
	}
}

// Validate checks the configuration for unsupported combinations
func (c Config) Validate() error {
	switch c.Engine {
	case EnginePebble, EngineLevelDB:
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}

	switch c.Compression {
	case CompressionSnappy, CompressionNone:
	case CompressionZstd:
		if c.Engine == EngineLevelDB {
			return fmt.Errorf("compression %q is not supported by %s", c.Compression, c.Engine)
		}
	default:
		return fmt.Errorf("unknown compression %q", c.Compression)
	}

	if c.MaxOpenFiles < 0 || c.WriteBufferSize < 0 || c.TargetFileSize < 0 || c.CompactionConcurrency < 0 {
		return fmt.Errorf("size and count options must not be negative")
	}
	return nil
}

func (c Config) pebbleOptions(log *zap.Logger) *pebble.Options {
	opts := &pebble.Options{
		MaxOpenFiles:                c.MaxOpenFiles,
		MemTableSize:                uint64(c.WriteBufferSize),
		DisableAutomaticCompactions: c.DisableAutoCompactions,
		ReadOnly:                    c.ReadOnly,
		ErrorIfNotExists:            !c.CreateIfMissing,
		Logger:                      log.Sugar(),
	}

	if n := c.CompactionConcurrency; n > 0 {
		opts.MaxConcurrentCompactions = func() int { return n }
	}

	compression := pebble.SnappyCompression
	switch c.Compression {
	case CompressionZstd:
		compression = pebble.ZstdCompression
	case CompressionNone:
		compression = pebble.NoCompression
	}

	opts.Levels = make([]pebble.LevelOptions, numLevels)
	for i := range opts.Levels {
		opts.Levels[i].Compression = compression
		opts.Levels[i].TargetFileSize = c.TargetFileSize
	}

	return opts.EnsureDefaults()
}

// goleveldb always compacts in the background; DisableAutoCompactions only
// applies to pebble.
func (c Config) levelDBOptions() *opt.Options {
	opts := &opt.Options{
		OpenFilesCacheCapacity: c.MaxOpenFiles,
		WriteBuffer:            int(c.WriteBufferSize),
		CompactionTableSize:    int(c.TargetFileSize),
		ReadOnly:               c.ReadOnly,
		ErrorIfMissing:         !c.CreateIfMissing,
		Compression:            opt.SnappyCompression,
	}
	if c.Compression == CompressionNone {
		opts.Compression = opt.NoCompression
	}
	return opts
}

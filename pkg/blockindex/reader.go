// Package blockindex composes key construction, store lookups and record
// decoding into typed accessors for the block index.
//
// A lookup builds the record key, asks the store for the value, and decodes
// it with the byte order its record kind uses. A missing record is reported
// as found == false and is never an error; malformed values are.
package blockindex

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/codec"
	"github.com/ssargent/blkidx/pkg/records"
	"github.com/ssargent/blkidx/pkg/schema"
	"github.com/ssargent/blkidx/pkg/storage"
)

// ValueOrder is the byte order of metadata and txid-list values
const ValueOrder = codec.LittleEndian

// Errors
var (
	ErrHeaderMismatch  = &IndexError{"header does not hash to its key"}
	ErrScanUnsupported = &IndexError{"store does not support scans"}
)

// IndexError represents a block index error
type IndexError struct {
	Message string
}

func (e *IndexError) Error() string {
	return e.Message
}

// Getter is the lookup capability the reader needs from a store
type Getter interface {
	Get(key []byte) ([]byte, bool, error)
}

// Scanner is implemented by stores that support ordered range scans
type Scanner interface {
	Scan(lower, upper []byte, fn storage.ScanFunc) error
}

// Block gathers every record stored for one block hash
type Block struct {
	Hash   blockhash.Hash
	Header records.BlockHeader
	Meta   *records.BlockMeta
	Txids  records.TxidList
}

// Reader decodes block index records from a store
type Reader struct {
	store         Getter
	log           *zap.Logger
	verifyHeaders bool
}

// ReaderOption configures a Reader
type ReaderOption func(*Reader)

// WithLogger sets the reader's logger
func WithLogger(log *zap.Logger) ReaderOption {
	return func(r *Reader) {
		r.log = log
	}
}

// WithHeaderVerification makes Header check that the stored header hashes to
// the requested block hash
func WithHeaderVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyHeaders = true
	}
}

// NewReader creates a reader over store
func NewReader(store Getter, opts ...ReaderOption) *Reader {
	r := &Reader{store: store, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Raw returns the undecoded value stored for kind and hash
func (r *Reader) Raw(kind schema.RecordKind, h blockhash.Hash) ([]byte, bool, error) {
	key := schema.BuildKey(kind, h)
	value, found, err := r.store.Get(key)
	if err != nil {
		r.log.Error("store lookup failed",
			zap.Stringer("kind", kind),
			zap.Stringer("hash", h),
			zap.Error(err))
		return nil, false, fmt.Errorf("get %s record for %s: %w", kind, h, err)
	}
	if !found {
		r.log.Debug("record not found", zap.Stringer("kind", kind), zap.Stringer("hash", h))
		return nil, false, nil
	}
	return value, true, nil
}

// Meta returns the block metadata for h
func (r *Reader) Meta(h blockhash.Hash) (records.BlockMeta, bool, error) {
	value, found, err := r.Raw(schema.MetaSummary, h)
	if err != nil || !found {
		return records.BlockMeta{}, found, err
	}

	m, err := records.DecodeMeta(ValueOrder, value)
	if err != nil {
		return records.BlockMeta{}, true, r.decodeFailed(schema.MetaSummary, h, value, err)
	}
	return m, true, nil
}

// Txids returns the transaction ids of h in block order
func (r *Reader) Txids(h blockhash.Hash) (records.TxidList, bool, error) {
	value, found, err := r.Raw(schema.TxidList, h)
	if err != nil || !found {
		return nil, found, err
	}

	l, err := records.DecodeTxids(ValueOrder, value)
	if err != nil {
		return nil, true, r.decodeFailed(schema.TxidList, h, value, err)
	}
	return l, true, nil
}

// Header returns the raw consensus header of h
func (r *Reader) Header(h blockhash.Hash) (records.BlockHeader, bool, error) {
	value, found, err := r.Raw(schema.Header, h)
	if err != nil || !found {
		return nil, found, err
	}

	hdr := records.BlockHeader(value)
	if r.verifyHeaders {
		got, err := hdr.Hash()
		if err != nil {
			return nil, true, r.decodeFailed(schema.Header, h, value, err)
		}
		if got != h {
			return nil, true, fmt.Errorf("%w: key %s, header %s", ErrHeaderMismatch, h, got)
		}
	}
	return hdr, true, nil
}

// Block returns every record stored for h. found is true when at least one
// record exists.
func (r *Reader) Block(h blockhash.Hash) (*Block, bool, error) {
	b := &Block{Hash: h}

	hdr, hdrFound, err := r.Header(h)
	if err != nil {
		return nil, false, err
	}
	b.Header = hdr

	meta, metaFound, err := r.Meta(h)
	if err != nil {
		return nil, false, err
	}
	if metaFound {
		b.Meta = &meta
	}

	txids, txidsFound, err := r.Txids(h)
	if err != nil {
		return nil, false, err
	}
	b.Txids = txids

	return b, hdrFound || metaFound || txidsFound, nil
}

// Scan visits every record of kind in hash order. fn may return
// storage.ErrStopScan to end early.
func (r *Reader) Scan(kind schema.RecordKind, fn func(h blockhash.Hash, value []byte) error) error {
	scanner, ok := r.store.(Scanner)
	if !ok {
		return ErrScanUnsupported
	}

	lower, upper := schema.PrefixBounds(kind)
	return scanner.Scan(lower, upper, func(key, value []byte) error {
		_, h, err := schema.ParseKey(key)
		if err != nil {
			r.log.Warn("skipping foreign key in record range",
				zap.Stringer("kind", kind),
				zap.Binary("key", key))
			return nil
		}
		return fn(h, value)
	})
}

func (r *Reader) decodeFailed(kind schema.RecordKind, h blockhash.Hash, value []byte, err error) error {
	r.log.Warn("malformed record",
		zap.Stringer("kind", kind),
		zap.Stringer("hash", h),
		zap.Int("value_len", len(value)),
		zap.Error(err))
	return fmt.Errorf("%s record for %s: %w", kind, h, err)
}

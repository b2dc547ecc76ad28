package blockindex

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/records"
	"github.com/ssargent/blkidx/pkg/schema"
	"github.com/ssargent/blkidx/pkg/storage"
)

// BatchWriter is the write capability the writer needs from a store
type BatchWriter interface {
	WriteBatch(entries []storage.Entry) error
}

// Writer stores block records. The index is written once per block and
// read many times; records are not updated afterwards.
type Writer struct {
	store BatchWriter
	log   *zap.Logger
}

// NewWriter creates a writer over store
func NewWriter(store BatchWriter, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{store: store, log: log}
}

// Entries encodes the records present in b. Nil fields are skipped.
func Entries(b *Block) ([]storage.Entry, error) {
	var entries []storage.Entry

	if b.Header != nil {
		entries = append(entries, storage.Entry{
			Key:   schema.BuildKey(schema.Header, b.Hash),
			Value: []byte(b.Header),
		})
	}

	if b.Meta != nil {
		value, err := records.EncodeMeta(ValueOrder, *b.Meta)
		if err != nil {
			return nil, fmt.Errorf("encode meta for %s: %w", b.Hash, err)
		}
		entries = append(entries, storage.Entry{
			Key:   schema.BuildKey(schema.MetaSummary, b.Hash),
			Value: value,
		})
	}

	if b.Txids != nil {
		value, err := records.EncodeTxids(ValueOrder, b.Txids)
		if err != nil {
			return nil, fmt.Errorf("encode txids for %s: %w", b.Hash, err)
		}
		entries = append(entries, storage.Entry{
			Key:   schema.BuildKey(schema.TxidList, b.Hash),
			Value: value,
		})
	}

	return entries, nil
}

// PutBlock writes every record present in b in one batch
func (w *Writer) PutBlock(b *Block) error {
	entries, err := Entries(b)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	if err := w.store.WriteBatch(entries); err != nil {
		w.log.Error("failed to write block", zap.Stringer("hash", b.Hash), zap.Error(err))
		return fmt.Errorf("write block %s: %w", b.Hash, err)
	}

	w.log.Debug("block written", zap.Stringer("hash", b.Hash), zap.Int("records", len(entries)))
	return nil
}

// PutHeader stores the raw consensus header of h
func (w *Writer) PutHeader(h blockhash.Hash, hdr records.BlockHeader) error {
	return w.PutBlock(&Block{Hash: h, Header: hdr})
}

// PutMeta stores the metadata summary of h
func (w *Writer) PutMeta(h blockhash.Hash, m records.BlockMeta) error {
	return w.PutBlock(&Block{Hash: h, Meta: &m})
}

// PutTxids stores the transaction ids of h. An empty list is stored as an
// empty value.
func (w *Writer) PutTxids(h blockhash.Hash, txids records.TxidList) error {
	if txids == nil {
		txids = records.TxidList{}
	}
	return w.PutBlock(&Block{Hash: h, Txids: txids})
}

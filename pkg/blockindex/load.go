package blockindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/records"
)

// blockJSON is the subset of a node's getblock (verbosity 1) output the
// index stores. Hashes are in display order.
type blockJSON struct {
	Hash              string   `json:"hash"`
	Version           int32    `json:"version"`
	PreviousBlockHash string   `json:"previousblockhash"`
	MerkleRoot        string   `json:"merkleroot"`
	Time              int64    `json:"time"`
	Bits              string   `json:"bits"`
	Nonce             uint32   `json:"nonce"`
	Tx                []string `json:"tx"`
}

// ParseBlockJSON converts one getblock object into index records. The meta
// record accepts either "nTx" or "tx_count". When the header fields are
// present the header is rebuilt and must hash to "hash".
func ParseBlockJSON(data []byte) (*Block, error) {
	var raw blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse block: %w", err)
	}

	h, err := blockhash.ParseDisplayHex(raw.Hash)
	if err != nil {
		return nil, fmt.Errorf("parse block hash: %w", err)
	}
	b := &Block{Hash: h}

	var meta records.BlockMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse block %s meta: %w", raw.Hash, err)
	}
	b.Meta = &meta

	if raw.Tx != nil {
		b.Txids = make(records.TxidList, 0, len(raw.Tx))
		for i, tx := range raw.Tx {
			txid, err := blockhash.ParseDisplayHex(tx)
			if err != nil {
				return nil, fmt.Errorf("parse block %s tx %d: %w", raw.Hash, i, err)
			}
			b.Txids = append(b.Txids, txid)
		}
		if uint32(len(b.Txids)) != meta.TxCount {
			return nil, fmt.Errorf("block %s lists %d txids but nTx is %d", raw.Hash, len(b.Txids), meta.TxCount)
		}
	}

	if raw.MerkleRoot != "" {
		hdr, err := raw.header()
		if err != nil {
			return nil, fmt.Errorf("parse block %s header: %w", raw.Hash, err)
		}
		got, err := hdr.Hash()
		if err != nil {
			return nil, err
		}
		if got != h {
			return nil, fmt.Errorf("%w: block %s rebuilt as %s", ErrHeaderMismatch, raw.Hash, got.DisplayString())
		}
		b.Header = hdr
	}

	return b, nil
}

func (raw *blockJSON) header() (records.BlockHeader, error) {
	f := records.HeaderFields{
		Version:   raw.Version,
		Timestamp: time.Unix(raw.Time, 0).UTC(),
		Nonce:     raw.Nonce,
	}

	var err error
	if raw.PreviousBlockHash != "" {
		if f.PrevBlock, err = blockhash.ParseDisplayHex(raw.PreviousBlockHash); err != nil {
			return nil, err
		}
	}
	if f.MerkleRoot, err = blockhash.ParseDisplayHex(raw.MerkleRoot); err != nil {
		return nil, err
	}

	bits, err := strconv.ParseUint(raw.Bits, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid bits %q: %w", raw.Bits, err)
	}
	f.Bits = uint32(bits)

	return f.Encode(), nil
}

// LoadJSON reads a stream of getblock objects and writes their records.
// It returns the number of blocks written before the first failure.
func (w *Writer) LoadJSON(r io.Reader) (int, error) {
	dec := json.NewDecoder(r)

	var n int
	for {
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return n, fmt.Errorf("read block %d: %w", n, err)
		}

		b, err := ParseBlockJSON(msg)
		if err != nil {
			return n, err
		}
		if err := w.PutBlock(b); err != nil {
			return n, err
		}
		n++
	}

	w.log.Info("blocks loaded", zap.Int("count", n))
	return n, nil
}

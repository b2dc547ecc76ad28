package records

import (
	"encoding/json"
	"fmt"

	"github.com/ssargent/blkidx/pkg/codec"
)

// MetaSize is the encoded size of BlockMeta
const MetaSize = 12

// BlockMeta summarizes a block. It is written once when the block is indexed
// and is immutable afterwards.
type BlockMeta struct {
	TxCount uint32 `json:"tx_count"`
	Size    uint32 `json:"size"`
	Weight  uint32 `json:"weight"`
}

// MarshalFixed implements codec.Marshaler
func (m *BlockMeta) MarshalFixed(w *codec.Writer) {
	w.Uint32(m.TxCount)
	w.Uint32(m.Size)
	w.Uint32(m.Weight)
}

// UnmarshalFixed implements codec.Unmarshaler
func (m *BlockMeta) UnmarshalFixed(r *codec.Reader) error {
	m.TxCount = r.Uint32("tx_count")
	m.Size = r.Uint32("size")
	m.Weight = r.Uint32("weight")
	return r.Err()
}

// EncodeMeta serializes m in the given byte order
func EncodeMeta(order codec.ByteOrder, m BlockMeta) ([]byte, error) {
	return codec.Encode(order, &m)
}

// DecodeMeta deserializes a BlockMeta in the given byte order
func DecodeMeta(order codec.ByteOrder, data []byte) (BlockMeta, error) {
	var m BlockMeta
	if err := codec.Decode(order, data, &m); err != nil {
		return BlockMeta{}, fmt.Errorf("decode block meta: %w", err)
	}
	return m, nil
}

// metaJSON accepts the node RPC spelling nTx alongside tx_count
type metaJSON struct {
	TxCount *uint32 `json:"tx_count"`
	NTx     *uint32 `json:"nTx"`
	Size    *uint32 `json:"size"`
	Weight  *uint32 `json:"weight"`
}

// UnmarshalJSON treats "nTx" as an alias of "tx_count". Every field is required.
func (m *BlockMeta) UnmarshalJSON(data []byte) error {
	var aux metaJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	txCount := aux.TxCount
	if aux.NTx != nil {
		if txCount != nil {
			return fmt.Errorf("duplicate field tx_count (also given as nTx)")
		}
		txCount = aux.NTx
	}

	switch {
	case txCount == nil:
		return fmt.Errorf("missing field tx_count")
	case aux.Size == nil:
		return fmt.Errorf("missing field size")
	case aux.Weight == nil:
		return fmt.Errorf("missing field weight")
	}

	*m = BlockMeta{TxCount: *txCount, Size: *aux.Size, Weight: *aux.Weight}
	return nil
}

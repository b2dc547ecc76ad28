package records

import (
	"fmt"

	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/codec"
)

// TxidList holds a block's transaction ids in block order
type TxidList []blockhash.Hash

// MarshalFixed implements codec.Marshaler
func (l *TxidList) MarshalFixed(w *codec.Writer) {
	for _, txid := range *l {
		w.Fixed(txid[:])
	}
}

// UnmarshalFixed implements codec.Unmarshaler. The list consumes the whole
// value, whose length must be a multiple of 32.
func (l *TxidList) UnmarshalFixed(r *codec.Reader) error {
	raw, n := r.List(blockhash.Size, "txids")
	if err := r.Err(); err != nil {
		return err
	}
	out := make(TxidList, n)
	for i := range out {
		copy(out[i][:], raw[i*blockhash.Size:])
	}
	*l = out
	return nil
}

// EncodeTxids serializes a txid list. Txids are raw bytes, so the order only
// matters for symmetry with the other record kinds.
func EncodeTxids(order codec.ByteOrder, l TxidList) ([]byte, error) {
	return codec.Encode(order, &l)
}

// DecodeTxids deserializes a txid list
func DecodeTxids(order codec.ByteOrder, data []byte) (TxidList, error) {
	var l TxidList
	if err := codec.Decode(order, data, &l); err != nil {
		return nil, fmt.Errorf("decode txid list: %w", err)
	}
	return l, nil
}

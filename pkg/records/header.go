package records

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/codec"
)

// HeaderSize is the length of a Bitcoin consensus block header
const HeaderSize = 80

// BlockHeader is the raw consensus encoding of a block header. The index
// stores and returns it verbatim.
type BlockHeader []byte

// MarshalFixed implements codec.Marshaler
func (h *BlockHeader) MarshalFixed(w *codec.Writer) {
	w.Fixed(*h)
}

// UnmarshalFixed implements codec.Unmarshaler by copying the whole value
func (h *BlockHeader) UnmarshalFixed(r *codec.Reader) error {
	raw := r.Fixed(r.Remaining(), "header")
	if err := r.Err(); err != nil {
		return err
	}
	*h = append(BlockHeader(nil), raw...)
	return nil
}

// HeaderFields is a decoded view of an 80-byte consensus header
type HeaderFields struct {
	Version    int32
	PrevBlock  blockhash.Hash
	MerkleRoot blockhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

// Fields decodes the consensus header layout. Consensus integers are always
// little-endian.
func (h BlockHeader) Fields() (HeaderFields, error) {
	var f HeaderFields
	r := codec.NewReader(codec.LittleEndian, h)

	f.Version = int32(r.Uint32("version"))
	copy(f.PrevBlock[:], r.Fixed(blockhash.Size, "prev_block"))
	copy(f.MerkleRoot[:], r.Fixed(blockhash.Size, "merkle_root"))
	f.Timestamp = time.Unix(int64(r.Uint32("time")), 0).UTC()
	f.Bits = r.Uint32("bits")
	f.Nonce = r.Uint32("nonce")

	if err := r.Err(); err != nil {
		return HeaderFields{}, fmt.Errorf("decode block header: %w", err)
	}
	return f, nil
}

// Encode serializes the fields into an 80-byte consensus header
func (f HeaderFields) Encode() BlockHeader {
	w := codec.NewWriter(codec.LittleEndian, HeaderSize)
	w.Uint32(uint32(f.Version))
	w.Fixed(f.PrevBlock[:])
	w.Fixed(f.MerkleRoot[:])
	w.Uint32(uint32(f.Timestamp.Unix()))
	w.Uint32(f.Bits)
	w.Uint32(f.Nonce)
	return BlockHeader(w.Bytes())
}

// Hash returns the double SHA-256 of the first 80 bytes in stored order
func (h BlockHeader) Hash() (blockhash.Hash, error) {
	if len(h) < HeaderSize {
		return blockhash.Hash{}, fmt.Errorf("decode block header: %w: %d bytes, need %d",
			codec.ErrTruncatedBuffer, len(h), HeaderSize)
	}
	first := sha256.Sum256(h[:HeaderSize])
	return blockhash.Hash(sha256.Sum256(first[:])), nil
}

// Package schema maps block hashes to physical store keys.
//
// Every record of the block index is addressed by a one-byte kind prefix
// followed by the 32-byte block hash in stored order:
//
//	'B' + hash -> consensus block header bytes
//	'M' + hash -> block metadata (tx_count, size, weight)
//	'X' + hash -> transaction-id list
//
// Keys are fixed length, so no escaping or delimiters are needed, and keys of
// one kind sort contiguously, which makes prefix scans by kind possible.
package schema

import (
	"fmt"
	"strings"

	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/codec"
)

// RecordKind tags the physical record a key addresses
type RecordKind byte

// Record kinds. The value of each kind is its key prefix byte.
const (
	Header      RecordKind = 'B'
	MetaSummary RecordKind = 'M'
	TxidList    RecordKind = 'X'
)

// KeySize is the length of a record key: one prefix byte and a block hash
const KeySize = 1 + blockhash.Size

// Errors
var (
	ErrInvalidKey  = &SchemaError{"invalid key"}
	ErrUnknownKind = &SchemaError{"unknown record kind"}
)

// SchemaError represents a key construction or parsing error
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string {
	return e.Message
}

var kinds = []RecordKind{Header, MetaSummary, TxidList}

// Kinds returns every defined record kind in prefix order
func Kinds() []RecordKind {
	out := make([]RecordKind, len(kinds))
	copy(out, kinds)
	return out
}

// Prefix returns the key prefix byte for the kind
func (k RecordKind) Prefix() byte {
	return byte(k)
}

// Valid reports whether k is a defined record kind
func (k RecordKind) Valid() bool {
	switch k {
	case Header, MetaSummary, TxidList:
		return true
	}
	return false
}

// String returns the short name used by the command line tools
func (k RecordKind) String() string {
	switch k {
	case Header:
		return "header"
	case MetaSummary:
		return "meta"
	case TxidList:
		return "txids"
	default:
		return fmt.Sprintf("RecordKind(%#02x)", byte(k))
	}
}

// ParseKind accepts a kind name ("header", "meta", "txids") or its prefix
// letter ("B", "M", "X")
func ParseKind(s string) (RecordKind, error) {
	switch strings.ToLower(s) {
	case "header", "b":
		return Header, nil
	case "meta", "m":
		return MetaSummary, nil
	case "txids", "x":
		return TxidList, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// BuildKey returns prefix(kind) || hash
func BuildKey(kind RecordKind, h blockhash.Hash) []byte {
	key := make([]byte, KeySize)
	key[0] = kind.Prefix()
	copy(key[1:], h[:])
	return key
}

// ParseKey splits a record key into its kind and hash
func ParseKey(key []byte) (RecordKind, blockhash.Hash, error) {
	if len(key) != KeySize {
		return 0, blockhash.Hash{}, fmt.Errorf("%w: length %d, want %d", ErrInvalidKey, len(key), KeySize)
	}
	kind := RecordKind(key[0])
	if !kind.Valid() {
		return 0, blockhash.Hash{}, fmt.Errorf("%w: prefix %#02x", ErrInvalidKey, key[0])
	}
	h, err := blockhash.Normalize(key[1:])
	if err != nil {
		return 0, blockhash.Hash{}, err
	}
	return kind, h, nil
}

// PrefixBounds returns the [lower, upper) key range holding every record of
// the kind
func PrefixBounds(kind RecordKind) (lower, upper []byte) {
	return []byte{kind.Prefix()}, []byte{kind.Prefix() + 1}
}

// HeightKey returns prefix(kind) || big-endian height. Big-endian keeps
// lexicographic key order equal to numeric height order.
func HeightKey(kind RecordKind, height uint64) []byte {
	key := make([]byte, 1, 9)
	key[0] = kind.Prefix()
	return codec.AppendUint64(codec.BigEndian, key, height)
}

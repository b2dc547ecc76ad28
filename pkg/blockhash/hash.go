// Package blockhash defines the 32-byte block identifier used as the
// addressing component of every block index key.
//
// Hashes are held in stored order: the byte order of the SHA-256 digest as it
// appears in keys. Block explorers and node RPCs conventionally display block
// hashes byte-reversed. This package never reverses implicitly; use
// ParseDisplayHex and DisplayString when working with the display convention.
package blockhash

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Size is the length of a block hash in bytes
const Size = 32

// Errors
var (
	ErrInvalidHashLength = &HashError{"invalid hash length"}
	ErrInvalidHex        = &HashError{"invalid hex"}
)

// HashError represents a hash construction error
type HashError struct {
	Message string
}

func (e *HashError) Error() string {
	return e.Message
}

// Hash is a block hash in stored byte order
type Hash [Size]byte

// Zero is the all-zero hash
var Zero Hash

// Normalize builds a Hash from the first Size bytes of b. Longer input is
// truncated; shorter input is rejected.
func Normalize(b []byte) (Hash, error) {
	var h Hash
	if len(b) < Size {
		return h, fmt.Errorf("%w: got %d bytes, need %d", ErrInvalidHashLength, len(b), Size)
	}
	copy(h[:], b[:Size])
	return h, nil
}

// MustNormalize is like Normalize but panics on short input
func MustNormalize(b []byte) Hash {
	h, err := Normalize(b)
	if err != nil {
		panic(err)
	}
	return h
}

// ParseHex decodes hex text most-significant-byte-first with no reversal,
// so the text must already be in stored order.
func ParseHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return Normalize(b)
}

// ParseDisplayHex decodes hex text written in display order and reverses it
// into stored order.
func ParseDisplayHex(s string) (Hash, error) {
	h, err := ParseHex(s)
	if err != nil {
		return h, err
	}
	return h.Reverse(), nil
}

// Reverse returns h with its bytes in the opposite order
func (h Hash) Reverse() Hash {
	var r Hash
	for i := 0; i < Size; i++ {
		r[i] = h[Size-1-i]
	}
	return r
}

// Bytes returns a copy of the hash bytes
func (h Hash) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, h[:])
	return b
}

// IsZero reports whether h is the all-zero hash
func (h Hash) IsZero() bool {
	return h == Zero
}

// Compare orders hashes by their stored bytes
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// String returns the stored-order hex encoding
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// DisplayString returns the byte-reversed hex encoding used by explorers
func (h Hash) DisplayString() string {
	r := h.Reverse()
	return hex.EncodeToString(r[:])
}

// MarshalText implements encoding.TextMarshaler using stored order
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using stored order
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

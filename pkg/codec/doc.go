// Package codec provides fixed-width binary encoding for block index records.
//
// The codec encodes exactly the record shapes used by the block index. It is
// not a general serialization framework: there are no variable-length integer
// encodings and no length prefixes. The length of a stored value is supplied
// by the key-value store and is authoritative.
//
// # Byte Order
//
// Every call names its byte order explicitly:
//
//	data, err := codec.Encode(codec.LittleEndian, &meta)
//	err = codec.Decode(codec.LittleEndian, data, &meta)
//
// Values (block metadata, transaction-id lists) are little-endian. Integers
// embedded in keys are big-endian, because big-endian is the only order in
// which byte-wise comparison of the encoding agrees with numeric comparison of
// the integer. That property is why both orders coexist.
//
// # Options
//
// A Codec is built from Options:
//
//   - Order: BigEndian or LittleEndian
//   - AllowTrailing: bytes left over after the last field are ignored (default)
//   - Limit: maximum encoded or decoded size in bytes, 0 means unbounded (default)
//
// Ignoring trailing bytes lets a reader keep working after new fields are
// appended to a record layout.
//
// # Errors
//
// Decoding fails with ErrTruncatedBuffer when the input is shorter than the
// fields being read, and with ErrMalformedListLength when a list of
// fixed-size elements does not divide evenly. Both are sentinel values, test
// them with errors.Is.
//
// # Thread Safety
//
// Codec values are immutable and safe for concurrent use. Reader and Writer
// are not; create one per call.
package codec

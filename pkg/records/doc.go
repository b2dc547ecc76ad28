// Package records defines the value shapes stored under each block index key.
//
// # Layouts
//
//	BlockMeta   'M' + hash  [tx_count:u32][size:u32][weight:u32]  little-endian
//	TxidList    'X' + hash  [txid:32]...  count = len/32
//	BlockHeader 'B' + hash  consensus header bytes, opaque
//
// There are no length prefixes; the store supplies the value length. Decoders
// ignore bytes past the last declared field of fixed-size records so fields
// can be appended later without breaking existing readers.
package records

package api

import (
	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/records"
	"github.com/ssargent/blkidx/pkg/schema"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string // empty disables authentication
}

// BlockReader is the lookup surface the API serves
type BlockReader interface {
	Raw(kind schema.RecordKind, h blockhash.Hash) ([]byte, bool, error)
	Meta(h blockhash.Hash) (records.BlockMeta, bool, error)
	Txids(h blockhash.Hash) (records.TxidList, bool, error)
	Header(h blockhash.Hash) (records.BlockHeader, bool, error)
}

// MetaResponse is the metadata summary of a block
type MetaResponse struct {
	Hash    string `json:"hash"`
	TxCount uint32 `json:"tx_count"`
	Size    uint32 `json:"size"`
	Weight  uint32 `json:"weight"`
}

// TxidsResponse lists the transaction ids of a block in block order
type TxidsResponse struct {
	Hash  string   `json:"hash"`
	Count int      `json:"count"`
	Txids []string `json:"txids"`
}

// HeaderResponse is a decoded block header
type HeaderResponse struct {
	Hash       string `json:"hash"`
	Raw        string `json:"raw"`
	Version    int32  `json:"version"`
	PrevBlock  string `json:"previousblockhash"`
	MerkleRoot string `json:"merkleroot"`
	Time       int64  `json:"time"`
	Bits       string `json:"bits"`
	Nonce      uint32 `json:"nonce"`
}

// KeyResponse describes a record key and its stored value
type KeyResponse struct {
	Kind  string `json:"kind"`
	Hash  string `json:"hash"`
	Key   string `json:"key"`
	Found bool   `json:"found"`
	Value string `json:"value,omitempty"`
}

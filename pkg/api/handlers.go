package api

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/blockindex"
	"github.com/ssargent/blkidx/pkg/codec"
	"github.com/ssargent/blkidx/pkg/schema"
)

// Server holds the API server state
type Server struct {
	reader  BlockReader
	config  ServerConfig
	metrics *Metrics
	log     *zap.Logger
}

// NewServer creates a new API server
func NewServer(reader BlockReader, config ServerConfig, metrics *Metrics, log *zap.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		reader:  reader,
		config:  config,
		metrics: metrics,
		log:     log,
	}
}

// hashOrder reads block hashes from the path. Display order (byte-reversed,
// as node RPCs print them) is the default; ?order=stored takes key order.
type hashOrder bool

const (
	displayOrder hashOrder = true
	storedOrder  hashOrder = false
)

func orderOf(r *http.Request) (hashOrder, error) {
	switch r.URL.Query().Get("order") {
	case "", "display":
		return displayOrder, nil
	case "stored":
		return storedOrder, nil
	default:
		return displayOrder, fmt.Errorf("invalid order %q: want display or stored", r.URL.Query().Get("order"))
	}
}

func (o hashOrder) parse(s string) (blockhash.Hash, error) {
	if o == displayOrder {
		return blockhash.ParseDisplayHex(s)
	}
	return blockhash.ParseHex(s)
}

func (o hashOrder) format(h blockhash.Hash) string {
	if o == displayOrder {
		return h.DisplayString()
	}
	return h.String()
}

// hashParam parses the {hash} path parameter. It writes a 400 and returns
// false when the request is malformed.
func (s *Server) hashParam(w http.ResponseWriter, r *http.Request) (blockhash.Hash, hashOrder, bool) {
	order, err := orderOf(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return blockhash.Hash{}, order, false
	}
	h, err := order.parse(chi.URLParam(r, "hash"))
	if err != nil {
		sendError(w, fmt.Sprintf("Invalid block hash: %v", err), http.StatusBadRequest)
		return blockhash.Hash{}, order, false
	}
	return h, order, true
}

// lookupFailed maps a reader error onto a response
func (s *Server) lookupFailed(w http.ResponseWriter, r *http.Request, kind schema.RecordKind, err error) {
	s.log.Error("lookup failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.Stringer("kind", kind),
		zap.Error(err))

	msg := "Failed to read record"
	if errors.Is(err, codec.ErrTruncatedBuffer) ||
		errors.Is(err, codec.ErrMalformedListLength) ||
		errors.Is(err, blockindex.ErrHeaderMismatch) {
		msg = "Stored record is malformed"
	}
	sendError(w, fmt.Sprintf("%s: %v", msg, err), http.StatusInternalServerError)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	h, order, ok := s.hashParam(w, r)
	if !ok {
		return
	}

	start := time.Now()
	m, found, err := s.reader.Meta(h)
	s.metrics.RecordLookup(schema.MetaSummary.String(), found, err, time.Since(start))
	if err != nil {
		s.lookupFailed(w, r, schema.MetaSummary, err)
		return
	}
	if !found {
		sendError(w, "Block meta not found", http.StatusNotFound)
		return
	}

	sendSuccess(w, MetaResponse{
		Hash:    order.format(h),
		TxCount: m.TxCount,
		Size:    m.Size,
		Weight:  m.Weight,
	})
}

func (s *Server) handleTxids(w http.ResponseWriter, r *http.Request) {
	h, order, ok := s.hashParam(w, r)
	if !ok {
		return
	}

	start := time.Now()
	l, found, err := s.reader.Txids(h)
	s.metrics.RecordLookup(schema.TxidList.String(), found, err, time.Since(start))
	if err != nil {
		s.lookupFailed(w, r, schema.TxidList, err)
		return
	}
	if !found {
		sendError(w, "Block txids not found", http.StatusNotFound)
		return
	}

	resp := TxidsResponse{
		Hash:  order.format(h),
		Count: len(l),
		Txids: make([]string, len(l)),
	}
	for i, txid := range l {
		resp.Txids[i] = order.format(txid)
	}
	sendSuccess(w, resp)
}

func (s *Server) handleHeader(w http.ResponseWriter, r *http.Request) {
	h, order, ok := s.hashParam(w, r)
	if !ok {
		return
	}

	start := time.Now()
	hdr, found, err := s.reader.Header(h)
	s.metrics.RecordLookup(schema.Header.String(), found, err, time.Since(start))
	if err != nil {
		s.lookupFailed(w, r, schema.Header, err)
		return
	}
	if !found {
		sendError(w, "Block header not found", http.StatusNotFound)
		return
	}

	resp := HeaderResponse{
		Hash: order.format(h),
		Raw:  hex.EncodeToString(hdr),
	}
	// Headers that are not consensus headers are returned raw only.
	if f, err := hdr.Fields(); err == nil {
		resp.Version = f.Version
		resp.PrevBlock = order.format(f.PrevBlock)
		resp.MerkleRoot = order.format(f.MerkleRoot)
		resp.Time = f.Timestamp.Unix()
		resp.Bits = fmt.Sprintf("%08x", f.Bits)
		resp.Nonce = f.Nonce
	}
	sendSuccess(w, resp)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	kind, err := schema.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		sendError(w, fmt.Sprintf("Invalid record kind: %v", err), http.StatusBadRequest)
		return
	}
	h, order, ok := s.hashParam(w, r)
	if !ok {
		return
	}

	start := time.Now()
	value, found, err := s.reader.Raw(kind, h)
	s.metrics.RecordLookup(kind.String(), found, err, time.Since(start))
	if err != nil {
		s.lookupFailed(w, r, kind, err)
		return
	}

	resp := KeyResponse{
		Kind:  kind.String(),
		Hash:  order.format(h),
		Key:   hex.EncodeToString(schema.BuildKey(kind, h)),
		Found: found,
	}
	if found {
		resp.Value = hex.EncodeToString(value)
	}
	sendSuccess(w, resp)
}

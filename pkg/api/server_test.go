package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/blockindex"
	"github.com/ssargent/blkidx/pkg/schema"
	"github.com/ssargent/blkidx/pkg/storage"
)

const (
	genesisDisplay = "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"
	genesisStored  = "6fe28c0ab6f1b372c1a6a246ae63f74f931e8365e15a089c68d6190000000000"
	genesisMerkle  = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
)

const genesisJSON = `{"hash": "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
 "version": 1, "merkleroot": "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b",
 "time": 1231006505, "nonce": 2083236893, "bits": "1d00ffff",
 "nTx": 1, "size": 285, "weight": 1140,
 "tx": ["4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"]}`

// setupTestServer creates a server over a pebble store holding the genesis block
func setupTestServer(t *testing.T, apiKey string) (*Server, storage.Store) {
	t.Helper()

	cfg := storage.DefaultConfig()
	cfg.MaxOpenFiles = 64
	cfg.WriteBufferSize = 4 << 20
	store, err := storage.Open(t.TempDir(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if _, err := blockindex.NewWriter(store, nil).LoadJSON(strings.NewReader(genesisJSON)); err != nil {
		t.Fatalf("Failed to load genesis block: %v", err)
	}

	server := NewServer(blockindex.NewReader(store), ServerConfig{Bind: "127.0.0.1", APIKey: apiKey}, NewMetrics(), nil)
	return server, store
}

func doRequest(t *testing.T, handler http.Handler, path, apiKey string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var resp APIResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

// decodeData re-decodes the generic Data field into v
func decodeData(t *testing.T, resp APIResponse, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("Failed to re-encode data: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

func TestHandleMeta(t *testing.T) {
	server, _ := setupTestServer(t, "")
	handler := server.Routes()

	w, resp := doRequest(t, handler, "/api/v1/blocks/"+genesisDisplay+"/meta", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var meta MetaResponse
	decodeData(t, resp, &meta)
	want := MetaResponse{Hash: genesisDisplay, TxCount: 1, Size: 285, Weight: 1140}
	if meta != want {
		t.Errorf("Expected %+v, got %+v", want, meta)
	}

	w, resp = doRequest(t, handler, "/api/v1/blocks/"+genesisStored+"/meta?order=stored", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 in stored order, got %d", w.Code)
	}
	decodeData(t, resp, &meta)
	if meta.Hash != genesisStored {
		t.Errorf("Expected hash echoed in stored order, got %s", meta.Hash)
	}
}

func TestHandleTxids(t *testing.T) {
	server, _ := setupTestServer(t, "")

	w, resp := doRequest(t, server.Routes(), "/api/v1/blocks/"+genesisDisplay+"/txids", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var txids TxidsResponse
	decodeData(t, resp, &txids)
	if txids.Count != 1 || len(txids.Txids) != 1 || txids.Txids[0] != genesisMerkle {
		t.Errorf("Unexpected txids response %+v", txids)
	}
}

func TestHandleHeader(t *testing.T) {
	server, _ := setupTestServer(t, "")

	w, resp := doRequest(t, server.Routes(), "/api/v1/blocks/"+genesisDisplay+"/header", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var hdr HeaderResponse
	decodeData(t, resp, &hdr)
	if hdr.MerkleRoot != genesisMerkle {
		t.Errorf("Expected merkle root %s, got %s", genesisMerkle, hdr.MerkleRoot)
	}
	if hdr.PrevBlock != strings.Repeat("0", 64) {
		t.Errorf("Expected zero previous block, got %s", hdr.PrevBlock)
	}
	if hdr.Time != 1231006505 || hdr.Nonce != 2083236893 || hdr.Bits != "1d00ffff" || hdr.Version != 1 {
		t.Errorf("Unexpected header fields %+v", hdr)
	}
	if len(hdr.Raw) != 160 {
		t.Errorf("Expected 80 raw bytes, got %d hex chars", len(hdr.Raw))
	}
}

func TestHandleKey(t *testing.T) {
	server, _ := setupTestServer(t, "")
	handler := server.Routes()

	w, resp := doRequest(t, handler, "/api/v1/keys/meta/"+genesisDisplay, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var key KeyResponse
	decodeData(t, resp, &key)
	if key.Key != "4d"+genesisStored {
		t.Errorf("Expected key 4d||stored hash, got %s", key.Key)
	}
	if !key.Found || key.Value != "010000001d01000074040000" {
		t.Errorf("Unexpected key response %+v", key)
	}

	w, resp = doRequest(t, handler, "/api/v1/keys/X/"+strings.Repeat("00", 32), "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for a missing record, got %d", w.Code)
	}
	decodeData(t, resp, &key)
	if key.Found || key.Key != "58"+strings.Repeat("00", 32) {
		t.Errorf("Unexpected key response %+v", key)
	}
}

func TestHandlerErrors(t *testing.T) {
	server, store := setupTestServer(t, "")
	handler := server.Routes()

	broken := blockhash.Hash{0x01}
	if err := store.Put(schema.BuildKey(schema.TxidList, broken), make([]byte, 33)); err != nil {
		t.Fatalf("Failed to store malformed record: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		status int
		errMsg string
	}{
		{"missing meta", "/api/v1/blocks/" + strings.Repeat("00", 32) + "/meta", http.StatusNotFound, "Block meta not found"},
		{"missing txids", "/api/v1/blocks/" + strings.Repeat("00", 32) + "/txids", http.StatusNotFound, "Block txids not found"},
		{"missing header", "/api/v1/blocks/" + strings.Repeat("00", 32) + "/header", http.StatusNotFound, "Block header not found"},
		{"short hash", "/api/v1/blocks/00ff/meta", http.StatusBadRequest, "Invalid block hash"},
		{"not hex", "/api/v1/blocks/xyz/meta", http.StatusBadRequest, "Invalid block hash"},
		{"bad order", "/api/v1/blocks/" + genesisDisplay + "/meta?order=sideways", http.StatusBadRequest, "invalid order"},
		{"bad kind", "/api/v1/keys/blob/" + genesisDisplay, http.StatusBadRequest, "Invalid record kind"},
		{"malformed txids", "/api/v1/blocks/" + broken.String() + "/txids?order=stored", http.StatusInternalServerError, "Stored record is malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := doRequest(t, handler, tt.path, "")
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if resp.Success {
				t.Error("Expected an unsuccessful response")
			}
			if !strings.Contains(resp.Error, tt.errMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.errMsg, resp.Error)
			}
		})
	}
}

func TestRoutesRequireAPIKey(t *testing.T) {
	server, _ := setupTestServer(t, "secret")
	handler := server.Routes()

	w, _ := doRequest(t, handler, "/api/v1/health", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without key, got %d", w.Code)
	}

	w, resp := doRequest(t, handler, "/api/v1/health", "secret")
	if w.Code != http.StatusOK || !resp.Success {
		t.Errorf("Expected healthy response with key, got %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a request id header")
	}

	w, _ = doRequest(t, handler, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected metrics without key, got %d", w.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	server, _ := setupTestServer(t, "")
	handler := server.Routes()

	doRequest(t, handler, "/api/v1/blocks/"+genesisDisplay+"/meta", "")
	doRequest(t, handler, "/api/v1/blocks/"+strings.Repeat("00", 32)+"/meta", "")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	for _, want := range []string{
		`blkidx_lookups_total{kind="meta",result="found"} 1`,
		`blkidx_lookups_total{kind="meta",result="missing"} 1`,
		`blkidx_http_requests_total{endpoint="/api/v1/blocks/{hash}/meta",method="GET",status_code="200"} 1`,
		`blkidx_http_requests_total{endpoint="/api/v1/blocks/{hash}/meta",method="GET",status_code="404"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics to contain %s", want)
		}
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	server, _ := setupTestServer(t, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	res, err := http.Get("http://" + ln.Addr().String() + "/api/v1/health")
	if err != nil {
		t.Fatalf("Failed to reach server: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", res.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down")
	}
}

func TestServerAddr(t *testing.T) {
	server := NewServer(nil, ServerConfig{Bind: "127.0.0.1", Port: 9200}, nil, nil)
	if got := server.Addr(); got != "127.0.0.1:9200" {
		t.Errorf("Expected 127.0.0.1:9200, got %s", got)
	}
}

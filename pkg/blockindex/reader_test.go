package blockindex

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/codec"
	"github.com/ssargent/blkidx/pkg/records"
	"github.com/ssargent/blkidx/pkg/schema"
	"github.com/ssargent/blkidx/pkg/storage"
)

var (
	genesisHash = mustDisplay("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f")
	block1Hash  = mustDisplay("00000000839a8e6886ab5951d76f411475428afc90947ee320161bbf18eb6048")
)

func mustDisplay(s string) blockhash.Hash {
	h, err := blockhash.ParseDisplayHex(s)
	if err != nil {
		panic(err)
	}
	return h
}

func loadFixtures(t *testing.T, store BatchWriter) {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "blocks.json"))
	require.NoError(t, err)
	defer f.Close()

	n, err := NewWriter(store, nil).LoadJSON(f)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestReaderMeta(t *testing.T) {
	store := newMemStore()
	loadFixtures(t, store)
	r := NewReader(store)

	m, found, err := r.Meta(genesisHash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, records.BlockMeta{TxCount: 1, Size: 285, Weight: 1140}, m)

	m, found, err = r.Meta(block1Hash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, records.BlockMeta{TxCount: 1, Size: 215, Weight: 860}, m)
}

func TestReaderMetaLayout(t *testing.T) {
	store := newMemStore()
	store.set(schema.BuildKey(schema.MetaSummary, blockhash.Zero),
		[]byte{0x01, 0x00, 0x00, 0x00, 0xFA, 0x00, 0x00, 0x00, 0xE8, 0x03, 0x00, 0x00})

	m, found, err := NewReader(store).Meta(blockhash.Zero)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, records.BlockMeta{TxCount: 1, Size: 250, Weight: 1000}, m)
}

func TestReaderAbsence(t *testing.T) {
	r := NewReader(newMemStore())

	_, found, err := r.Meta(genesisHash)
	assert.NoError(t, err, "absence must not be an error")
	assert.False(t, found)

	txids, found, err := r.Txids(genesisHash)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, txids)

	hdr, found, err := r.Header(genesisHash)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, hdr)

	b, found, err := r.Block(genesisHash)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, b.Meta)
}

func TestReaderStoreError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("disk on fire")

	_, _, err := NewReader(store).Meta(genesisHash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Contains(t, err.Error(), "meta")
}

func TestReaderMalformedValues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := newMemStore()
	r := NewReader(store, WithLogger(zap.New(core)))

	store.set(schema.BuildKey(schema.MetaSummary, genesisHash), []byte{1, 2, 3})
	_, found, err := r.Meta(genesisHash)
	assert.True(t, found)
	assert.True(t, errors.Is(err, codec.ErrTruncatedBuffer))

	store.set(schema.BuildKey(schema.TxidList, genesisHash), make([]byte, 65))
	_, found, err = r.Txids(genesisHash)
	assert.True(t, found)
	assert.True(t, errors.Is(err, codec.ErrMalformedListLength))

	assert.Equal(t, 2, logs.FilterMessage("malformed record").Len())
}

func TestReaderTxids(t *testing.T) {
	store := newMemStore()
	data := append(bytes.Repeat([]byte{0x01}, 32), bytes.Repeat([]byte{0x02}, 32)...)
	store.set(schema.BuildKey(schema.TxidList, genesisHash), data)

	txids, found, err := NewReader(store).Txids(genesisHash)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, txids, 2)
	assert.Equal(t, byte(0x01), txids[0][0])
	assert.Equal(t, byte(0x02), txids[1][0])
}

func TestReaderHeaderVerification(t *testing.T) {
	store := newMemStore()
	loadFixtures(t, store)

	r := NewReader(store, WithHeaderVerification())
	hdr, found, err := r.Header(block1Hash)
	require.NoError(t, err)
	require.True(t, found)

	f, err := hdr.Fields()
	require.NoError(t, err)
	assert.Equal(t, genesisHash, f.PrevBlock)

	// Store block 1's header under the genesis key.
	store.set(schema.BuildKey(schema.Header, genesisHash), []byte(hdr))
	_, _, err = r.Header(genesisHash)
	assert.True(t, errors.Is(err, ErrHeaderMismatch))

	// Without verification the bytes come back untouched.
	got, _, err := NewReader(store).Header(genesisHash)
	require.NoError(t, err)
	assert.Equal(t, hdr, got)

	store.set(schema.BuildKey(schema.Header, genesisHash), []byte{1, 2, 3})
	_, _, err = r.Header(genesisHash)
	assert.True(t, errors.Is(err, codec.ErrTruncatedBuffer))
}

func TestReaderBlock(t *testing.T) {
	store := newMemStore()
	loadFixtures(t, store)

	b, found, err := NewReader(store).Block(genesisHash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, genesisHash, b.Hash)
	assert.Len(t, b.Header, records.HeaderSize)
	require.NotNil(t, b.Meta)
	assert.Equal(t, uint32(1), b.Meta.TxCount)
	require.Len(t, b.Txids, 1)
	assert.Equal(t, "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b", b.Txids[0].DisplayString())
}

func TestReaderScan(t *testing.T) {
	store := newMemStore()
	loadFixtures(t, store)
	store.set([]byte("M-not-a-record-key"), []byte{0})
	r := NewReader(store)

	var hashes []blockhash.Hash
	err := r.Scan(schema.MetaSummary, func(h blockhash.Hash, value []byte) error {
		hashes = append(hashes, h)
		assert.Len(t, value, records.MetaSize)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	assert.Equal(t, -1, hashes[0].Compare(hashes[1]), "scan visits hashes in stored byte order")

	var first int
	err = r.Scan(schema.Header, func(h blockhash.Hash, value []byte) error {
		first++
		return storage.ErrStopScan
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	err = NewReader(getOnly{store}).Scan(schema.Header, func(blockhash.Hash, []byte) error { return nil })
	assert.True(t, errors.Is(err, ErrScanUnsupported))
}

func TestReaderWithPebble(t *testing.T) {
	cfg := storage.DefaultConfig()
	cfg.MaxOpenFiles = 64
	cfg.WriteBufferSize = 4 << 20

	store, err := storage.Open(t.TempDir(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	loadFixtures(t, store)

	r := NewReader(store, WithHeaderVerification())
	b, found, err := r.Block(block1Hash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint32(215), b.Meta.Size)
	assert.Len(t, b.Txids, 1)

	raw, found, err := r.Raw(schema.MetaSummary, block1Hash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte{1, 0, 0, 0, 215, 0, 0, 0, 0x5c, 0x03, 0, 0}, raw)
}

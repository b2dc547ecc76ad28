//go:build fuzz
// +build fuzz

package codec

import (
	"errors"
	"testing"
)

// FuzzCodec_RoundTrip tests encode/decode round-trip with random field values
func FuzzCodec_RoundTrip(f *testing.F) {
	f.Add(uint8(0), uint16(0), uint32(0), uint64(0), false)
	f.Add(uint8(1), uint16(250), uint32(1000), uint64(1)<<40, true)
	f.Add(uint8(255), uint16(65535), uint32(1<<32-1), uint64(1<<64-1), true)

	f.Fuzz(func(t *testing.T, a uint8, b uint16, c uint32, d uint64, big bool) {
		order := LittleEndian
		if big {
			order = BigEndian
		}

		v := &sample{A: a, B: b, C: c, D: d}
		encoded, err := Encode(order, v)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		var got sample
		if err := Decode(order, encoded, &got); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if got != *v {
			t.Errorf("Round trip mismatch: got %+v, want %+v", got, *v)
		}
	})
}

// FuzzCodec_MalformedData tests that arbitrary input never panics and only
// fails with the documented errors
func FuzzCodec_MalformedData(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x01})
	f.Add(make([]byte, sampleSize-1))
	f.Add(make([]byte, sampleSize))
	f.Add(make([]byte, 33))

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 100000 {
			t.Skip("Input too large for fuzz test")
		}

		var s sample
		err := Decode(LittleEndian, data, &s)
		if len(data) >= sampleSize && err != nil {
			t.Fatalf("Decode of %d bytes failed: %v", len(data), err)
		}
		if len(data) < sampleSize && !errors.Is(err, ErrTruncatedBuffer) {
			t.Fatalf("Expected truncated buffer for %d bytes, got %v", len(data), err)
		}

		var ws words
		err = Decode(LittleEndian, data, &ws)
		if len(data)%4 != 0 && !errors.Is(err, ErrMalformedListLength) {
			t.Fatalf("Expected malformed list for %d bytes, got %v", len(data), err)
		}
		if len(data)%4 == 0 && len(ws) != len(data)/4 {
			t.Fatalf("Expected %d words, got %d", len(data)/4, len(ws))
		}
	})
}

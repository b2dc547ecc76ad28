package codec

import "fmt"

// Writer appends fixed-width fields to a buffer in a single byte order
type Writer struct {
	order byteOrder
	buf   []byte
}

// NewWriter creates a writer with an optional capacity hint
func NewWriter(order ByteOrder, sizeHint int) *Writer {
	return &Writer{
		order: order.binary(),
		buf:   make([]byte, 0, sizeHint),
	}
}

// Uint8 appends a single byte
func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

// Uint16 appends a 2-byte integer
func (w *Writer) Uint16(v uint16) {
	w.buf = w.order.AppendUint16(w.buf, v)
}

// Uint32 appends a 4-byte integer
func (w *Writer) Uint32(v uint32) {
	w.buf = w.order.AppendUint32(w.buf, v)
}

// Uint64 appends an 8-byte integer
func (w *Writer) Uint64(v uint64) {
	w.buf = w.order.AppendUint64(w.buf, v)
}

// Fixed appends raw bytes verbatim. Byte order does not apply.
func (w *Writer) Fixed(b []byte) {
	w.buf = append(w.buf, b...)
}

// Len returns the number of bytes written so far
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the encoded buffer
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader consumes fixed-width fields from a buffer in a single byte order.
//
// The first failed read is sticky: subsequent reads return zero values and
// Err reports the original failure.
type Reader struct {
	order byteOrder
	data  []byte
	off   int
	err   error
}

// NewReader creates a reader over data
func NewReader(order ByteOrder, data []byte) *Reader {
	return &Reader{
		order: order.binary(),
		data:  data,
	}
}

func (r *Reader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if r.Remaining() < n {
		r.err = fmt.Errorf("%w: %s needs %d bytes at offset %d, have %d",
			ErrTruncatedBuffer, field, n, r.off, r.Remaining())
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Uint8 reads a single byte
func (r *Reader) Uint8(field string) uint8 {
	b := r.take(1, field)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint16 reads a 2-byte integer
func (r *Reader) Uint16(field string) uint16 {
	b := r.take(2, field)
	if b == nil {
		return 0
	}
	return r.order.Uint16(b)
}

// Uint32 reads a 4-byte integer
func (r *Reader) Uint32(field string) uint32 {
	b := r.take(4, field)
	if b == nil {
		return 0
	}
	return r.order.Uint32(b)
}

// Uint64 reads an 8-byte integer
func (r *Reader) Uint64(field string) uint64 {
	b := r.take(8, field)
	if b == nil {
		return 0
	}
	return r.order.Uint64(b)
}

// Fixed reads n raw bytes. The returned slice aliases the input.
func (r *Reader) Fixed(n int, field string) []byte {
	return r.take(n, field)
}

// List consumes the rest of the buffer as a sequence of elemSize-byte
// elements and returns the element count. The remaining length must be a
// multiple of elemSize.
func (r *Reader) List(elemSize int, field string) ([]byte, int) {
	if r.err != nil {
		return nil, 0
	}
	rest := r.data[r.off:]
	if len(rest)%elemSize != 0 {
		r.err = fmt.Errorf("%w: %s has %d bytes, not a multiple of %d",
			ErrMalformedListLength, field, len(rest), elemSize)
		return nil, 0
	}
	r.off = len(r.data)
	return rest, len(rest) / elemSize
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Err returns the first error encountered while reading
func (r *Reader) Err() error {
	return r.err
}

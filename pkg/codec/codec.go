package codec

import (
	"encoding/binary"
	"fmt"
)

// ByteOrder selects how multi-byte integers are laid out
type ByteOrder int

const (
	// BigEndian puts the most significant byte first. Use it for integers
	// embedded in keys so that byte order matches numeric order.
	BigEndian ByteOrder = iota
	// LittleEndian puts the least significant byte first. Record values use it.
	LittleEndian
)

// String returns the name of the byte order
func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "big-endian"
	case LittleEndian:
		return "little-endian"
	default:
		return fmt.Sprintf("ByteOrder(%d)", int(o))
	}
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func (o ByteOrder) binary() byteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Marshaler is implemented by records that can write themselves field by field
type Marshaler interface {
	MarshalFixed(w *Writer)
}

// Unmarshaler is implemented by records that can read themselves field by field
type Unmarshaler interface {
	UnmarshalFixed(r *Reader) error
}

// Options configures a Codec. Integer width is always fixed.
type Options struct {
	Order         ByteOrder
	AllowTrailing bool
	Limit         int // 0 = unbounded
}

// BigEndianOptions returns fixed-width, unbounded, trailing-tolerant options in big-endian order
func BigEndianOptions() Options {
	return Options{Order: BigEndian, AllowTrailing: true}
}

// LittleEndianOptions returns fixed-width, unbounded, trailing-tolerant options in little-endian order
func LittleEndianOptions() Options {
	return Options{Order: LittleEndian, AllowTrailing: true}
}

// Codec encodes and decodes records with a fixed set of options
type Codec struct {
	opts Options
}

// New creates a codec with the given options
func New(opts Options) *Codec {
	return &Codec{opts: opts}
}

// Options returns the codec configuration
func (c *Codec) Options() Options {
	return c.opts
}

// Encode serializes v
func (c *Codec) Encode(v Marshaler) ([]byte, error) {
	w := NewWriter(c.opts.Order, 0)
	v.MarshalFixed(w)
	if c.opts.Limit > 0 && w.Len() > c.opts.Limit {
		return nil, fmt.Errorf("%w: encoded %d bytes, limit %d", ErrSizeLimit, w.Len(), c.opts.Limit)
	}
	return w.Bytes(), nil
}

// Decode deserializes data into v. Bytes beyond the fields v reads are
// discarded unless the codec disallows trailing bytes.
func (c *Codec) Decode(data []byte, v Unmarshaler) error {
	if c.opts.Limit > 0 && len(data) > c.opts.Limit {
		return fmt.Errorf("%w: input %d bytes, limit %d", ErrSizeLimit, len(data), c.opts.Limit)
	}

	r := NewReader(c.opts.Order, data)
	if err := v.UnmarshalFixed(r); err != nil {
		return err
	}
	if err := r.Err(); err != nil {
		return err
	}
	if !c.opts.AllowTrailing && r.Remaining() > 0 {
		return fmt.Errorf("%w: %d unread", ErrTrailingBytes, r.Remaining())
	}
	return nil
}

var (
	bigEndian    = New(BigEndianOptions())
	littleEndian = New(LittleEndianOptions())
)

// For returns the shared default codec for a byte order
func For(order ByteOrder) *Codec {
	if order == BigEndian {
		return bigEndian
	}
	return littleEndian
}

// Encode serializes v using the default options for order
func Encode(order ByteOrder, v Marshaler) ([]byte, error) {
	return For(order).Encode(v)
}

// Decode deserializes data into v using the default options for order
func Decode(order ByteOrder, data []byte, v Unmarshaler) error {
	return For(order).Decode(data, v)
}

// AppendUint32 appends v to dst in the given order
func AppendUint32(order ByteOrder, dst []byte, v uint32) []byte {
	return order.binary().AppendUint32(dst, v)
}

// AppendUint64 appends v to dst in the given order
func AppendUint64(order ByteOrder, dst []byte, v uint64) []byte {
	return order.binary().AppendUint64(dst, v)
}

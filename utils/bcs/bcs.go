// Package bcs implements the canonical binary encoding of PoS consensus
// records (spec "format A"). The format is deliberately rigid so that any
// two encoders produce byte-identical output for identical structured input:
// the encoding feeds directly into BLS signature verification.
//
// Encoding rules:
//   - unsigned integers are fixed-width big-endian (1 or 8 bytes);
//   - byte strings carry a ULEB128 length prefix;
//   - optional values carry a 1-byte present/absent tag;
//   - maps are encoded as a length-prefixed sequence of (key, value) pairs
//     in key-ascending order.
package bcs

import (
	"errors"

	"github.com/Conflux-Chain/conflux-light-contracts/utils/fast"
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
)

// Encoding validation errors.
var (
	ErrMalformedEncoding    = errors.New("malformed encoding: structure invalid or truncated")
	ErrNonCanonicalEncoding = errors.New("non canonical encoding: length prefix not minimal")
	ErrTooLargeAlloc        = errors.New("too large allocation: decoded size exceeds limits")
)

// MaxAlloc limits the size of decoded byte slices to prevent OOM attacks.
const MaxAlloc = 100 * 1024

// Writer serializes values into the canonical record format.
type Writer struct {
	BytesW *fast.Writer
}

// Reader deserializes values from the canonical record format.
// Read methods panic on truncated or non-canonical input; the panics are
// recovered by UnmarshalBinaryAdapter.
type Reader struct {
	BytesR *fast.Reader
}

// NewWriter creates a ready-to-use canonical record writer.
func NewWriter() *Writer {
	return &Writer{
		BytesW: fast.NewWriter(make([]byte, 0, 256)),
	}
}

// MarshalBinaryAdapter runs the provided serialization callback and returns
// the accumulated bytes.
func MarshalBinaryAdapter(marshal func(*Writer) error) ([]byte, error) {
	w := NewWriter()
	if err := marshal(w); err != nil {
		return nil, err
	}
	return w.BytesW.Bytes(), nil
}

// UnmarshalBinaryAdapter runs the provided deserialization callback over raw
// and enforces that the whole input is consumed. Reader panics (truncation,
// non-canonical prefixes, oversized allocations) are converted to errors.
func UnmarshalBinaryAdapter(raw []byte, unmarshal func(*Reader) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && (errors.Is(e, ErrNonCanonicalEncoding) || errors.Is(e, ErrTooLargeAlloc)) {
				err = e
				return
			}
			err = ErrMalformedEncoding
		}
	}()

	r := &Reader{BytesR: fast.NewReader(raw)}
	if err := unmarshal(r); err != nil {
		return err
	}
	if !r.BytesR.Empty() {
		return ErrNonCanonicalEncoding
	}
	return nil
}

// U8 writes a single byte.
func (w *Writer) U8(v uint8) {
	w.BytesW.WriteByte(v)
}

// U8 reads a single byte.
func (r *Reader) U8() uint8 {
	return r.BytesR.ReadByte()
}

// U64 writes a fixed 8-byte big-endian unsigned integer.
func (w *Writer) U64(v uint64) {
	w.BytesW.Write(bigendian.Uint64ToBytes(v))
}

// U64 reads a fixed 8-byte big-endian unsigned integer.
func (r *Reader) U64() uint64 {
	return bigendian.BytesToUint64(r.BytesR.Read(8))
}

// Uleb128 writes a variable-length count (7 bits per byte, MSB = more).
func (w *Writer) Uleb128(v uint64) {
	for v >= 0x80 {
		w.BytesW.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	w.BytesW.WriteByte(byte(v))
}

// Uleb128 reads a variable-length count, rejecting non-minimal encodings.
func (r *Reader) Uleb128() uint64 {
	var v uint64
	for shift := uint(0); ; shift += 7 {
		if shift > 63 {
			panic(ErrMalformedEncoding)
		}
		b := r.BytesR.ReadByte()
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			// A zero continuation byte means the value was not packed minimally.
			if shift > 0 && b == 0 {
				panic(ErrNonCanonicalEncoding)
			}
			return v
		}
	}
}

// Bool writes a boolean as a single 0x00/0x01 byte.
func (w *Writer) Bool(v bool) {
	if v {
		w.BytesW.WriteByte(1)
	} else {
		w.BytesW.WriteByte(0)
	}
}

// Bool reads a boolean, rejecting any byte other than 0x00 or 0x01.
func (r *Reader) Bool() bool {
	switch r.BytesR.ReadByte() {
	case 0:
		return false
	case 1:
		return true
	default:
		panic(ErrNonCanonicalEncoding)
	}
}

// Option writes the 1-byte present/absent tag of an optional value.
// The caller writes the value itself when present is true.
func (w *Writer) Option(present bool) {
	w.Bool(present)
}

// Option reads the 1-byte present/absent tag of an optional value.
func (r *Reader) Option() bool {
	return r.Bool()
}

// FixedBytes writes raw bytes with no length prefix.
func (w *Writer) FixedBytes(v []byte) {
	w.BytesW.Write(v)
}

// FixedBytes fills v with raw bytes from the stream.
func (r *Reader) FixedBytes(v []byte) {
	copy(v, r.BytesR.Read(len(v)))
}

// SliceBytes writes a ULEB128 length prefix followed by the raw bytes.
func (w *Writer) SliceBytes(v []byte) {
	w.Uleb128(uint64(len(v)))
	w.FixedBytes(v)
}

// SliceBytes reads a length-prefixed byte string of at most maxLen bytes.
func (r *Reader) SliceBytes(maxLen int) []byte {
	size := r.Uleb128()
	if size > uint64(maxLen) {
		panic(ErrTooLargeAlloc)
	}
	buf := make([]byte, size)
	r.FixedBytes(buf)
	return buf
}

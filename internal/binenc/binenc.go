// Package binenc implements the little-endian encoding shared by index marshalers.
package binenc

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/hupe1980/neighbors/pointset"
)

// ErrTruncated is returned when the input ends before a value is complete.
var ErrTruncated = errors.New("binenc: truncated data")

// Writer appends values to a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) PutU8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) PutU32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *Writer) PutI32(v int32) { w.PutU32(uint32(v)) }

func (w *Writer) PutU64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *Writer) PutF64(v float64) { w.PutU64(math.Float64bits(v)) }

// PutInts writes a length-prefixed slice of non-negative ints as uint32.
// A nil slice is written with the sentinel length 0xFFFFFFFF.
func (w *Writer) PutInts(v []int) {
	if v == nil {
		w.PutU32(math.MaxUint32)
		return
	}
	w.PutU32(uint32(len(v)))
	for _, x := range v {
		w.PutU32(uint32(x))
	}
}

// PutF64s writes a length-prefixed slice of float64.
func (w *Writer) PutF64s(v []float64) {
	w.PutU32(uint32(len(v)))
	for _, x := range v {
		w.PutF64(x)
	}
}

// PutPointSet writes n, dim and the row-major coordinates.
func (w *Writer) PutPointSet(ps *pointset.PointSet) {
	w.PutU32(uint32(ps.Len()))
	w.PutU32(uint32(ps.Dim()))
	for _, x := range ps.Data() {
		w.PutF64(x)
	}
}

// Reader decodes values with a sticky error: after the first failure every
// getter returns zero values and Err reports the failure.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first decoding error.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) I32() int32 { return int32(r.U32()) }

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) F64() float64 { return math.Float64frombits(r.U64()) }

// Ints reads a slice written by PutInts.
func (r *Reader) Ints() []int {
	n := r.U32()
	if r.err != nil || n == math.MaxUint32 {
		return nil
	}
	if int(n) > r.Remaining()/4 {
		r.err = ErrTruncated
		return nil
	}
	v := make([]int, n)
	for i := range v {
		v[i] = int(r.U32())
	}
	return v
}

// F64s reads a slice written by PutF64s.
func (r *Reader) F64s() []float64 {
	n := r.U32()
	if r.err != nil {
		return nil
	}
	if int(n) > r.Remaining()/8 {
		r.err = ErrTruncated
		return nil
	}
	v := make([]float64, n)
	for i := range v {
		v[i] = r.F64()
	}
	return v
}

// PointSet reads a PointSet written by PutPointSet.
func (r *Reader) PointSet() *pointset.PointSet {
	n := int(r.U32())
	dim := int(r.U32())
	if r.err != nil {
		return nil
	}
	if dim > 0 && n > r.Remaining()/(8*dim) {
		r.err = ErrTruncated
		return nil
	}
	data := make([]float64, n*dim)
	for i := range data {
		data[i] = r.F64()
	}
	if r.err != nil {
		return nil
	}
	ps, err := pointset.New(n, dim, data)
	if err != nil {
		r.err = err
		return nil
	}
	return ps
}

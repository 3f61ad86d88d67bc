package formats

import (
	"encoding/binary"
	"math"

	"github.com/Faultbox/objexport/pkg/encoding"
)

// reader is a little-endian cursor over a byte slice. Reading past the end
// sets a sticky truncated flag and yields zero values, so callers check
// once after a block of reads.
type reader struct {
	data      []byte
	off       int
	truncated bool
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) take(n int) []byte {
	if n < 0 || r.off+n > len(r.data) {
		r.off = len(r.data)
		r.truncated = true
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) skip(n int) {
	r.take(n)
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) i32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (r *reader) f32() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *reader) vec3() [3]float32 {
	return [3]float32{r.f32(), r.f32(), r.f32()}
}

// str reads a NUL-padded EUC-KR field of n bytes.
func (r *reader) str(n int) string {
	return encoding.FixedStringToUTF8(r.take(n))
}

// count reads an element count and rejects values that are negative or
// that could not fit in the rest of the buffer at elemSize bytes each.
func (r *reader) count(elemSize int) (int, bool) {
	n := r.i32()
	if r.truncated || n < 0 {
		return 0, false
	}
	if elemSize > 0 && int64(n)*int64(elemSize) > int64(r.remaining()) {
		r.truncated = true
		return 0, false
	}
	return int(n), true
}

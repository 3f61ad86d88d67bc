package formats

import (
	"testing"

	"github.com/Faultbox/objexport/pkg/encoding"
)

func TestReader_Truncation(t *testing.T) {
	r := &reader{data: []byte{1, 0, 2, 0, 0, 0}}

	if got := r.u16(); got != 1 {
		t.Errorf("u16() = %d, want 1", got)
	}
	if got := r.i32(); got != 2 {
		t.Errorf("i32() = %d, want 2", got)
	}
	if r.truncated {
		t.Fatal("truncated after exact reads")
	}

	if got := r.u8(); got != 0 || !r.truncated {
		t.Errorf("u8() past end = %d, truncated = %v", got, r.truncated)
	}

	// Sticky: later reads keep yielding zero values.
	r.data = append(r.data, 9, 9, 9, 9)
	if got := r.f32(); got != 0 || !r.truncated {
		t.Errorf("f32() after truncation = %v, truncated = %v", got, r.truncated)
	}
	if r.remaining() != 4 {
		t.Errorf("remaining() = %d, want 4", r.remaining())
	}
}

func TestReader_TakeNegative(t *testing.T) {
	r := &reader{data: []byte{1, 2, 3}}
	if b := r.take(-1); b != nil || !r.truncated || r.remaining() != 0 {
		t.Errorf("take(-1) = %v, truncated = %v, remaining = %d", b, r.truncated, r.remaining())
	}
}

func TestReader_Count(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		elemSize int
		want     int
		wantOK   bool
	}{
		{"fits", []byte{2, 0, 0, 0, 0, 0, 0, 0}, 4, 2, true},
		{"zero", []byte{0, 0, 0, 0}, 40, 0, true},
		{"exceeds remaining", []byte{3, 0, 0, 0, 0, 0, 0, 0}, 4, 0, false},
		{"negative", []byte{0xff, 0xff, 0xff, 0xff}, 4, 0, false},
		{"large product", []byte{0xff, 0xff, 0xff, 0x7f}, 40, 0, false},
		{"missing", []byte{1, 0}, 4, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &reader{data: tt.data}
			got, ok := r.count(tt.elemSize)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("count(%d) = %d, %v, want %d, %v", tt.elemSize, got, ok, tt.want, tt.wantOK)
			}
			if !ok && !r.truncated && tt.name != "negative" {
				t.Error("rejected count left the reader untruncated")
			}
		})
	}
}

func TestReader_Str(t *testing.T) {
	field := make([]byte, 12)
	// NUL padding ends the field even with garbage after it.
	n := copy(field, encoding.UTF8ToEUCKR("모델"))
	copy(field[n+1:], "xy")
	r := &reader{data: append(field, 'a', 'b', 0, 0)}

	if got := r.str(12); got != "모델" {
		t.Errorf("str(12) = %q, want %q", got, "모델")
	}
	if got := r.str(4); got != "ab" {
		t.Errorf("str(4) = %q, want %q", got, "ab")
	}
	if got := r.str(4); got != "" || !r.truncated {
		t.Errorf("str past end = %q, truncated = %v", got, r.truncated)
	}
}

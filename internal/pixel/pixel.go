// Package pixel converts raw texture source buffers into a canonical
// 8-bit-per-channel, 4-channel colour buffer.
package pixel

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// Normalization errors.
var (
	ErrEmptySource       = errors.New("pixel source is empty")
	ErrTruncatedSource   = errors.New("pixel source shorter than width*height*channels")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrInvalidDimensions = errors.New("invalid pixel dimensions")
)

// SourceFormat is the pixel layout of a raw texture source buffer.
type SourceFormat int

const (
	FormatUnknown SourceFormat = iota
	FormatBGRA8
	FormatRGBA8
	FormatGray8
)

// String returns a human-readable format name.
func (f SourceFormat) String() string {
	switch f {
	case FormatBGRA8:
		return "BGRA8"
	case FormatRGBA8:
		return "RGBA8"
	case FormatGray8:
		return "G8"
	case FormatUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// Channels returns the bytes per pixel of a recognized format, or 0.
func (f SourceFormat) Channels() int {
	switch f {
	case FormatBGRA8, FormatRGBA8:
		return 4
	case FormatGray8:
		return 1
	default:
		return 0
	}
}

// ChannelOrder is the byte order of a canonical pixel.
type ChannelOrder int

const (
	OrderRGBA ChannelOrder = iota
	OrderBGRA
)

// String returns "RGBA" or "BGRA".
func (o ChannelOrder) String() string {
	if o == OrderBGRA {
		return "BGRA"
	}
	return "RGBA"
}

// SourceBuffer is a raw texture payload as handed over by a texture source.
type SourceBuffer struct {
	Width  uint32
	Height uint32
	Format SourceFormat
	Data   []byte
}

// maxPixels keeps Width*Height*4 representable as an int.
const maxPixels = math.MaxInt / 4

// PixelCount returns Width*Height. It fails with ErrInvalidDimensions when
// either side is zero or the 4-byte-per-pixel size would not fit in an int.
func (s SourceBuffer) PixelCount() (int, error) {
	n := uint64(s.Width) * uint64(s.Height)
	if n == 0 || n > maxPixels {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, s.Width, s.Height)
	}
	return int(n), nil
}

// ColorBuffer is the canonical pixel representation: Width*Height pixels of
// four bytes each, in the declared channel order.
type ColorBuffer struct {
	Width  int
	Height int
	Order  ChannelOrder
	Pix    []byte
}

// At returns the pixel at (x, y) as R, G, B, A regardless of channel order.
func (c *ColorBuffer) At(x, y int) (r, g, b, a uint8) {
	i := (y*c.Width + x) * 4
	p := c.Pix[i : i+4 : i+4]
	if c.Order == OrderBGRA {
		return p[2], p[1], p[0], p[3]
	}
	return p[0], p[1], p[2], p[3]
}

// Image returns the buffer as a non-premultiplied RGBA image.
// RGBA buffers share their pixel slice with the returned image.
func (c *ColorBuffer) Image() *image.NRGBA {
	img := &image.NRGBA{
		Pix:    c.Pix,
		Stride: c.Width * 4,
		Rect:   image.Rect(0, 0, c.Width, c.Height),
	}
	if c.Order == OrderRGBA {
		return img
	}
	pix := make([]byte, len(c.Pix))
	swapRB(pix, c.Pix)
	img.Pix = pix
	return img
}

// Normalize decodes src into a canonical colour buffer with the requested
// channel order. The returned buffer is always Width*Height*4 bytes.
//
// Unknown formats are reinterpreted as BGRA8 when the payload holds at least
// four bytes per pixel; this is lossy for formats with other layouts.
func Normalize(src SourceBuffer, order ChannelOrder) (*ColorBuffer, error) {
	if len(src.Data) == 0 {
		return nil, ErrEmptySource
	}
	count, err := src.PixelCount()
	if err != nil {
		return nil, err
	}
	format := src.Format
	channels := format.Channels()
	if channels == 0 {
		if len(src.Data) < count*4 {
			return nil, fmt.Errorf("%w: %s with %d bytes for %dx%d", ErrUnsupportedFormat, format, len(src.Data), src.Width, src.Height)
		}
		format, channels = FormatBGRA8, 4
	}
	if len(src.Data) < count*channels {
		return nil, fmt.Errorf("%w: %s needs %d bytes, have %d", ErrTruncatedSource, format, count*channels, len(src.Data))
	}

	dst := &ColorBuffer{
		Width:  int(src.Width),
		Height: int(src.Height),
		Order:  order,
		Pix:    make([]byte, count*4),
	}

	switch format {
	case FormatBGRA8:
		if order == OrderBGRA {
			copy(dst.Pix, src.Data)
		} else {
			swapRB(dst.Pix, src.Data)
		}
	case FormatRGBA8:
		if order == OrderRGBA {
			copy(dst.Pix, src.Data)
		} else {
			swapRB(dst.Pix, src.Data)
		}
	case FormatGray8:
		for i := 0; i < count; i++ {
			g := src.Data[i]
			o := i * 4
			dst.Pix[o] = g
			dst.Pix[o+1] = g
			dst.Pix[o+2] = g
			dst.Pix[o+3] = 255
		}
	}

	return dst, nil
}

// swapRB copies 4-byte pixels from src to dst exchanging bytes 0 and 2.
// Only whole pixels present in both slices are touched.
func swapRB(dst, src []byte) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	n -= n % 4
	for i := 0; i < n; i += 4 {
		dst[i] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i]
		dst[i+3] = src[i+3]
	}
}

package texture

import (
	"errors"
	"fmt"

	"github.com/Faultbox/objexport/internal/pixel"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

// ErrInvalidTGA is returned for TGA data ReadRawTGA cannot read.
var ErrInvalidTGA = errors.New("invalid TGA data")

// ReadRawTGA reads the pixel payload of an uncompressed or RLE true-color
// TGA file into a top-down BGRA8 buffer. 24-bit pixels get an opaque alpha.
func ReadRawTGA(data []byte) (pixel.SourceBuffer, error) {
	if len(data) < 18 {
		return pixel.SourceBuffer{}, fmt.Errorf("%w: header too short", ErrInvalidTGA)
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return pixel.SourceBuffer{}, fmt.Errorf("%w: color-mapped TGA not supported", ErrInvalidTGA)
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return pixel.SourceBuffer{}, fmt.Errorf("%w: unsupported type %d", ErrInvalidTGA, imageType)
	}
	if bpp != 24 && bpp != 32 {
		return pixel.SourceBuffer{}, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidTGA, bpp)
	}
	if width == 0 || height == 0 {
		return pixel.SourceBuffer{}, fmt.Errorf("%w: %dx%d", ErrInvalidTGA, width, height)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return pixel.SourceBuffer{}, fmt.Errorf("%w: truncated", ErrInvalidTGA)
	}

	d := tgaDecoder{
		src:         data[offset:],
		dst:         make([]byte, width*height*4),
		width:       width,
		height:      height,
		bpp:         bpp / 8,
		topToBottom: descriptor&0x20 != 0,
	}

	var err error
	if imageType == TGATypeUncompressed {
		err = d.raw()
	} else {
		err = d.rle()
	}
	if err != nil {
		return pixel.SourceBuffer{}, err
	}

	return pixel.SourceBuffer{
		Width:  uint32(width),
		Height: uint32(height),
		Format: pixel.FormatBGRA8,
		Data:   d.dst,
	}, nil
}

type tgaDecoder struct {
	src         []byte
	dst         []byte
	width       int
	height      int
	bpp         int
	topToBottom bool
}

// put stores the pixel at src[i:] as the n-th pixel in file order.
func (d *tgaDecoder) put(n, i int) {
	x := n % d.width
	y := n / d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	o := (y*d.width + x) * 4
	d.dst[o] = d.src[i]
	d.dst[o+1] = d.src[i+1]
	d.dst[o+2] = d.src[i+2]
	d.dst[o+3] = 255
	if d.bpp == 4 {
		d.dst[o+3] = d.src[i+3]
	}
}

func (d *tgaDecoder) raw() error {
	count := d.width * d.height
	if len(d.src) < count*d.bpp {
		return fmt.Errorf("%w: pixel data truncated", ErrInvalidTGA)
	}
	for n := 0; n < count; n++ {
		d.put(n, n*d.bpp)
	}
	return nil
}

func (d *tgaDecoder) rle() error {
	count := d.width * d.height
	n, i := 0, 0
	for n < count {
		if i >= len(d.src) {
			return fmt.Errorf("%w: RLE data truncated at pixel %d", ErrInvalidTGA, n)
		}
		packet := d.src[i]
		i++
		run := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			// Run-length packet: one pixel repeated.
			if i+d.bpp > len(d.src) {
				return fmt.Errorf("%w: RLE data truncated at pixel %d", ErrInvalidTGA, n)
			}
			for k := 0; k < run && n < count; k++ {
				d.put(n, i)
				n++
			}
			i += d.bpp
			continue
		}

		for k := 0; k < run && n < count; k++ {
			if i+d.bpp > len(d.src) {
				return fmt.Errorf("%w: RLE data truncated at pixel %d", ErrInvalidTGA, n)
			}
			d.put(n, i)
			i += d.bpp
			n++
		}
	}
	return nil
}

// Package texture decodes model textures stored in the game archives into
// pixel source buffers.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/objexport/internal/pixel"
)

// ErrUnsupportedTexture is returned for file extensions with no decoder.
var ErrUnsupportedTexture = errors.New("unsupported texture format")

// decoders maps a lower-case file extension to its image decoder. The TGA
// format has no magic number, so decoding goes by extension rather than
// image.Decode sniffing.
var decoders = map[string]func([]byte) (image.Image, error){
	".bmp":  func(b []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(b)) },
	".tga":  func(b []byte) (image.Image, error) { return tga.Decode(bytes.NewReader(b)) },
	".png":  func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) },
	".jpg":  func(b []byte) (image.Image, error) { return jpeg.Decode(bytes.NewReader(b)) },
	".jpeg": func(b []byte) (image.Image, error) { return jpeg.Decode(bytes.NewReader(b)) },
}

// DecodeSource decodes a texture file into an RGBA8 source buffer with the
// magenta colour key applied. name selects the decoder by extension.
func DecodeSource(name string, data []byte) (pixel.SourceBuffer, error) {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	decode, ok := decoders[ext]
	if !ok {
		return pixel.SourceBuffer{}, fmt.Errorf("%w: %q", ErrUnsupportedTexture, ext)
	}

	img, err := decode(data)
	if err != nil {
		return pixel.SourceBuffer{}, fmt.Errorf("decode %s: %w", name, err)
	}

	rgba := ImageToNRGBA(img, true)
	return pixel.SourceBuffer{
		Width:  uint32(rgba.Rect.Dx()),
		Height: uint32(rgba.Rect.Dy()),
		Format: pixel.FormatRGBA8,
		Data:   rgba.Pix,
	}, nil
}

// IsMagentaKey checks if an RGB color matches the RO magenta transparency key.
// Uses tolerance (R >= 250, G <= 10, B >= 250) to handle BMP decoding variations.
func IsMagentaKey(r, g, b uint8) bool {
	return r >= 250 && g <= 10 && b >= 250
}

// ApplyMagentaKey makes magenta pixels transparent black in place.
func ApplyMagentaKey(img *image.NRGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			p := img.Pix[i : i+4 : i+4]
			if IsMagentaKey(p[0], p[1], p[2]) {
				p[0], p[1], p[2], p[3] = 0, 0, 0, 0
			}
		}
	}
}

// ImageToNRGBA converts img to a tightly packed, zero-origin NRGBA image.
// If applyMagentaKey is true, magenta pixels are made transparent.
func ImageToNRGBA(img image.Image, applyMagentaKey bool) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	if applyMagentaKey {
		ApplyMagentaKey(out)
	}
	return out
}

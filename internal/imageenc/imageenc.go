// Package imageenc encodes canonical colour buffers into image container
// formats, trying an ordered list of candidates until one succeeds.
package imageenc

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/Faultbox/objexport/internal/pixel"
)

// Encoding errors.
var (
	ErrAllCandidatesFailed = errors.New("no container format accepted the image")
	ErrUnknownFormat       = errors.New("unknown container format")
	ErrEmptyOutput         = errors.New("encoder produced no data")
)

// Format identifies an image container.
type Format string

// Supported container formats.
const (
	PNG  Format = "png"
	TGA  Format = "tga"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	WebP Format = "webp"
)

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Container encodes a colour buffer into one container format.
// Encode must not write anywhere; the returned bytes are a complete file.
type Container interface {
	Format() Format
	Encode(buf *pixel.ColorBuffer) ([]byte, error)
}

// EncoderFunc adapts a plain function to the Container interface.
type EncoderFunc struct {
	Fmt Format
	Fn  func(buf *pixel.ColorBuffer) ([]byte, error)
}

// Format implements Container.
func (e EncoderFunc) Format() Format { return e.Fmt }

// Encode implements Container.
func (e EncoderFunc) Encode(buf *pixel.ColorBuffer) ([]byte, error) { return e.Fn(buf) }

// DefaultFormats is the candidate order used when none is configured.
var DefaultFormats = []Format{PNG, TGA, BMP}

// Encode tries each candidate in order and returns the bytes and format of
// the first one that succeeds with non-empty output. If every candidate
// fails the returned error wraps ErrAllCandidatesFailed and each cause.
func Encode(buf *pixel.ColorBuffer, candidates []Container) ([]byte, Format, error) {
	if buf == nil {
		return nil, "", fmt.Errorf("%w: nil buffer", ErrAllCandidatesFailed)
	}
	if len(candidates) == 0 {
		return nil, "", fmt.Errorf("%w: no candidates", ErrAllCandidatesFailed)
	}

	var errs []error
	for _, c := range candidates {
		data, err := c.Encode(buf)
		if err == nil && len(data) == 0 {
			err = ErrEmptyOutput
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Format(), err))
			continue
		}
		return data, c.Format(), nil
	}

	return nil, "", fmt.Errorf("%w: %w", ErrAllCandidatesFailed, errors.Join(errs...))
}

// Lookup returns the built-in container for a format name.
// Names are case-insensitive and may carry a leading dot ("PNG", ".tga").
func Lookup(name string) (Container, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "."))
	switch f {
	case "tif":
		f = TIFF
	case "bitmap":
		f = BMP
	}
	enc, ok := builtin[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return EncoderFunc{Fmt: f, Fn: enc}, nil
}

// ParseFormats resolves an ordered list of names into containers,
// dropping duplicates while keeping first-seen order.
func ParseFormats(names []string) ([]Container, error) {
	seen := make(map[Format]bool, len(names))
	out := make([]Container, 0, len(names))
	for _, name := range names {
		c, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		if seen[c.Format()] {
			continue
		}
		seen[c.Format()] = true
		out = append(out, c)
	}
	return out, nil
}

// Defaults returns containers for DefaultFormats.
func Defaults() []Container {
	out := make([]Container, 0, len(DefaultFormats))
	for _, f := range DefaultFormats {
		out = append(out, EncoderFunc{Fmt: f, Fn: builtin[f]})
	}
	return out
}

var builtin = map[Format]func(*pixel.ColorBuffer) ([]byte, error){
	PNG:  encodePNG,
	TGA:  encodeTGA,
	BMP:  encodeBMP,
	TIFF: encodeTIFF,
	WebP: encodeWebP,
}

// All encoders run at their lossless setting.

func encodePNG(buf *pixel.ColorBuffer) ([]byte, error) {
	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&out, buf.Image()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func encodeTGA(buf *pixel.ColorBuffer) ([]byte, error) {
	var out bytes.Buffer
	if err := tga.Encode(&out, buf.Image()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func encodeBMP(buf *pixel.ColorBuffer) ([]byte, error) {
	var out bytes.Buffer
	if err := bmp.Encode(&out, buf.Image()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func encodeTIFF(buf *pixel.ColorBuffer) ([]byte, error) {
	var out bytes.Buffer
	opts := &tiff.Options{Compression: tiff.Deflate, Predictor: true}
	if err := tiff.Encode(&out, buf.Image(), opts); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func encodeWebP(buf *pixel.ColorBuffer) ([]byte, error) {
	if buf.Width == 0 || buf.Height == 0 {
		return nil, fmt.Errorf("webp: empty image %dx%d", buf.Width, buf.Height)
	}
	var out bytes.Buffer
	if err := nativewebp.Encode(&out, buf.Image(), nil); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

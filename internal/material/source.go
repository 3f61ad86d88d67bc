package material

import (
	"errors"
	"fmt"

	"github.com/Faultbox/objexport/internal/pixel"
)

// DefaultTextureParams are the parameter names probed for a material's
// diffuse texture, in order.
var DefaultTextureParams = []string{
	"BaseColor",
	"Diffuse",
	"DiffuseTexture",
	"BaseColorTexture",
	"Texture",
	"Albedo",
}

// ResolveBoundTexture returns the first texture bound to one of params.
// When none is bound it falls back to the first named entry of the
// material's texture parameter list, if the material has one. The returned
// string names the parameter that matched, or is "" for the fallback.
func ResolveBoundTexture(mat Material, params []string) (Texture, string) {
	if mat == nil {
		return nil, ""
	}
	for _, p := range params {
		if tex := mat.Texture(p); tex != nil {
			return tex, p
		}
	}
	if lister, ok := mat.(TextureParameterLister); ok {
		for _, tex := range lister.TextureParameters() {
			if tex != nil && tex.Name() != "" {
				return tex, ""
			}
		}
	}
	return nil, ""
}

// SourceKind tells which pixel source SelectSource picked.
type SourceKind int

const (
	SourceUnavailable SourceKind = iota
	SourcePrimary
	SourceSecondary
)

// String returns the source kind name.
func (k SourceKind) String() string {
	switch k {
	case SourcePrimary:
		return "primary"
	case SourceSecondary:
		return "secondary"
	default:
		return "unavailable"
	}
}

// PixelSource is the outcome of source selection. Buffer is set for the
// primary and secondary kinds; Err explains an unavailable source.
type PixelSource struct {
	Kind   SourceKind
	Buffer pixel.SourceBuffer
	Err    error
}

// Source selection errors.
var (
	ErrNoPixelData        = errors.New("texture has no pixel data")
	ErrSecondarySizeMatch = errors.New("secondary data does not match width*height*4")
)

// SelectSource picks the texture's primary buffer when it has data, and
// otherwise its secondary buffer if that holds a whole BGRA8 image.
func SelectSource(tex Texture) PixelSource {
	if tex == nil {
		return PixelSource{Kind: SourceUnavailable, Err: ErrNoPixelData}
	}

	primary, perr := tex.Primary()
	if perr == nil && len(primary.Data) > 0 {
		return PixelSource{Kind: SourcePrimary, Buffer: primary}
	}
	if perr == nil {
		perr = fmt.Errorf("primary: %w", ErrNoPixelData)
	} else {
		perr = fmt.Errorf("primary: %w", perr)
	}

	secondary, serr := tex.Secondary()
	if serr == nil {
		serr = checkSecondary(secondary)
	}
	if serr != nil {
		return PixelSource{Kind: SourceUnavailable, Err: errors.Join(perr, fmt.Errorf("secondary: %w", serr))}
	}

	secondary.Format = pixel.FormatBGRA8
	return PixelSource{Kind: SourceSecondary, Buffer: secondary}
}

func checkSecondary(b pixel.SourceBuffer) error {
	if len(b.Data) == 0 {
		return ErrNoPixelData
	}
	count, err := b.PixelCount()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecondarySizeMatch, err)
	}
	if want := count * 4; len(b.Data) < want {
		return fmt.Errorf("%w: %dx%d needs %d bytes, have %d", ErrSecondarySizeMatch, b.Width, b.Height, want, len(b.Data))
	}
	return nil
}

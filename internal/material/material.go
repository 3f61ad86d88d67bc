// Package material writes the Wavefront MTL material library and exports the
// textures its materials reference.
package material

import (
	"fmt"
	"strings"

	"github.com/Faultbox/objexport/internal/pixel"
)

// Material is a handle to a source material.
type Material interface {
	Name() string
	// Texture returns the texture bound to the named parameter, or nil.
	Texture(param string) Texture
}

// TextureParameterLister is implemented by materials that can enumerate
// their texture parameters in declaration order.
type TextureParameterLister interface {
	TextureParameters() []Texture
}

// Texture is a handle to a source texture with up to two pixel sources.
type Texture interface {
	Name() string
	// Primary returns the full-fidelity pixel data.
	Primary() (pixel.SourceBuffer, error)
	// Secondary returns the resident copy. Its data is read as BGRA8 at the
	// reported width and height whatever Format says.
	Secondary() (pixel.SourceBuffer, error)
}

// Slot binds a material slot index to a material. A nil Material marks an
// unassigned slot.
type Slot struct {
	Index    int
	Material Material
}

// Sink receives the files an export produces.
type Sink interface {
	MkdirAll(dir string) error
	WriteFile(name string, data []byte) error
}

var reserved = strings.NewReplacer(
	" ", "_",
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// Sanitize replaces characters that are reserved in file names and OBJ
// identifiers with underscores.
func Sanitize(name string) string {
	return reserved.Replace(name)
}

// Names returns the sanitized material name of every slot, indexed by slot
// index. Unassigned slots and gaps get an empty name. Materials whose name
// sanitizes to nothing are called material_<index>. A name already used by a
// lower slot gets a numbered suffix, so every name is unique.
func Names(slots []Slot) []string {
	n := 0
	for _, s := range slots {
		if s.Index+1 > n {
			n = s.Index + 1
		}
	}
	names := make([]string, n)
	for _, s := range slots {
		if s.Index < 0 || s.Material == nil {
			continue
		}
		names[s.Index] = materialName(s)
	}

	used := make(map[string]bool, len(names))
	for i, base := range names {
		if base == "" {
			continue
		}
		name := base
		for k := 1; used[name]; k++ {
			name = fmt.Sprintf("%s_%d", base, k)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func materialName(s Slot) string {
	if name := Sanitize(s.Material.Name()); name != "" {
		return name
	}
	return fmt.Sprintf("material_%d", s.Index)
}

package source

import (
	"path"
	"strings"

	"github.com/Faultbox/objexport/internal/material"
)

// DiffuseParam is the parameter model textures are bound to.
const DiffuseParam = "Diffuse"

// Material is a model texture table entry seen as an export material.
type Material struct {
	name    string
	diffuse material.Texture
}

// NewMaterial returns a material bound to tex, which may be nil.
func NewMaterial(name string, tex material.Texture) *Material {
	return &Material{name: name, diffuse: tex}
}

// Name returns the material name.
func (m *Material) Name() string {
	return m.name
}

// Texture returns the diffuse texture for DiffuseParam and nil otherwise.
func (m *Material) Texture(param string) material.Texture {
	if param == DiffuseParam {
		return m.diffuse
	}
	return nil
}

// TextureParameters lists the bound textures.
func (m *Material) TextureParameters() []material.Texture {
	if m.diffuse == nil {
		return nil
	}
	return []material.Texture{m.diffuse}
}

// materialName derives a material name from a texture path: directories
// are kept, the extension is dropped.
func materialName(texPath string) string {
	p := strings.ReplaceAll(texPath, "\\", "/")
	return strings.TrimSuffix(p, path.Ext(p))
}

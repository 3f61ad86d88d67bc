// Package exporter writes a merged mesh and its materials as a Wavefront OBJ
// file, an MTL library and a directory of textures.
package exporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/objexport/internal/imageenc"
	"github.com/Faultbox/objexport/internal/material"
	"github.com/Faultbox/objexport/internal/mesh"
)

// ErrIOWrite is returned when the geometry file cannot be written.
var ErrIOWrite = errors.New("failed to write output")

// Sink receives the files an export produces.
type Sink interface {
	MkdirAll(dir string) error
	WriteFile(name string, data []byte) error
}

// OSSink writes to the local filesystem.
type OSSink struct{}

// MkdirAll creates dir and its parents. Existing directories are not an error.
func (OSSink) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// WriteFile creates or truncates name.
func (OSSink) WriteFile(name string, data []byte) error {
	return os.WriteFile(name, data, 0644)
}

// Exporter writes OBJ exports. The zero value writes to the local
// filesystem with default texture settings and no logging.
type Exporter struct {
	Sink Sink
	Log  *zap.Logger

	// Containers is the ordered list of texture image formats to try.
	Containers []imageenc.Container
	// TextureDir is the texture subdirectory, "Textures" if empty.
	TextureDir string
	// TextureParams overrides the probed material parameter names.
	TextureParams []string
}

// New returns an Exporter writing through sink.
func New(sink Sink, log *zap.Logger) *Exporter {
	return &Exporter{Sink: sink, Log: log}
}

// Result describes a finished export.
type Result struct {
	GeometryPath string
	MaterialPath string
	Geometry     *mesh.Geometry
	Materials    *material.Library
	// MaterialsWritten is false when the MTL file could not be written.
	MaterialsWritten bool
}

// Export writes desc to outputPath and its materials next to it.
//
// Only an unusable mesh or a failed geometry write is an error. Material and
// texture problems are logged and leave the geometry file in place.
func (e *Exporter) Export(desc *mesh.Description, slots []material.Slot, outputPath string) (*Result, error) {
	log := e.logger()
	sink := e.sink()

	objPath, fellBack := ResolveOutputPath(outputPath)
	if fellBack {
		log.Warn("Binary scene formats are not supported, writing OBJ instead",
			zap.String("requested", outputPath),
			zap.String("path", objPath))
	}

	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("export %s: %w", objPath, err)
	}

	dir := filepath.Dir(objPath)
	base := strings.TrimSuffix(filepath.Base(objPath), filepath.Ext(objPath))
	mtlName := base + ".mtl"

	if err := sink.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrIOWrite, dir, err)
	}

	log.Info("Exporting mesh",
		zap.String("mesh", desc.Name),
		zap.Int("vertices", len(desc.Vertices)),
		zap.Int("triangles", len(desc.Triangles)),
		zap.Int("slots", len(slots)))

	geom, err := mesh.EncodeGeometry(desc, material.Names(slots), mtlName)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", objPath, err)
	}
	if err := sink.WriteFile(objPath, []byte(geom.Text)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIOWrite, objPath, err)
	}
	for _, g := range geom.Groups {
		log.Debug("Exported faces", zap.String("material", g.Material), zap.Int("faces", g.Faces))
	}
	if geom.Skipped > 0 {
		log.Warn("Skipped faces that are not triangles", zap.Int("count", geom.Skipped))
	}

	res := &Result{GeometryPath: objPath, Geometry: geom}

	textures := material.NewTextureExporter(sink, log)
	textures.Containers = e.Containers
	textures.Dir = e.TextureDir
	textures.Params = e.TextureParams

	res.Materials = material.EncodeMaterials(slots, textures, dir, log)
	res.MaterialPath = filepath.Join(dir, mtlName)
	if err := sink.WriteFile(res.MaterialPath, []byte(res.Materials.Text)); err != nil {
		log.Warn("Failed to write material library", zap.String("path", res.MaterialPath), zap.Error(err))
	} else {
		res.MaterialsWritten = true
	}

	log.Info("Exported OBJ",
		zap.String("path", objPath),
		zap.Int("faces", geom.Faces),
		zap.Int("materials", res.Materials.Written),
		zap.Int("textured", res.Materials.Textured))
	return res, nil
}

// ResolveOutputPath maps a requested output path to the OBJ path actually
// written. glTF requests (.gltf, .glb) become .obj and report true.
func ResolveOutputPath(p string) (string, bool) {
	ext := filepath.Ext(p)
	switch strings.ToLower(ext) {
	case ".gltf", ".glb":
		return strings.TrimSuffix(p, ext) + ".obj", true
	}
	return p, false
}

func (e *Exporter) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e *Exporter) sink() Sink {
	if e.Sink == nil {
		return OSSink{}
	}
	return e.Sink
}

package material

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/objexport/internal/imageenc"
	"github.com/Faultbox/objexport/internal/pixel"
)

// DefaultTextureDir is the texture subdirectory next to the material file.
const DefaultTextureDir = "Textures"

// TextureExporter writes material textures as image files.
//
// A TextureExporter serves one export: each texture, identified by its Name,
// is written at most once and later materials reuse its path. Textures whose
// names sanitize to the same file name get numbered suffixes. It is not safe
// for concurrent use.
type TextureExporter struct {
	Sink Sink
	Log  *zap.Logger

	// Params overrides DefaultTextureParams.
	Params []string
	// Containers overrides imageenc.Defaults().
	Containers []imageenc.Container
	// Dir overrides DefaultTextureDir. It is always joined with '/'.
	Dir string

	done  map[string]string // texture name -> relative path, "" on failure
	files map[string]bool   // lower-cased file names in use
}

// NewTextureExporter returns an exporter with default settings.
func NewTextureExporter(sink Sink, log *zap.Logger) *TextureExporter {
	return &TextureExporter{Sink: sink, Log: log}
}

// Export writes the texture bound to mat into outputDir and returns its
// path relative to outputDir with forward slashes, e.g. "Textures/wall.png".
// It returns false when the material has no texture or the texture could
// not be exported; failures are logged as warnings.
func (e *TextureExporter) Export(mat Material, outputDir string) (string, bool) {
	log := e.logger()
	if mat == nil {
		return "", false
	}
	matName := mat.Name()

	params := e.Params
	if params == nil {
		params = DefaultTextureParams
	}
	tex, param := ResolveBoundTexture(mat, params)
	if tex == nil {
		log.Debug("No texture bound", zap.String("material", matName))
		return "", false
	}

	key := tex.Name()
	if rel, ok := e.done[key]; ok {
		log.Debug("Reusing exported texture",
			zap.String("material", matName),
			zap.String("texture", key),
			zap.String("path", rel))
		return rel, rel != ""
	}
	texName := e.fileName(key)

	rel, err := e.write(tex, texName, outputDir, log.With(
		zap.String("material", matName),
		zap.String("texture", tex.Name()),
		zap.String("param", param),
	))
	if err != nil {
		rel = ""
	}
	if e.done == nil {
		e.done = make(map[string]string)
	}
	e.done[key] = rel
	return rel, rel != ""
}

// fileName reserves a file name for the texture called name.
func (e *TextureExporter) fileName(name string) string {
	base := Sanitize(name)
	if base == "" {
		base = "texture"
	}
	if e.files == nil {
		e.files = make(map[string]bool)
	}
	file := base
	for i := 1; e.files[strings.ToLower(file)]; i++ {
		file = fmt.Sprintf("%s_%d", base, i)
	}
	e.files[strings.ToLower(file)] = true
	return file
}

func (e *TextureExporter) write(tex Texture, texName, outputDir string, log *zap.Logger) (string, error) {
	src := SelectSource(tex)
	if src.Kind == SourceUnavailable {
		log.Warn("Texture has no usable pixel data", zap.Error(src.Err))
		return "", src.Err
	}
	if src.Kind == SourceSecondary {
		log.Debug("Using secondary texture data", zap.NamedError("primary", src.Err))
	}
	log.Debug("Texture source",
		zap.Stringer("kind", src.Kind),
		zap.Uint32("width", src.Buffer.Width),
		zap.Uint32("height", src.Buffer.Height),
		zap.Stringer("format", src.Buffer.Format),
		zap.Int("bytes", len(src.Buffer.Data)))

	buf, err := pixel.Normalize(src.Buffer, pixel.OrderBGRA)
	if err != nil {
		log.Warn("Failed to normalize texture", zap.Error(err))
		return "", err
	}

	containers := e.Containers
	if len(containers) == 0 {
		containers = imageenc.Defaults()
	}
	data, format, err := imageenc.Encode(buf, containers)
	if err != nil {
		log.Warn("Failed to encode texture", zap.Error(err))
		return "", err
	}

	dir := e.Dir
	if dir == "" {
		dir = DefaultTextureDir
	}
	rel := path.Join(filepath.ToSlash(dir), texName+format.Ext())
	diskDir := filepath.Join(outputDir, filepath.FromSlash(dir))
	if err := e.Sink.MkdirAll(diskDir); err != nil {
		log.Warn("Failed to create texture directory", zap.String("dir", diskDir), zap.Error(err))
		return "", err
	}
	diskPath := filepath.Join(outputDir, filepath.FromSlash(rel))
	if err := e.Sink.WriteFile(diskPath, data); err != nil {
		log.Warn("Failed to write texture", zap.String("file", diskPath), zap.Error(err))
		return "", err
	}

	log.Info("Exported texture",
		zap.String("file", rel),
		zap.Stringer("source", src.Kind),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)))
	return rel, nil
}

func (e *TextureExporter) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

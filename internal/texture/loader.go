package texture

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/Faultbox/objexport/internal/pixel"
)

// DefaultPrefix is the archive directory model texture names are relative to.
const DefaultPrefix = "data/texture/"

// Source loads raw files by archive path. *assets.Manager satisfies it.
type Source interface {
	Load(path string) ([]byte, error)
}

// Loader resolves model texture names against a Source. Textures are
// decoded lazily and at most once.
type Loader struct {
	Source Source
	Prefix string

	mu       sync.Mutex
	textures map[string]*Texture
}

// NewLoader creates a Loader reading textures under DefaultPrefix.
func NewLoader(src Source) *Loader {
	return &Loader{Source: src, Prefix: DefaultPrefix}
}

// Texture returns the texture for a model texture name. The same name
// always yields the same *Texture.
func (l *Loader) Texture(name string) *Texture {
	key := strings.ToLower(strings.ReplaceAll(name, "\\", "/"))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.textures == nil {
		l.textures = make(map[string]*Texture)
	}
	if t, ok := l.textures[key]; ok {
		return t
	}
	t := &Texture{name: name, path: l.Prefix + key, src: l.Source}
	l.textures[key] = t
	return t
}

// Texture is one archive texture. Primary decodes the file with the
// decoder registered for its extension; Secondary reads TGA pixel
// payloads directly.
type Texture struct {
	name string
	path string
	src  Source

	once sync.Once
	data []byte
	err  error
}

// Name returns the texture name as given to the loader, with forward
// slashes and without its extension. Keeping the directories keeps
// same-named textures from different folders apart.
func (t *Texture) Name() string {
	p := strings.ReplaceAll(t.name, "\\", "/")
	return strings.TrimSuffix(p, path.Ext(p))
}

// Path returns the archive path the texture is read from.
func (t *Texture) Path() string {
	return t.path
}

func (t *Texture) load() ([]byte, error) {
	t.once.Do(func() {
		if t.src == nil {
			t.err = fmt.Errorf("no texture source for %s", t.path)
			return
		}
		t.data, t.err = t.src.Load(t.path)
	})
	return t.data, t.err
}

// Primary returns the decoded texture as RGBA8.
func (t *Texture) Primary() (pixel.SourceBuffer, error) {
	data, err := t.load()
	if err != nil {
		return pixel.SourceBuffer{}, err
	}
	return DecodeSource(t.path, data)
}

// Secondary returns the raw BGRA8 payload of a TGA texture.
func (t *Texture) Secondary() (pixel.SourceBuffer, error) {
	if !strings.EqualFold(path.Ext(t.path), ".tga") {
		return pixel.SourceBuffer{}, fmt.Errorf("%w: no raw payload for %s", ErrUnsupportedTexture, t.path)
	}
	data, err := t.load()
	if err != nil {
		return pixel.SourceBuffer{}, err
	}
	return ReadRawTGA(data)
}

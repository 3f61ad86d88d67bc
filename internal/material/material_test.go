package material

import (
	"bytes"
	"errors"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/objexport/internal/imageenc"
	"github.com/Faultbox/objexport/internal/pixel"
)

type fakeTexture struct {
	name      string
	primary   pixel.SourceBuffer
	perr      error
	secondary pixel.SourceBuffer
	serr      error
}

func (t *fakeTexture) Name() string                           { return t.name }
func (t *fakeTexture) Primary() (pixel.SourceBuffer, error)   { return t.primary, t.perr }
func (t *fakeTexture) Secondary() (pixel.SourceBuffer, error) { return t.secondary, t.serr }

type fakeMaterial struct {
	name   string
	params map[string]Texture
}

func (m *fakeMaterial) Name() string { return m.name }
func (m *fakeMaterial) Texture(param string) Texture {
	return m.params[param]
}

type listMaterial struct {
	fakeMaterial
	list []Texture
}

func (m *listMaterial) TextureParameters() []Texture { return m.list }

type memSink struct {
	dirs      []string
	files     map[string][]byte
	failWrite bool
}

func newMemSink() *memSink { return &memSink{files: make(map[string][]byte)} }

func (s *memSink) MkdirAll(dir string) error {
	s.dirs = append(s.dirs, dir)
	return nil
}

func (s *memSink) WriteFile(name string, data []byte) error {
	if s.failWrite {
		return errors.New("disk full")
	}
	s.files[name] = append([]byte(nil), data...)
	return nil
}

func rgbaTexture(name string) *fakeTexture {
	return &fakeTexture{
		name: name,
		primary: pixel.SourceBuffer{
			Width: 2, Height: 1, Format: pixel.FormatRGBA8,
			Data: []byte{255, 0, 0, 255, 0, 0, 255, 255},
		},
	}
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Metal/Rough:01", "Metal_Rough_01"},
		{"Base Color*Map", "Base_Color_Map"},
		{`a\b?c"d<e>f|g`, "a_b_c_d_e_f_g"},
		{"plain", "plain"},
		{"", ""},
		{"dir\\file.bmp", "dir_file.bmp"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNames(t *testing.T) {
	slots := []Slot{
		{Index: 0, Material: &fakeMaterial{name: "Metal/Rough:01"}},
		{Index: 1, Material: nil},
		{Index: 3, Material: &fakeMaterial{name: ""}},
	}
	got := Names(slots)
	want := []string{"Metal_Rough_01", "", "", "material_3"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNamesUnique(t *testing.T) {
	slots := []Slot{
		{Index: 2, Material: &fakeMaterial{name: "wall"}},
		{Index: 0, Material: &fakeMaterial{name: "wall"}},
		{Index: 1, Material: &fakeMaterial{name: "wall_1"}},
		{Index: 3, Material: &fakeMaterial{name: "a/b"}},
		{Index: 4, Material: &fakeMaterial{name: "a_b"}},
	}
	got := Names(slots)
	want := []string{"wall", "wall_1", "wall_2", "a_b", "a_b_1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %q, want %q", got, want)
	}
}

func TestResolveBoundTexture(t *testing.T) {
	diffuse := rgbaTexture("diffuse")
	albedo := rgbaTexture("albedo")
	listed := rgbaTexture("listed")

	tests := []struct {
		name      string
		mat       Material
		wantTex   Texture
		wantParam string
	}{
		{
			name:      "first probe in order wins",
			mat:       &fakeMaterial{params: map[string]Texture{"Albedo": albedo, "Diffuse": diffuse}},
			wantTex:   diffuse,
			wantParam: "Diffuse",
		},
		{
			name:      "later probe",
			mat:       &fakeMaterial{params: map[string]Texture{"Albedo": albedo}},
			wantTex:   albedo,
			wantParam: "Albedo",
		},
		{
			name: "fallback to parameter list skips unnamed",
			mat: &listMaterial{
				fakeMaterial: fakeMaterial{params: map[string]Texture{"Normal": albedo}},
				list:         []Texture{nil, &fakeTexture{}, listed},
			},
			wantTex: listed,
		},
		{
			name: "nothing bound",
			mat:  &fakeMaterial{},
		},
		{
			name: "nil material",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, param := ResolveBoundTexture(tt.mat, DefaultTextureParams)
			if tex != tt.wantTex {
				t.Errorf("texture = %v, want %v", tex, tt.wantTex)
			}
			if param != tt.wantParam {
				t.Errorf("param = %q, want %q", param, tt.wantParam)
			}
		})
	}
}

func TestSelectSource(t *testing.T) {
	secondary := pixel.SourceBuffer{Width: 1, Height: 1, Format: pixel.FormatUnknown, Data: []byte{1, 2, 3, 4}}

	tests := []struct {
		name string
		tex  Texture
		want SourceKind
	}{
		{"primary present", rgbaTexture("t"), SourcePrimary},
		{"primary empty uses secondary", &fakeTexture{secondary: secondary}, SourceSecondary},
		{"primary error uses secondary", &fakeTexture{perr: errors.New("decode"), primary: rgbaTexture("t").primary, secondary: secondary}, SourceSecondary},
		{"secondary too small", &fakeTexture{secondary: pixel.SourceBuffer{Width: 2, Height: 2, Data: []byte{1, 2, 3, 4}}}, SourceUnavailable},
		{"secondary zero size", &fakeTexture{secondary: pixel.SourceBuffer{Data: []byte{1, 2, 3, 4}}}, SourceUnavailable},
		{"secondary size overflows", &fakeTexture{secondary: pixel.SourceBuffer{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF, Data: []byte{1, 2, 3, 4}}}, SourceUnavailable},
		{"secondary size wraps", &fakeTexture{secondary: pixel.SourceBuffer{Width: 1 << 31, Height: 1 << 31, Data: []byte{1, 2, 3, 4}}}, SourceUnavailable},
		{"secondary error", &fakeTexture{serr: errors.New("no mips")}, SourceUnavailable},
		{"both empty", &fakeTexture{}, SourceUnavailable},
		{"nil texture", nil, SourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectSource(tt.tex)
			if got.Kind != tt.want {
				t.Fatalf("Kind = %v, want %v (err %v)", got.Kind, tt.want, got.Err)
			}
			switch got.Kind {
			case SourceUnavailable:
				if got.Err == nil {
					t.Error("unavailable source without error")
				}
			case SourceSecondary:
				if got.Buffer.Format != pixel.FormatBGRA8 {
					t.Errorf("secondary format = %v, want BGRA8", got.Buffer.Format)
				}
			}
		})
	}
}

func TestTextureExporter_Export(t *testing.T) {
	sink := newMemSink()
	e := NewTextureExporter(sink, nil)
	mat := &fakeMaterial{name: "Metal/Rough:01", params: map[string]Texture{"BaseColor": rgbaTexture("Base Color*Map")}}

	rel, ok := e.Export(mat, "out")
	if !ok {
		t.Fatal("Export returned false")
	}
	if rel != "Textures/Base_Color_Map.png" {
		t.Errorf("path = %q, want Textures/Base_Color_Map.png", rel)
	}

	data, found := sink.files[filepath.Join("out", "Textures", "Base_Color_Map.png")]
	if !found {
		t.Fatalf("texture not written, files: %v", sink.files)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode written texture: %v", err)
	}
	if r, g, b, _ := img.At(0, 0).RGBA(); r>>8 != 255 || g != 0 || b != 0 {
		t.Errorf("pixel (0,0) = %v, want red", img.At(0, 0))
	}
	if len(sink.dirs) == 0 || sink.dirs[0] != filepath.Join("out", "Textures") {
		t.Errorf("dirs = %v, want out/Textures created", sink.dirs)
	}
}

func TestTextureExporter_SecondarySource(t *testing.T) {
	sink := newMemSink()
	log, logs := observed()
	e := NewTextureExporter(sink, log)
	tex := &fakeTexture{
		name:      "resident",
		perr:      errors.New("no source art"),
		secondary: pixel.SourceBuffer{Width: 1, Height: 1, Data: []byte{0, 0, 255, 255}},
	}

	rel, ok := e.Export(&fakeMaterial{name: "m", params: map[string]Texture{"Diffuse": tex}}, "out")
	if !ok || rel != "Textures/resident.png" {
		t.Fatalf("Export = %q, %v", rel, ok)
	}
	if logs.FilterMessage("Using secondary texture data").Len() != 1 {
		t.Error("secondary fallback not logged")
	}

	img, err := png.Decode(bytes.NewReader(sink.files[filepath.Join("out", "Textures", "resident.png")]))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r, _, b, _ := img.At(0, 0).RGBA(); r>>8 != 255 || b != 0 {
		t.Errorf("BGRA secondary not converted: %v", img.At(0, 0))
	}
}

func TestTextureExporter_Failures(t *testing.T) {
	tests := []struct {
		name    string
		tex     Texture
		sink    *memSink
		wantLog string
	}{
		{"no pixel data", &fakeTexture{name: "empty"}, newMemSink(), "Texture has no usable pixel data"},
		{"truncated primary", &fakeTexture{name: "short", primary: pixel.SourceBuffer{Width: 4, Height: 4, Format: pixel.FormatRGBA8, Data: []byte{1}}}, newMemSink(), "Failed to normalize texture"},
		{"write fails", rgbaTexture("ok"), &memSink{files: map[string][]byte{}, failWrite: true}, "Failed to write texture"},
		{"huge secondary", &fakeTexture{name: "huge", secondary: pixel.SourceBuffer{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF, Data: []byte{1, 2, 3, 4}}}, newMemSink(), "Texture has no usable pixel data"},
		{"huge primary", &fakeTexture{name: "huge", primary: pixel.SourceBuffer{Width: 1 << 31, Height: 1 << 31, Format: pixel.FormatRGBA8, Data: []byte{1, 2, 3, 4}}}, newMemSink(), "Failed to normalize texture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observed()
			e := NewTextureExporter(tt.sink, log)
			rel, ok := e.Export(&fakeMaterial{name: "m", params: map[string]Texture{"Texture": tt.tex}}, "out")
			if ok || rel != "" {
				t.Errorf("Export = %q, %v; want no path", rel, ok)
			}
			entries := logs.FilterMessage(tt.wantLog).All()
			if len(entries) != 1 {
				t.Fatalf("want one %q entry, got logs %v", tt.wantLog, logs.All())
			}
			if entries[0].Level != zapcore.WarnLevel {
				t.Errorf("level = %v, want warn", entries[0].Level)
			}
			if entries[0].ContextMap()["material"] != "m" {
				t.Errorf("warning missing material field: %v", entries[0].ContextMap())
			}
		})
	}
}

func TestTextureExporter_EncodeFailure(t *testing.T) {
	log, logs := observed()
	e := NewTextureExporter(newMemSink(), log)
	e.Containers = []imageenc.Container{imageenc.EncoderFunc{Fmt: imageenc.PNG, Fn: func(*pixel.ColorBuffer) ([]byte, error) {
		return nil, errors.New("rejected")
	}}}

	if _, ok := e.Export(&fakeMaterial{name: "m", params: map[string]Texture{"Texture": rgbaTexture("t")}}, "out"); ok {
		t.Error("Export succeeded with only a rejecting container")
	}
	if logs.FilterMessage("Failed to encode texture").Len() != 1 {
		t.Errorf("encode failure not logged: %v", logs.All())
	}
}

func TestTextureExporter_ContainerFallbackAndDir(t *testing.T) {
	sink := newMemSink()
	e := NewTextureExporter(sink, nil)
	e.Dir = "tex"
	e.Containers = []imageenc.Container{
		imageenc.EncoderFunc{Fmt: imageenc.PNG, Fn: func(*pixel.ColorBuffer) ([]byte, error) { return nil, errors.New("no") }},
		mustLookup(t, "tga"),
	}

	rel, ok := e.Export(&fakeMaterial{name: "m", params: map[string]Texture{"Texture": rgbaTexture("wall")}}, "out")
	if !ok || rel != "tex/wall.tga" {
		t.Fatalf("Export = %q, %v; want tex/wall.tga", rel, ok)
	}
	if _, found := sink.files[filepath.Join("out", "tex", "wall.tga")]; !found {
		t.Errorf("files = %v", sink.files)
	}
}

func TestTextureExporter_ReusesTexture(t *testing.T) {
	sink := newMemSink()
	writes := 0
	e := NewTextureExporter(sink, nil)
	e.Containers = []imageenc.Container{imageenc.EncoderFunc{Fmt: imageenc.BMP, Fn: func(*pixel.ColorBuffer) ([]byte, error) {
		writes++
		return []byte("BM"), nil
	}}}
	shared := rgbaTexture("shared")

	a, okA := e.Export(&fakeMaterial{name: "a", params: map[string]Texture{"Texture": shared}}, "out")
	b, okB := e.Export(&fakeMaterial{name: "b", params: map[string]Texture{"Diffuse": shared}}, "out")
	if !okA || !okB || a != b || a != "Textures/shared.bmp" {
		t.Errorf("paths = %q (%v), %q (%v)", a, okA, b, okB)
	}
	if writes != 1 {
		t.Errorf("texture encoded %d times, want 1", writes)
	}

	// A texture that failed once is not retried.
	broken := &fakeTexture{name: "broken"}
	e.Export(&fakeMaterial{name: "c", params: map[string]Texture{"Texture": broken}}, "out")
	broken.primary = rgbaTexture("broken").primary
	if _, ok := e.Export(&fakeMaterial{name: "d", params: map[string]Texture{"Texture": broken}}, "out"); ok {
		t.Error("failed texture was retried")
	}
}

func TestTextureExporter_NameCollision(t *testing.T) {
	sink := newMemSink()
	e := NewTextureExporter(sink, nil)
	red := rgbaTexture("a/b")
	blue := &fakeTexture{
		name:    "a_b",
		primary: pixel.SourceBuffer{Width: 1, Height: 1, Format: pixel.FormatRGBA8, Data: []byte{0, 0, 255, 255}},
	}
	third := rgbaTexture("A:B")

	tests := []struct {
		mat  string
		tex  Texture
		want string
	}{
		{"m1", red, "Textures/a_b.png"},
		{"m2", blue, "Textures/a_b_1.png"},
		{"m3", red, "Textures/a_b.png"},
		{"m4", third, "Textures/A_B_2.png"},
	}
	for _, tt := range tests {
		rel, ok := e.Export(&fakeMaterial{name: tt.mat, params: map[string]Texture{"Texture": tt.tex}}, "out")
		if !ok || rel != tt.want {
			t.Errorf("%s: Export = %q, %v; want %q", tt.mat, rel, ok, tt.want)
		}
	}
	if len(sink.files) != 3 {
		t.Fatalf("files = %d, want 3", len(sink.files))
	}

	img, err := png.Decode(bytes.NewReader(sink.files[filepath.Join("out", "Textures", "a_b_1.png")]))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r, _, b, _ := img.At(0, 0).RGBA(); r != 0 || b>>8 != 255 {
		t.Errorf("a_b_1.png pixel = %v, want blue", img.At(0, 0))
	}
}

func TestEncodeMaterials(t *testing.T) {
	log, logs := observed()
	sink := newMemSink()
	slots := []Slot{
		{Index: 0, Material: &fakeMaterial{name: "Metal/Rough:01", params: map[string]Texture{"BaseColor": rgbaTexture("Base Color*Map")}}},
		{Index: 1, Material: nil},
		{Index: 2, Material: &fakeMaterial{name: "cube_material"}},
	}

	lib := EncodeMaterials(slots, NewTextureExporter(sink, log), "out", log)

	want := "# Exported by objexport\n\n" +
		"newmtl Metal_Rough_01\n" +
		"Ka 1.0 1.0 1.0\n" +
		"Kd 0.8 0.8 0.8\n" +
		"Ks 0.5 0.5 0.5\n" +
		"Ns 32.0\n" +
		"d 1.0\n" +
		"illum 2\n" +
		"map_Kd Textures/Base_Color_Map.png\n" +
		"\n" +
		"newmtl cube_material\n" +
		"Ka 1.0 1.0 1.0\n" +
		"Kd 0.8 0.8 0.8\n" +
		"Ks 0.5 0.5 0.5\n" +
		"Ns 32.0\n" +
		"d 1.0\n" +
		"illum 2\n" +
		"\n"
	if lib.Text != want {
		t.Errorf("MTL text:\n%s\nwant:\n%s", lib.Text, want)
	}
	if lib.Written != 2 || lib.Textured != 1 {
		t.Errorf("Written = %d, Textured = %d; want 2, 1", lib.Written, lib.Textured)
	}
	if strings.Join(lib.Names, ",") != "Metal_Rough_01,,cube_material" {
		t.Errorf("Names = %q", lib.Names)
	}

	empty := logs.FilterMessage("Material slot is empty").All()
	if len(empty) != 1 || empty[0].ContextMap()["slot"] != int64(1) {
		t.Errorf("empty slot warning = %v", empty)
	}
}

func TestEncodeMaterials_NoTextureExporter(t *testing.T) {
	slots := []Slot{{Index: 0, Material: &fakeMaterial{name: "m", params: map[string]Texture{"Texture": rgbaTexture("t")}}}}
	lib := EncodeMaterials(slots, nil, "out", nil)
	if strings.Contains(lib.Text, "map_Kd") {
		t.Errorf("map_Kd written without a texture exporter:\n%s", lib.Text)
	}
}

func mustLookup(t *testing.T, name string) imageenc.Container {
	t.Helper()
	c, err := imageenc.Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", name, err)
	}
	return c
}

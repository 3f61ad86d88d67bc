package material

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Library is an encoded MTL file.
type Library struct {
	Text string
	// Names holds the material name per slot index; "" for skipped slots.
	Names    []string
	Written  int
	Textured int
}

// EncodeMaterials writes one MTL block per assigned slot, in slot order.
// Every block uses the same neutral shading constants. A map_Kd line is added
// when textures exports the material's texture into outputDir. A nil
// textures writes no maps.
func EncodeMaterials(slots []Slot, textures *TextureExporter, outputDir string, log *zap.Logger) *Library {
	if log == nil {
		log = zap.NewNop()
	}

	lib := &Library{Names: Names(slots)}
	var b strings.Builder
	b.WriteString("# Exported by objexport\n\n")

	log.Info("Exporting materials", zap.Int("slots", len(slots)))
	for _, s := range slots {
		if s.Material == nil {
			log.Warn("Material slot is empty", zap.Int("slot", s.Index))
			continue
		}
		if s.Index < 0 {
			log.Warn("Material slot has a negative index", zap.Int("slot", s.Index))
			continue
		}
		name := lib.Names[s.Index]

		fmt.Fprintf(&b, "newmtl %s\n", name)
		b.WriteString("Ka 1.0 1.0 1.0\n")
		b.WriteString("Kd 0.8 0.8 0.8\n")
		b.WriteString("Ks 0.5 0.5 0.5\n")
		b.WriteString("Ns 32.0\n")
		b.WriteString("d 1.0\n")
		b.WriteString("illum 2\n")

		if textures != nil {
			if rel, ok := textures.Export(s.Material, outputDir); ok {
				fmt.Fprintf(&b, "map_Kd %s\n", rel)
				lib.Textured++
			}
		}
		b.WriteString("\n")
		lib.Written++
	}

	lib.Text = b.String()
	return lib
}

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/objexport/internal/batch"
	"github.com/Faultbox/objexport/internal/exporter"
	"github.com/Faultbox/objexport/internal/material"
	"github.com/Faultbox/objexport/internal/source"
	"github.com/Faultbox/objexport/internal/texture"
	"github.com/Faultbox/objexport/pkg/formats"
	"github.com/Faultbox/objexport/pkg/grf"
)

func cmdExport(e *env, _ *flag.FlagSet) error {
	if len(e.args) < 1 || len(e.args) > 2 {
		return errUsage
	}

	cfg, err := e.batchConfig()
	if err != nil {
		return err
	}

	model := modelPath(e.args[0])
	job := batch.Job{Model: model}
	if len(e.args) > 1 {
		job.Output = e.args[1]
	} else {
		// Local files land directly under the output directory.
		name := model
		if filepath.IsAbs(model) || !strings.HasPrefix(model, batch.ModelPrefix) {
			name = batch.ModelPrefix + filepath.Base(model)
		}
		job.Output = batch.Jobs([]string{name}, e.cfg.Export.OutputDir)[0].Output
	}

	res := batch.Export(cfg, job)
	if !res.Success {
		return fmt.Errorf("%s: %s", model, res.Error)
	}
	fmt.Fprintf(e.stdout, "Exported: %s (%d vertices, %d triangles, %d materials, %d textures)\n",
		res.Output, res.Vertices, res.Triangles, res.Materials, res.Textures)
	return nil
}

func cmdBatch(e *env, _ *flag.FlagSet) error {
	if len(e.args) != 1 {
		return errUsage
	}

	cfg, err := e.batchConfig()
	if err != nil {
		return err
	}

	pattern := e.args[0]
	if !strings.Contains(pattern, "/") && !strings.Contains(pattern, "\\") {
		pattern = batch.ModelPrefix + pattern
	}
	models, err := batch.Select(e.assets.List(batch.ModelPrefix, ".rsm"), pattern)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return fmt.Errorf("no models match %s", pattern)
	}

	ctx, cancel := signalContext()
	defer cancel()

	outDir := e.cfg.Export.OutputDir
	results := batch.Run(ctx, cfg, batch.Jobs(models, outDir))

	manifest := filepath.Join(outDir, "manifest.json")
	if err := batch.WriteManifest(manifest, results); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		} else {
			fmt.Fprintf(e.stdout, "FAILED %s: %s\n", r.Model, r.Error)
		}
	}
	fmt.Fprintf(e.stdout, "Exported %d of %d models to %s (manifest: %s)\n", ok, len(results), outDir, manifest)
	if ok == 0 {
		return fmt.Errorf("all %d models failed", len(results))
	}
	return nil
}

func cmdTextures(e *env, _ *flag.FlagSet) error {
	if len(e.args) < 1 || len(e.args) > 2 {
		return errUsage
	}

	model := modelPath(e.args[0])
	rsm, err := loadModel(e, model)
	if err != nil {
		return err
	}

	outDir := e.cfg.Export.OutputDir
	if len(e.args) > 1 {
		outDir = e.args[1]
	}
	cfg, err := e.batchConfig()
	if err != nil {
		return err
	}
	loader := texture.NewLoader(cfg.Assets)
	exp := material.NewTextureExporter(exporter.OSSink{}, e.log)
	exp.Params = []string{source.DiffuseParam}
	exp.Containers = cfg.Containers
	exp.Dir = e.cfg.Export.TextureDir

	written := 0
	for _, name := range rsm.Textures {
		mat := source.NewMaterial(name, loader.Texture(name))
		if rel, ok := exp.Export(mat, outDir); ok {
			fmt.Fprintf(e.stdout, "%s -> %s\n", name, filepath.Join(outDir, filepath.FromSlash(rel)))
			written++
		} else {
			fmt.Fprintf(e.stdout, "%s: not exported\n", name)
		}
	}
	e.log.Info("Exported textures", zap.String("model", model), zap.Int("written", written), zap.Int("total", len(rsm.Textures)))
	if written == 0 && len(rsm.Textures) > 0 {
		return fmt.Errorf("no textures of %s could be exported", model)
	}
	return nil
}

func cmdInfo(e *env, _ *flag.FlagSet) error {
	if len(e.args) != 1 {
		return errUsage
	}

	model := modelPath(e.args[0])
	rsm, err := loadModel(e, model)
	if err != nil {
		return err
	}

	twoSided := 0
	for i := range rsm.Nodes {
		for _, f := range rsm.Nodes[i].Faces {
			if f.TwoSide != 0 {
				twoSided++
			}
		}
	}

	w := e.stdout
	fmt.Fprintf(w, "Model:     %s\n", model)
	fmt.Fprintf(w, "Version:   %s\n", rsm.Version)
	fmt.Fprintf(w, "Shading:   %s\n", rsm.Shading)
	fmt.Fprintf(w, "Alpha:     %.2f\n", rsm.Alpha)
	fmt.Fprintf(w, "Animation: %d ms (keyframes: %v, animated: %v)\n", rsm.AnimLength, rsm.HasAnimation(), source.Animated(rsm))
	fmt.Fprintf(w, "Nodes:     %d (root %q)\n", len(rsm.Nodes), rsm.RootNode)
	fmt.Fprintf(w, "Vertices:  %d\n", rsm.GetTotalVertexCount())
	fmt.Fprintf(w, "Faces:     %d (%d two-sided)\n", rsm.GetTotalFaceCount(), twoSided)
	fmt.Fprintf(w, "Textures:  %d\n", len(rsm.Textures))
	for i, t := range rsm.Textures {
		status := "missing"
		if e.assets.Exists(texture.DefaultPrefix + t) {
			status = "ok"
		}
		fmt.Fprintf(w, "  [%d] %s (%s)\n", i, t, status)
	}
	if root := rsm.GetRootNode(); root != nil {
		fmt.Fprintln(w, "Node tree:")
		printNode(w, rsm, root, 1, map[string]bool{})
	}
	return nil
}

func printNode(w io.Writer, rsm *formats.RSM, n *formats.RSMNode, depth int, seen map[string]bool) {
	if seen[n.Name] {
		return
	}
	seen[n.Name] = true
	fmt.Fprintf(w, "%s%s (%d vertices, %d faces)\n", strings.Repeat("  ", depth), n.Name, len(n.Vertices), len(n.Faces))
	for _, c := range rsm.GetChildNodes(n.Name) {
		printNode(w, rsm, c, depth+1, seen)
	}
}

func cmdConfig(e *env, _ *flag.FlagSet) error {
	if len(e.args) != 0 {
		return errUsage
	}
	saved, err := e.cfg.Save()
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(e.stdout, "Wrote config: %s\n", saved)
	return nil
}

func cmdPack(e *env, fs *flag.FlagSet) error {
	base := fs.String("C", ".", "Directory archive names are relative to")
	if err := fs.Parse(e.args); err != nil {
		return errUsage
	}
	if fs.NArg() < 2 {
		return errUsage
	}

	w, err := grf.Create(fs.Arg(0))
	if err != nil {
		return err
	}
	for _, f := range fs.Args()[1:] {
		data, err := os.ReadFile(filepath.Join(*base, f))
		if err != nil {
			w.Close()
			return err
		}
		if err := w.Add(path.Clean(filepath.ToSlash(f)), data); err != nil {
			w.Close()
			return err
		}
		fmt.Fprintf(e.stdout, "Added: %s (%d bytes)\n", f, len(data))
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Wrote %s (%d files)\n", fs.Arg(0), fs.NArg()-1)
	return nil
}

func loadModel(e *env, model string) (*formats.RSM, error) {
	data, err := (modelSource{e.assets}).Load(model)
	if err != nil {
		return nil, err
	}
	rsm, err := formats.ParseRSM(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", model, err)
	}
	return rsm, nil
}

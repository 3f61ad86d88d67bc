// Package batch exports RSM models from the game archives as OBJ files,
// concurrently, one output directory per model.
package batch

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/objexport/internal/exporter"
	"github.com/Faultbox/objexport/internal/imageenc"
	"github.com/Faultbox/objexport/internal/source"
	"github.com/Faultbox/objexport/internal/texture"
	"github.com/Faultbox/objexport/pkg/formats"
)

// ModelPrefix is the archive directory holding RSM models.
const ModelPrefix = "data/model/"

// Config holds all shared resources for a batch run.
type Config struct {
	// Assets serves model and texture files; *assets.Manager satisfies it.
	Assets     texture.Source
	Sink       exporter.Sink
	Log        *zap.Logger
	Workers    int
	Containers []imageenc.Container
	TextureDir string
	Source     source.Options

	// Progress is the interval between progress log entries; 0 means 2s.
	Progress time.Duration
}

// Job is one model to export.
type Job struct {
	Model  string // archive path of the .rsm file
	Output string // .obj path
}

// Result holds the outcome of processing one job.
type Result struct {
	Model     string `json:"model"`
	Output    string `json:"output"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Vertices  int    `json:"vertices"`
	Triangles int    `json:"triangles"`
	Materials int    `json:"materials"`
	Textures  int    `json:"textures"`
}

// Jobs gives each model its own directory under outputDir, mirroring the
// model's path below ModelPrefix:
//
//	data/model/prontera/fountain.rsm -> <outputDir>/prontera/fountain/fountain.obj
func Jobs(models []string, outputDir string) []Job {
	jobs := make([]Job, len(models))
	for i, m := range models {
		rel := strings.TrimPrefix(strings.ReplaceAll(m, "\\", "/"), ModelPrefix)
		rel = strings.TrimSuffix(rel, path.Ext(rel))
		dir := filepath.Join(outputDir, filepath.FromSlash(rel))
		jobs[i] = Job{Model: m, Output: filepath.Join(dir, path.Base(rel)+".obj")}
	}
	return jobs
}

// Select returns the paths matching a path.Match pattern. Matching is
// case-insensitive and uses forward slashes.
func Select(paths []string, pattern string) ([]string, error) {
	pattern = strings.ToLower(strings.ReplaceAll(pattern, "\\", "/"))
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	var out []string
	for _, p := range paths {
		if ok, _ := path.Match(pattern, strings.ToLower(p)); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Run processes all jobs using a worker pool. Results are in job order.
// Jobs not started before ctx is done fail with the context error.
func Run(ctx context.Context, cfg Config, jobs []Job) []Result {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	interval := cfg.Progress
	if interval <= 0 {
		interval = 2 * time.Second
	}

	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64
	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					log.Info("Batch progress",
						zap.Int64("done", p),
						zap.Int("total", total),
						zap.Float64("per_sec", float64(p)/time.Since(start).Seconds()))
				}
			}
		}
	}()

	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if err := ctx.Err(); err != nil {
					results[idx] = failed(jobs[idx], err)
				} else {
					results[idx] = Export(cfg, jobs[idx])
				}
				processed.Add(1)
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	log.Info("Batch finished",
		zap.Int("total", total),
		zap.Int("succeeded", ok),
		zap.Int("failed", total-ok),
		zap.Duration("elapsed", time.Since(start)))
	return results
}

// Export runs a single job: read and parse the model, flatten it and write
// the OBJ export.
func Export(cfg Config, job Job) Result {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("model", job.Model))

	if cfg.Assets == nil {
		return failed(job, fmt.Errorf("no asset source"))
	}
	data, err := cfg.Assets.Load(job.Model)
	if err != nil {
		return failed(job, err)
	}
	rsm, err := formats.ParseRSM(data)
	if err != nil {
		return failed(job, fmt.Errorf("parse %s: %w", job.Model, err))
	}

	name := strings.TrimSuffix(path.Base(strings.ReplaceAll(job.Model, "\\", "/")), path.Ext(job.Model))
	opts := cfg.Source
	opts.Log = log
	model, err := source.FromRSM(rsm, name, texture.NewLoader(cfg.Assets), opts)
	if err != nil {
		return failed(job, err)
	}

	exp := exporter.New(cfg.Sink, log)
	exp.Containers = cfg.Containers
	exp.TextureDir = cfg.TextureDir
	exp.TextureParams = []string{source.DiffuseParam}

	res, err := exp.Export(model.Mesh, model.Slots, job.Output)
	if err != nil {
		return failed(job, err)
	}
	return Result{
		Model:     job.Model,
		Output:    res.GeometryPath,
		Success:   true,
		Vertices:  res.Geometry.Vertices,
		Triangles: res.Geometry.Faces,
		Materials: res.Materials.Written,
		Textures:  res.Materials.Textured,
	}
}

func failed(job Job, err error) Result {
	return Result{Model: job.Model, Output: job.Output, Error: err.Error()}
}

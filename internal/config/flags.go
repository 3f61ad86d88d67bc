package config

import (
	"flag"
	"strings"
)

// Flags holds command-line overrides. Zero values leave the loaded
// configuration unchanged.
type Flags struct {
	Config      string
	WriteConfig string
	Debug       bool
	OutputDir   string
	Containers  string
	GRF         string
	Workers     int
	LogFile     string
	DoubleSided bool
	AnimTimeMS  float64
}

// Register adds the flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.StringVar(&f.WriteConfig, "write-config", "", "Write the effective config to this path")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.OutputDir, "out", "", "Output directory")
	fs.StringVar(&f.Containers, "formats", "", "Comma-separated texture formats to try (png,tga,bmp,tiff,webp)")
	fs.StringVar(&f.GRF, "grf", "", "Comma-separated GRF archives, later ones override earlier")
	fs.IntVar(&f.Workers, "workers", 0, "Batch worker count")
	fs.StringVar(&f.LogFile, "log", "", "Log file path")
	fs.BoolVar(&f.DoubleSided, "double-sided", false, "Emit back faces for two-sided faces")
	fs.Float64Var(&f.AnimTimeMS, "time", 0, "Animation time in milliseconds to sample the pose at")
}

// apply applies flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.OutputDir != "" {
		cfg.Export.OutputDir = f.OutputDir
	}
	if f.Containers != "" {
		cfg.Export.Containers = splitList(f.Containers)
	}
	if f.GRF != "" {
		cfg.Data.GRFPaths = splitList(f.GRF)
	}
	if f.Workers > 0 {
		cfg.Batch.Workers = f.Workers
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.DoubleSided {
		cfg.Export.DoubleSided = true
	}
	if f.AnimTimeMS > 0 {
		cfg.Export.AnimTimeMS = float32(f.AnimTimeMS)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

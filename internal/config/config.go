// Package config handles objexport configuration loading and management.
package config

import (
	"fmt"
	"runtime"

	"github.com/Faultbox/objexport/internal/imageenc"
)

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Data    DataConfig    `yaml:"data"`
	Batch   BatchConfig   `yaml:"batch"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds settings for a single model export.
type ExportConfig struct {
	OutputDir   string   `yaml:"output_dir"`
	TextureDir  string   `yaml:"texture_dir"`  // Texture subdirectory next to the .mtl
	Containers  []string `yaml:"containers"`   // Image formats to try, in order
	DoubleSided bool     `yaml:"double_sided"` // Emit back faces for two-sided faces
	AnimTimeMS  float32  `yaml:"anim_time_ms"` // Animation time the pose is sampled at
}

// DataConfig holds game data file paths.
type DataConfig struct {
	GRFPaths []string `yaml:"grf_paths"` // Paths to GRF archives
}

// BatchConfig holds batch export settings.
type BatchConfig struct {
	Workers int `yaml:"workers"` // 0 means one per CPU
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			OutputDir:  "./export",
			TextureDir: "Textures",
			Containers: []string{"png", "tga", "bmp"},
		},
		Data: DataConfig{
			GRFPaths: []string{"data.grf"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if len(c.Export.Containers) == 0 {
		return fmt.Errorf("export.containers: at least one format required")
	}
	if _, err := imageenc.ParseFormats(c.Export.Containers); err != nil {
		return fmt.Errorf("export.containers: %w", err)
	}
	if c.Export.AnimTimeMS < 0 {
		return fmt.Errorf("export.anim_time_ms: must not be negative, got %v", c.Export.AnimTimeMS)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers: must not be negative, got %d", c.Batch.Workers)
	}
	return nil
}

// ContainerList resolves Export.Containers into encoders.
func (c *Config) ContainerList() ([]imageenc.Container, error) {
	return imageenc.ParseFormats(c.Export.Containers)
}

// Workers returns the batch worker count, resolving 0 to the CPU count.
func (c *Config) Workers() int {
	if c.Batch.Workers > 0 {
		return c.Batch.Workers
	}
	return runtime.NumCPU()
}

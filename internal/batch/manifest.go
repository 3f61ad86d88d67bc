package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Manifest is the JSON summary written next to a batch export.
type Manifest struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Models    []Result `json:"models"`
}

// WriteManifest writes the results to path as indented JSON. Output paths
// are made relative to the manifest's directory where possible.
func WriteManifest(path string, results []Result) error {
	dir := filepath.Dir(path)
	m := Manifest{Total: len(results), Models: make([]Result, len(results))}
	for i, r := range results {
		if r.Success {
			m.Succeeded++
		}
		if rel, err := filepath.Rel(dir, r.Output); err == nil {
			r.Output = filepath.ToSlash(rel)
		}
		m.Models[i] = r
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

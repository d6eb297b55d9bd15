// Package export serializes finalized results for external analysis.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vargamartonaron/cogex/internal/model"
)

// Document is the JSON root written for a run.
type Document struct {
	Seed     int64                `json:"seed"`
	Degraded bool                 `json:"degraded_timing"`
	Results  []model.ResultRecord `json:"results"`
}

// Write serializes the document as indented JSON.
func Write(w io.Writer, doc Document) error {
	if doc.Results == nil {
		doc.Results = []model.ResultRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// WriteFile writes the document atomically: to a temp file in the target
// directory, then renamed into place.
func WriteFile(path string, doc Document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "results-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp results file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := Write(tmpFile, doc); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close results file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/pipeline"
	"github.com/ppiankov/fracheck/internal/store"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput opens path for writing. "-" is stdout.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

// writeJSON writes v as indented JSON to path ("-" is stdout)
func writeJSON(path string, v any) (err error) {
	w, err := openOutput(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeGeoJSON exports processed features as GeoJSON
func writeGeoJSON(path string, features []model.ProcessedFeature) error {
	fc, err := pipeline.ToFeatureCollection(features)
	if err != nil {
		return fmt.Errorf("export geojson: %w", err)
	}
	return writeJSON(path, fc)
}

// openStore opens the configured claim store
func openStore(path string) (*store.Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no claim store configured (set store.path or FRACHECK_STORE_PATH)")
	}
	return store.Open(path)
}

// resultName derives a file name for the result of an input path
func resultName(input, suffix string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + suffix
}

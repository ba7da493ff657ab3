package generator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/records"
)

// WriteDataset serializes the dataset to path. The extension selects JSON or YAML.
func WriteDataset(dataset records.Dataset, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := Encode(file, dataset, filepath.Ext(path)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Encode writes dataset to w in the format named by ext (".json", ".yaml" or ".yml").
func Encode(w io.Writer, dataset records.Dataset, ext string) error {
	switch strings.ToLower(ext) {
	case ".json", "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(dataset)
	case ".yaml", ".yml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(dataset); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("%w: %q", records.ErrUnsupportedFormat, ext)
	}
}

// Package records reads the application and user records that feed graph rebuilds.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
)

// User is a person known to the record store.
type User struct {
	ID       string `json:"id" yaml:"id"`
	FullName string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Active   bool   `json:"active" yaml:"active"`
}

// Dataset is the on-disk shape of a record export.
type Dataset struct {
	Users        []User                     `json:"users" yaml:"users"`
	Applications []domain.ApplicationRecord `json:"applications" yaml:"applications"`
}

// Source is the read side of the application/user record store.
type Source interface {
	Applications(ctx context.Context) ([]domain.ApplicationRecord, error)
	Users(ctx context.Context) ([]User, error)
}

// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// NamesByID builds the name lookup consumed by a rebuild. Users without a name are skipped.
func NamesByID(users []User) map[string]string {
	names := make(map[string]string, len(users))
	for _, u := range users {
		if u.ID == "" || strings.TrimSpace(u.FullName) == "" {
			continue
		}
		names[u.ID] = u.FullName
	}
	return names
}

// FileSource serves records from a JSON or YAML export, re-reading the file on every call.
type FileSource struct {
	path string
}

// NewFileSource returns a Source backed by the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the backing file path.
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Applications(ctx context.Context) ([]domain.ApplicationRecord, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Applications, nil
}

func (s *FileSource) Users(ctx context.Context) ([]User, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Users, nil
}

func (s *FileSource) load(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	return LoadDataset(s.path)
}

// LoadDataset decodes a dataset, picking the codec from the file extension.
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return Decode(data, filepath.Ext(path))
}

// Decode parses raw dataset bytes. ext is a file extension such as ".json" or ".yaml".
func Decode(data []byte, ext string) (Dataset, error) {
	var ds Dataset
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &ds); err != nil {
			return Dataset{}, fmt.Errorf("decode json dataset: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &ds); err != nil {
			return Dataset{}, fmt.Errorf("decode yaml dataset: %w", err)
		}
	default:
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return ds, nil
}

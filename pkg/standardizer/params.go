package standardizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

// ErrParamsNotFound is returned by a ParamStore that holds nothing under a name
var ErrParamsNotFound = errors.New("scaler parameters not found")

// ParamStore persists fitted parameter sets by name (usually the dataset name)
type ParamStore interface {
	SaveParams(ctx context.Context, name string, params *ScalerParams) error
	LoadParams(ctx context.Context, name string) (*ScalerParams, error)
}

// SaveParams writes a parameter set as indented JSON
func SaveParams(w io.Writer, params *ScalerParams) error {
	if params == nil {
		return errors.New("no scaler parameters to save")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(params); err != nil {
		return fmt.Errorf("encoding scaler parameters: %w", err)
	}
	return nil
}

// LoadParams reads a parameter set written by SaveParams
func LoadParams(r io.Reader) (*ScalerParams, error) {
	var params ScalerParams
	if err := json.NewDecoder(r).Decode(&params); err != nil {
		return nil, fmt.Errorf("decoding scaler parameters: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &params, nil
}

// Validate checks that every column carries the statistics its method needs
func (p *ScalerParams) Validate() error {
	keys := p.Method.statKeys()
	for name, colStats := range p.Columns {
		for _, key := range keys {
			if _, ok := colStats[key]; !ok {
				return fmt.Errorf("scaler parameters for column %q lack %q required by %s", name, key, p.Method)
			}
		}
	}
	return nil
}

// SaveParamsFile writes a parameter set to path, creating parent directories
func SaveParamsFile(path string, params *ScalerParams) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating parameter directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating parameter file: %w", err)
	}
	if err := SaveParams(f, params); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadParamsFile reads a parameter set from path
func LoadParamsFile(path string) (*ScalerParams, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrParamsNotFound)
		}
		return nil, fmt.Errorf("opening parameter file: %w", err)
	}
	defer f.Close()
	return LoadParams(f)
}

// FileParamStore keeps one JSON file per parameter set in a directory
type FileParamStore struct {
	Dir string
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Path returns the file a named parameter set is stored in
func (s FileParamStore) Path(name string) string {
	return filepath.Join(s.Dir, unsafeFileChars.ReplaceAllString(name, "_")+".scaler.json")
}

// SaveParams implements ParamStore
func (s FileParamStore) SaveParams(_ context.Context, name string, params *ScalerParams) error {
	return SaveParamsFile(s.Path(name), params)
}

// LoadParams implements ParamStore
func (s FileParamStore) LoadParams(_ context.Context, name string) (*ScalerParams, error) {
	return LoadParamsFile(s.Path(name))
}

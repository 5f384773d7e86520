package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/David-Botos/data-cleaning/pkg/cleaner"
	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/standardizer"
)

// Table write modes accepted in the database section
const (
	WriteModeCreateOrReplace = "create_or_replace"
	WriteModeAppend          = "append"
	WriteModeUpdate          = "update"
)

// DatabaseOptions names the tables a pipeline run reads and writes
type DatabaseOptions struct {
	Schema       string `json:"schema" toml:"schema"`
	RawTable     string `json:"raw_table" toml:"raw_table"`
	CleanedTable string `json:"cleaned_table" toml:"cleaned_table"`
	WriteMode    string `json:"write_mode" toml:"write_mode"`
	// KeyColumn matches rows in update mode
	KeyColumn string `json:"key_column" toml:"key_column"`
	BatchSize int    `json:"batch_size" toml:"batch_size"`
	// Record cleaning operations in the audit table
	Audit bool `json:"audit" toml:"audit"`
}

// PipelineOptions is the pipeline options file
type PipelineOptions struct {
	Cleaning        cleaner.Options      `json:"cleaning_options" toml:"cleaning_options"`
	Standardization standardizer.Options `json:"standardization_options" toml:"standardization_options"`
	Database        DatabaseOptions      `json:"database" toml:"database"`
}

// DefaultPipelineOptions returns the options used when no file is given
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Cleaning:        cleaner.DefaultOptions(),
		Standardization: standardizer.DefaultOptions(),
		Database: DatabaseOptions{
			Schema:       "public",
			RawTable:     "raw_data",
			CleanedTable: "cleaned_data",
			WriteMode:    WriteModeCreateOrReplace,
			Audit:        true,
		},
	}
}

// LoadPipelineOptions reads a JSON or TOML options file. Keys absent from the file keep
// their default; unknown keys are rejected.
func LoadPipelineOptions(path string) (PipelineOptions, error) {
	opts := DefaultPipelineOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read pipeline options: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return opts, &model.ConfigurationError{Option: "pipeline_config", Value: path, Reason: err.Error()}
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return opts, &model.ConfigurationError{Option: "pipeline_config", Value: path, Reason: err.Error()}
		}
	default:
		return opts, &model.ConfigurationError{
			Option: "pipeline_config",
			Value:  path,
			Reason: "expected a .json or .toml file",
		}
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// Validate checks the database section; cleaning and standardization options are checked
// when they are parsed by Build
func (o PipelineOptions) Validate() error {
	switch o.Database.WriteMode {
	case WriteModeCreateOrReplace, WriteModeAppend:
	case WriteModeUpdate:
		if o.Database.KeyColumn == "" {
			return &model.ConfigurationError{
				Option: "key_column",
				Value:  "",
				Reason: "required when write_mode is update",
			}
		}
	default:
		return &model.ConfigurationError{
			Option: "write_mode",
			Value:  o.Database.WriteMode,
			Reason: "expected create_or_replace, append or update",
		}
	}
	if o.Database.BatchSize < 0 {
		return &model.ConfigurationError{
			Option: "batch_size",
			Value:  o.Database.BatchSize,
			Reason: "cannot be negative",
		}
	}
	_, _, err := o.Build()
	return err
}

// Build parses the cleaning and standardization sections
func (o PipelineOptions) Build() (cleaner.Config, standardizer.Config, error) {
	cleanCfg, err := cleaner.NewConfig(o.Cleaning)
	if err != nil {
		return cleaner.Config{}, standardizer.Config{}, err
	}
	stdCfg, err := standardizer.NewConfig(o.Standardization)
	if err != nil {
		return cleaner.Config{}, standardizer.Config{}, err
	}
	return cleanCfg, stdCfg, nil
}

// Package fileio reads and writes datasets as delimited text, Excel workbooks and JSON
// record arrays.
package fileio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/converter"
	"github.com/David-Botos/data-cleaning/pkg/model"
)

// Format identifies a file layout
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", path)
	}
}

// DatasetName derives a dataset name from a file path
func DatasetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Options configures reading
type Options struct {
	// Sheet is the workbook sheet to read or write; empty means the first sheet on read
	// and "Sheet1" on write
	Sheet string
	// InferTypes retypes text columns after reading
	InferTypes bool
	// Converter settings used for null markers and inference
	Converter converter.TypeConverterConfig
}

// DefaultOptions returns reader options with type inference enabled
func DefaultOptions() Options {
	return Options{
		InferTypes: true,
		Converter:  converter.DefaultConfig(),
	}
}

// Reader loads datasets from files
type Reader struct {
	opts      Options
	converter *converter.TypeConverter
	logger    *zap.Logger
}

// NewReader creates a Reader
func NewReader(opts Options, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		opts:      opts,
		converter: converter.NewTypeConverterWithConfig(logger, opts.Converter),
		logger:    logger.Named("fileio"),
	}
}

// ReadFile reads a dataset from path; the format comes from the extension
func (r *Reader) ReadFile(path string) (*model.Dataset, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	if format == FormatXLSX {
		return r.readXLSXFile(path, DatasetName(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", format, err)
	}
	defer f.Close()

	return r.Read(f, format, DatasetName(path))
}

// Read reads a dataset in the given format from a stream
func (r *Reader) Read(src io.Reader, format Format, name string) (*model.Dataset, error) {
	var (
		ds  *model.Dataset
		err error
	)
	switch format {
	case FormatCSV:
		ds, err = r.readDelimited(src, ',', name)
	case FormatTSV:
		ds, err = r.readDelimited(src, '\t', name)
	case FormatXLSX:
		ds, err = r.readXLSX(src, name)
	case FormatJSON:
		ds, err = r.readJSON(src, name)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	return r.finish(ds, format), nil
}

// fromRecords builds a text dataset from a header row and string records
func (r *Reader) fromRecords(name string, records [][]string) (*model.Dataset, error) {
	if len(records) == 0 {
		return nil, &model.DataShapeError{Operation: "read", Reason: "file has no header row"}
	}

	header, err := normalizeHeader(records[0])
	if err != nil {
		return nil, err
	}

	columns := make([]model.Column, len(header))
	for i, h := range header {
		columns[i] = model.Column{Name: h, Type: model.TypeText, Nullable: true}
	}
	ds := model.NewDataset(name, columns)

	for lineNo, record := range records[1:] {
		if len(record) > len(header) {
			for _, extra := range record[len(header):] {
				if strings.TrimSpace(extra) != "" {
					return nil, &model.DataShapeError{
						Operation: "read",
						Reason:    fmt.Sprintf("record %d has %d fields, header has %d", lineNo+1, len(record), len(header)),
					}
				}
			}
		}
		row := make(model.Row, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = r.converter.NormalizeRaw(record[i])
			} else {
				row[h] = nil
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func (r *Reader) finish(ds *model.Dataset, format Format) *model.Dataset {
	var corrections []converter.Correction
	if r.opts.InferTypes {
		ds, corrections = r.converter.InferTypes(ds)
	}
	r.logger.Info("Read dataset",
		zap.String("dataset", ds.Name),
		zap.String("format", string(format)),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Columns)),
		zap.Int("retyped", len(corrections)))
	return ds
}

// normalizeHeader trims header cells, names blank ones by position and rejects duplicates
func normalizeHeader(raw []string) ([]string, error) {
	header := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if seen[name] {
			return nil, &model.DataShapeError{Operation: "read", Column: name, Reason: "duplicate column name in header"}
		}
		seen[name] = true
		header[i] = name
	}
	return header, nil
}

// Writer saves datasets to files
type Writer struct {
	Sheet  string
	logger *zap.Logger
}

// NewWriter creates a Writer
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{Sheet: "Sheet1", logger: logger.Named("fileio")}
}

// WriteFile writes a dataset to path; the format comes from the extension
func (w *Writer) WriteFile(ds *model.Dataset, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", format, err)
	}
	if err := w.Write(f, format, ds); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	w.logger.Info("Wrote dataset",
		zap.String("dataset", ds.Name),
		zap.String("path", path),
		zap.Int("rows", ds.Len()))
	return nil
}

// Write writes a dataset in the given format to a stream
func (w *Writer) Write(dst io.Writer, format Format, ds *model.Dataset) error {
	switch format {
	case FormatCSV:
		return writeDelimited(dst, ',', ds)
	case FormatTSV:
		return writeDelimited(dst, '\t', ds)
	case FormatXLSX:
		return w.writeXLSX(dst, ds)
	case FormatJSON:
		return writeJSON(dst, ds)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// pkg/pipeline/source.go
package pipeline

import (
	"context"
	"fmt"

	"github.com/David-Botos/data-cleaning/pkg/fileio"
	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/storage"
)

// Source loads a raw dataset
type Source interface {
	Name() string
	Describe() string
	Load(ctx context.Context) (*model.Dataset, error)
}

// Sink stores a processed dataset and reports the rows written
type Sink interface {
	Describe() string
	Write(ctx context.Context, ds *model.Dataset) (int64, error)
}

// FileSource reads a CSV, TSV, XLSX or JSON file
type FileSource struct {
	Path   string
	Reader *fileio.Reader
}

// NewFileSource creates a file source with the given reader, or a default one
func NewFileSource(path string, reader *fileio.Reader) *FileSource {
	if reader == nil {
		reader = fileio.NewReader(fileio.DefaultOptions(), nil)
	}
	return &FileSource{Path: path, Reader: reader}
}

func (s *FileSource) Name() string     { return fileio.DatasetName(s.Path) }
func (s *FileSource) Describe() string { return "file:" + s.Path }

// Load reads the file
func (s *FileSource) Load(ctx context.Context) (*model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Reader.ReadFile(s.Path)
}

// FileSink writes a file in the format implied by its extension
type FileSink struct {
	Path   string
	Writer *fileio.Writer
}

// NewFileSink creates a file sink with the given writer, or a default one
func NewFileSink(path string, writer *fileio.Writer) *FileSink {
	if writer == nil {
		writer = fileio.NewWriter(nil)
	}
	return &FileSink{Path: path, Writer: writer}
}

func (s *FileSink) Describe() string { return "file:" + s.Path }

// Write writes the dataset, replacing any existing file
func (s *FileSink) Write(ctx context.Context, ds *model.Dataset) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.Writer.WriteFile(ds, s.Path); err != nil {
		return 0, err
	}
	return int64(ds.Len()), nil
}

// TableSource reads a whole database table
type TableSource struct {
	Store  *storage.TableStore
	Schema string
	Table  string
}

func (s *TableSource) Name() string     { return s.Table }
func (s *TableSource) Describe() string { return fmt.Sprintf("table:%s.%s", s.Schema, s.Table) }

// Load reads every row of the table
func (s *TableSource) Load(ctx context.Context) (*model.Dataset, error) {
	return s.Store.ReadTable(ctx, s.Schema, s.Table)
}

// TableSink writes a PostgreSQL table
type TableSink struct {
	Store     *storage.TableStore
	Schema    string
	Table     string
	Mode      storage.WriteMode
	KeyColumn string // used by storage.WriteUpdate
}

func (s *TableSink) Describe() string { return fmt.Sprintf("table:%s.%s", s.Schema, s.Table) }

// Write replaces, appends to or updates the table according to Mode
func (s *TableSink) Write(ctx context.Context, ds *model.Dataset) (int64, error) {
	if s.Mode == storage.WriteUpdate {
		return s.Store.UpdateRows(ctx, ds, s.Schema, s.Table, s.KeyColumn)
	}
	return s.Store.WriteTable(ctx, ds, s.Schema, s.Table, s.Mode)
}

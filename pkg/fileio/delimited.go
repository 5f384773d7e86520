package fileio

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

func (r *Reader) readDelimited(src io.Reader, comma rune, name string) (*model.Dataset, error) {
	reader := csv.NewReader(src)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read delimited file: %w", err)
	}
	return r.fromRecords(name, records)
}

func writeDelimited(dst io.Writer, comma rune, ds *model.Dataset) error {
	writer := csv.NewWriter(dst)
	writer.Comma = comma

	if err := writer.Write(ds.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			record[i] = model.FormatValue(row[col.Name])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

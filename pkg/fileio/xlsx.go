package fileio

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

func (r *Reader) readXLSXFile(path, name string) (*model.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	ds, err := r.readWorkbook(f, name)
	if err != nil {
		return nil, err
	}
	return r.finish(ds, FormatXLSX), nil
}

func (r *Reader) readXLSX(src io.Reader, name string) (*model.Dataset, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel workbook: %w", err)
	}
	defer f.Close()
	return r.readWorkbook(f, name)
}

func (r *Reader) readWorkbook(f *excelize.File, name string) (*model.Dataset, error) {
	sheet := r.opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &model.DataShapeError{Operation: "read", Reason: "workbook has no sheets"}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return r.fromRecords(name, rows)
}

func (w *Writer) writeXLSX(dst io.Writer, ds *model.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	stream, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]interface{}, len(ds.Columns))
	for i, col := range ds.Columns {
		header[i] = col.Name
	}
	if err := stream.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range ds.Rows {
		cells := make([]interface{}, len(ds.Columns))
		for j, col := range ds.Columns {
			cells[j] = xlsxCell(row[col.Name])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := stream.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(dst); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// xlsxCell keeps numbers and booleans native and renders everything else as text so dates
// appear exactly as standardized
func xlsxCell(v interface{}) interface{} {
	if model.IsMissing(v) {
		return nil
	}
	if f, ok := model.AsFloat(v); ok {
		return f
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return model.FormatValue(v)
}

package fileio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/David-Botos/data-cleaning/pkg/converter"
	"github.com/David-Botos/data-cleaning/pkg/model"
)

// readJSON reads an array of flat objects. Column order follows first appearance of each
// key; keys absent from an object are missing cells.
func (r *Reader) readJSON(src io.Reader, name string) (*model.Dataset, error) {
	dec := json.NewDecoder(src)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var (
		order   []string
		seen    = make(map[string]bool)
		records []model.Row
	)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		row := make(model.Row)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("failed to read JSON key: %w", err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("expected JSON object key, got %v", tok)
			}
			var raw interface{}
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("failed to read JSON value for %q: %w", key, err)
			}
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
			row[key] = r.jsonCell(raw)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		records = append(records, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}

	columns := make([]model.Column, len(order))
	for i, key := range order {
		columns[i] = model.Column{Name: key, Type: model.TypeText, Nullable: true}
	}
	ds := model.NewDataset(name, columns)
	for _, row := range records {
		ds.AppendRow(row)
	}
	return ds, nil
}

func (r *Reader) jsonCell(raw interface{}) interface{} {
	switch v := raw.(type) {
	case string:
		return r.converter.NormalizeRaw(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return converter.NormalizeDriverValue(v)
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return &model.DataShapeError{Operation: "read", Reason: fmt.Sprintf("expected %q in JSON records, got %v", want, tok)}
	}
	return nil
}

// writeJSON writes an array of objects with keys in column order
func writeJSON(dst io.Writer, ds *model.Dataset) error {
	bw := bufio.NewWriter(dst)
	bw.WriteString("[")
	for i, row := range ds.Rows {
		if i > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  {")
		for j, col := range ds.Columns {
			if j > 0 {
				bw.WriteString(", ")
			}
			key, err := json.Marshal(col.Name)
			if err != nil {
				return err
			}
			val, err := json.Marshal(jsonValue(row[col.Name]))
			if err != nil {
				return fmt.Errorf("failed to encode %s at row %d: %w", col.Name, i, err)
			}
			bw.Write(key)
			bw.WriteString(": ")
			bw.Write(bytes.TrimSpace(val))
		}
		bw.WriteString("}")
	}
	if len(ds.Rows) > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")
	return bw.Flush()
}

func jsonValue(v interface{}) interface{} {
	if model.IsMissing(v) {
		return nil
	}
	switch val := v.(type) {
	case float64:
		if math.IsInf(val, 0) {
			return model.FormatValue(val)
		}
		return val
	case time.Time:
		return model.FormatValue(val)
	default:
		return val
	}
}

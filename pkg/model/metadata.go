// pkg/model/metadata.go
package model

import (
	"fmt"
	"strings"
)

// ColumnType is the logical type of a dataset column
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeNumeric
	TypeDate
	TypeBoolean
)

// String returns the lowercase name of the column type
func (t ColumnType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeNumeric:
		return "numeric"
	case TypeDate:
		return "date"
	case TypeBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// MarshalText lets column types appear by name in JSON reports
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a column type name
func (t *ColumnType) UnmarshalText(text []byte) error {
	parsed, err := ParseColumnType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseColumnType converts a type name into a ColumnType
func ParseColumnType(name string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "string", "categorical":
		return TypeText, nil
	case "numeric", "number", "float":
		return TypeNumeric, nil
	case "date", "datetime", "timestamp":
		return TypeDate, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	default:
		return TypeText, fmt.Errorf("unknown column type %q", name)
	}
}

// Column represents metadata about a dataset column
type Column struct {
	Name     string     // Column name
	Type     ColumnType // Logical type used by the transforms
	DataType string     // Declared source type (e.g. from information_schema), may be empty
	Nullable bool       // Whether the source allows NULL values
}

// GetColumnByName returns a column by name (case-insensitive)
// Returns nil if column not found
func (d *Dataset) GetColumnByName(name string) *Column {
	normalizedName := normalizeColumnName(name)
	for i, col := range d.Columns {
		if normalizeColumnName(col.Name) == normalizedName {
			return &d.Columns[i]
		}
	}
	return nil
}

func normalizeColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

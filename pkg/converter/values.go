// pkg/converter/values.go
package converter

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/David-Botos/data-cleaning/pkg/dateparse"
	"github.com/David-Botos/data-cleaning/pkg/model"
)

// IsNullMarker reports whether a raw string stands for a missing value
func (c *TypeConverter) IsNullMarker(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return c.config.EmptyStringAsNull
	}
	for _, marker := range c.config.NullMarkers {
		if trimmed == marker {
			return true
		}
	}
	return false
}

// NormalizeRaw turns a raw cell read from an untyped source into a string or the missing marker
func (c *TypeConverter) NormalizeRaw(raw string) interface{} {
	if c.IsNullMarker(raw) {
		return nil
	}
	return raw
}

// NormalizeDriverValue maps values returned by database drivers onto the cell types the
// pipeline works with: []byte becomes text, integers and decimals become float64,
// semi-structured values become JSON text.
func NormalizeDriverValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case string, bool, float64, time.Time:
		return v
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		return cast.ToFloat64(v)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return cast.ToString(v)
	}
}

// ParseNumeric parses a trimmed decimal number. Infinities and NaN are rejected.
func ParseNumeric(s string) (float64, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseBool accepts true/false, t/f, yes/no, y/n and on/off in any case
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "on":
		return true, true
	case "false", "f", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// ParseDate parses a date string permissively
func ParseDate(s string) (time.Time, bool) {
	t, err := dateparse.Parse(s, dateparse.OrderAuto)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Coerce converts a cell to the representation used for the given column type.
// Missing stays missing. A value that cannot be converted returns an error.
func Coerce(value interface{}, target model.ColumnType) (interface{}, error) {
	if model.IsMissing(value) {
		return nil, nil
	}

	switch target {
	case model.TypeNumeric:
		if f, ok := model.AsFloat(value); ok {
			return f, nil
		}
		if s, ok := value.(string); ok {
			if f, ok := ParseNumeric(s); ok {
				return f, nil
			}
		}
		return nil, fmt.Errorf("cannot convert %v (%T) to numeric", value, value)

	case model.TypeDate:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			if t, ok := ParseDate(v); ok {
				return t, nil
			}
		}
		return nil, fmt.Errorf("cannot convert %v (%T) to date", value, value)

	case model.TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			if b, ok := ParseBool(v); ok {
				return b, nil
			}
		}
		return nil, fmt.Errorf("cannot convert %v (%T) to boolean", value, value)

	default:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return model.FormatValue(value), nil
	}
}

// ConvertValueForPostgres converts a cell to a value the PostgreSQL driver accepts for the
// column's declared type
func (c *TypeConverter) ConvertValueForPostgres(value interface{}, col model.Column) (interface{}, error) {
	if model.IsMissing(value) {
		return nil, nil
	}

	converted, err := Coerce(value, col.Type)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col.Name, err)
	}

	if col.Type == model.TypeNumeric && strings.EqualFold(col.DataType, "BIGINT") {
		return int64(converted.(float64)), nil
	}
	return converted, nil
}

func hasClockTime(ds *model.Dataset, column string) bool {
	for _, row := range ds.Rows {
		if t, ok := row[column].(time.Time); ok {
			if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
				return true
			}
		}
	}
	return false
}

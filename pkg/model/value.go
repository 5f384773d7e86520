package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// IsMissing reports whether a cell holds the missing marker. NaN floats count as missing.
func IsMissing(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	default:
		return false
	}
}

// AsFloat returns the numeric value of a cell holding a number.
// Strings, booleans and times are not numbers here even when they would parse as one;
// type correction is responsible for that.
func AsFloat(v interface{}) (float64, bool) {
	if IsMissing(v) {
		return 0, false
	}
	switch v.(type) {
	case string, []byte, bool, time.Time:
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// FormatValue renders a cell for text sinks (CSV, audit records). Missing renders as "".
func FormatValue(v interface{}) string {
	if IsMissing(v) {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	default:
		return cast.ToString(val)
	}
}

// ValueKey returns a canonical, type-tagged encoding of a cell used for equality checks.
// Missing cells share one key; integers and floats with the same value share a key.
func ValueKey(v interface{}) string {
	if IsMissing(v) {
		return "\x00"
	}
	if f, ok := AsFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch val := v.(type) {
	case string:
		return "s:" + val
	case []byte:
		return "s:" + string(val)
	case bool:
		return "b:" + strconv.FormatBool(val)
	case time.Time:
		return "t:" + val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%T:%v", val, val)
	}
}

// RowKey encodes the values of the given columns into one comparable string.
// Each component is length-prefixed so separators inside values cannot collide.
func RowKey(row Row, columns []string) string {
	var sb strings.Builder
	for _, name := range columns {
		key := ValueKey(row[name])
		sb.WriteString(strconv.Itoa(len(key)))
		sb.WriteByte(':')
		sb.WriteString(key)
	}
	return sb.String()
}

// pkg/converter/converter.go
package converter

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

// TypeConverter handles mapping and conversion of data types and values
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for type conversion
type TypeConverterConfig struct {
	// Strings treated as missing when reading untyped sources
	NullMarkers []string
	// Whether to treat empty strings as NULL
	EmptyStringAsNull bool
	// Fraction of non-missing values that must parse before a column is retyped
	InferenceThreshold float64
	// Store dates as TIMESTAMP instead of DATE when any value carries a clock time
	PreserveTimestamps bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		NullMarkers:        []string{"NA", "N/A", "n/a", "null", "NULL", "nil", "NIL", "NaN", "nan", "None"},
		EmptyStringAsNull:  true,
		InferenceThreshold: 1.0,
		PreserveTimestamps: true,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.InferenceThreshold <= 0 || config.InferenceThreshold > 1 {
		config.InferenceThreshold = 1.0
	}
	return &TypeConverter{
		logger: logger,
		config: config,
	}
}

// ColumnTypeFromSQL maps a declared SQL type (PostgreSQL or Snowflake spelling) onto a
// logical column type
func ColumnTypeFromSQL(sqlType string) model.ColumnType {
	if sqlType == "" || strings.EqualFold(sqlType, "NULL") {
		return model.TypeText
	}

	baseType := getBaseType(strings.ToUpper(sqlType))

	switch baseType {
	case "SMALLINT", "INTEGER", "INT", "INT2", "INT4", "INT8", "BIGINT", "SERIAL", "BIGSERIAL",
		"NUMBER", "NUMERIC", "DECIMAL", "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION":
		return model.TypeNumeric
	case "DATE", "TIMESTAMP", "TIMESTAMP_NTZ", "TIMESTAMP_TZ", "TIMESTAMP_LTZ", "DATETIME",
		"TIMESTAMP WITHOUT TIME ZONE", "TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ":
		return model.TypeDate
	case "BOOLEAN", "BOOL":
		return model.TypeBoolean
	default:
		return model.TypeText
	}
}

// PostgresType returns the column type used when a dataset is written to PostgreSQL
func (c *TypeConverter) PostgresType(ds *model.Dataset, col model.Column) string {
	switch col.Type {
	case model.TypeNumeric:
		if allIntegral(ds, col.Name) {
			return "BIGINT"
		}
		return "DOUBLE PRECISION"
	case model.TypeDate:
		if c.config.PreserveTimestamps && hasClockTime(ds, col.Name) {
			return "TIMESTAMP"
		}
		return "DATE"
	case model.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// GenerateColumnDefinitions creates PostgreSQL column definitions
func (c *TypeConverter) GenerateColumnDefinitions(ds *model.Dataset) ([]string, error) {
	if len(ds.Columns) == 0 {
		return nil, fmt.Errorf("dataset %q has no columns", ds.Name)
	}
	definitions := make([]string, 0, len(ds.Columns))

	for _, col := range ds.Columns {
		nullability := "NULL"
		if !col.Nullable && ds.MissingCount(col.Name) == 0 && col.DataType != "" {
			nullability = "NOT NULL"
		}

		def := fmt.Sprintf("%s %s %s",
			pq.QuoteIdentifier(col.Name),
			c.PostgresType(ds, col),
			nullability)

		definitions = append(definitions, def)
	}

	return definitions, nil
}

// getBaseType extracts the base type from a complex type definition
func getBaseType(fullType string) string {
	parts := strings.Split(fullType, "(")
	return strings.TrimSpace(parts[0])
}

func allIntegral(ds *model.Dataset, column string) bool {
	seen := false
	for _, row := range ds.Rows {
		switch v := row[column].(type) {
		case int, int32, int64:
			seen = true
		case float64:
			if v != float64(int64(v)) {
				return false
			}
			seen = true
		case nil:
		default:
			return false
		}
	}
	return seen
}

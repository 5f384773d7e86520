// pkg/converter/inference.go
package converter

import (
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/dateparse"
	"github.com/David-Botos/data-cleaning/pkg/model"
)

// Correction describes one column retyped by InferTypes
type Correction struct {
	Column string
	From   model.ColumnType
	To     model.ColumnType
	// Rows whose value did not parse under the new type and became missing
	// (only possible with a threshold below 1)
	Nullified []int
	// Original values of the nullified rows, aligned with Nullified
	Originals []interface{}
}

// InferColumnType picks the best-fit type for a column's values, trying numeric, date and
// boolean in that order. A candidate wins when at least threshold of the non-missing values
// parse under it. Returns false when the column has no non-missing values or nothing fits.
//
// A column holding any year-last date such as 01/02/2023 is not typed as a date: the
// day/month order is left for date standardization to decide.
func InferColumnType(values []interface{}, threshold float64) (model.ColumnType, bool) {
	present := 0
	numeric, date, boolean := 0, 0, 0
	orderSensitive := false

	for _, v := range values {
		if model.IsMissing(v) {
			continue
		}
		present++

		if _, ok := model.AsFloat(v); ok {
			numeric++
			continue
		}
		switch val := v.(type) {
		case time.Time:
			date++
		case bool:
			boolean++
		case string:
			if _, ok := ParseNumeric(val); ok {
				numeric++
			}
			if _, ok := ParseDate(val); ok {
				date++
				orderSensitive = orderSensitive || dateparse.OrderSensitive(val)
			}
			if _, ok := ParseBool(val); ok {
				boolean++
			}
		}
	}

	if present == 0 {
		return model.TypeText, false
	}

	fits := func(n int) bool {
		return float64(n)/float64(present) >= threshold
	}
	switch {
	case fits(numeric):
		return model.TypeNumeric, true
	case fits(date) && !orderSensitive:
		return model.TypeDate, true
	case fits(boolean):
		return model.TypeBoolean, true
	default:
		return model.TypeText, false
	}
}

// InferTypes retypes text columns whose values fit a stronger type and converts their cells.
// Columns that are entirely missing are left alone. The input dataset is not modified.
func (c *TypeConverter) InferTypes(ds *model.Dataset) (*model.Dataset, []Correction) {
	out := ds.Clone()
	var corrections []Correction

	for _, col := range out.Columns {
		if col.Type != model.TypeText {
			continue
		}

		target, ok := InferColumnType(out.ColumnValues(col.Name), c.config.InferenceThreshold)
		if !ok || target == model.TypeText {
			continue
		}

		correction := Correction{Column: col.Name, From: col.Type, To: target}
		for i, row := range out.Rows {
			converted, err := Coerce(row[col.Name], target)
			if err != nil {
				correction.Nullified = append(correction.Nullified, i)
				correction.Originals = append(correction.Originals, row[col.Name])
				converted = nil
			}
			row[col.Name] = converted
		}
		out.SetColumnType(col.Name, target)
		corrections = append(corrections, correction)

		c.logger.Debug("Column retyped",
			zap.String("dataset", out.Name),
			zap.String("column", col.Name),
			zap.Stringer("type", target),
			zap.Int("nullified", len(correction.Nullified)))
	}

	return out, corrections
}

package standardizer

import (
	"fmt"
	"time"

	"github.com/David-Botos/data-cleaning/pkg/dateparse"
	"github.com/David-Botos/data-cleaning/pkg/model"
)

// dateLikeFraction is the share of non-missing text values that must parse as dates for an
// undeclared text column to be treated as a date column
const dateLikeFraction = 0.5

// DateResult describes what StandardizeDates did
type DateResult struct {
	Standardized []string
	Unparseable  map[string]int
	Warnings     []model.Warning
}

// DateLikeColumns returns the date columns of a dataset: declared date columns plus text
// columns where at least half of the non-missing values parse as dates.
func DateLikeColumns(ds *model.Dataset) []string {
	var names []string
	for _, col := range ds.Columns {
		switch col.Type {
		case model.TypeDate:
			names = append(names, col.Name)
		case model.TypeText:
			if looksLikeDates(ds, col.Name) {
				names = append(names, col.Name)
			}
		}
	}
	return names
}

func looksLikeDates(ds *model.Dataset, column string) bool {
	present, parsed := 0, 0
	for _, row := range ds.Rows {
		s, ok := row[column].(string)
		if !ok {
			continue
		}
		present++
		if dateparse.Valid(s, dateparse.OrderAuto) {
			parsed++
		}
	}
	return present > 0 && float64(parsed)/float64(present) >= dateLikeFraction
}

// StandardizeDates rewrites the date-like columns (or the named columns) in the target
// format. Text values are parsed with the field order the target implies; values that do
// not parse are left untouched, counted and reported. Standardized columns become text.
func StandardizeDates(ds *model.Dataset, format DateFormat, columns []string) (*model.Dataset, DateResult, error) {
	result := DateResult{Unparseable: make(map[string]int)}

	targets := columns
	if len(targets) == 0 {
		targets = DateLikeColumns(ds)
	} else if err := ds.RequireColumns("standardize_dates", targets); err != nil {
		return nil, result, err
	} else {
		for _, name := range targets {
			col, _ := ds.Column(name)
			if col.Type != model.TypeDate && col.Type != model.TypeText {
				return nil, result, &model.DataShapeError{
					Operation: "standardize_dates",
					Column:    name,
					Reason:    fmt.Sprintf("expected a date or text column, found %s", col.Type),
				}
			}
		}
	}

	out := ds.Clone()
	layout := format.Layout()
	order := format.Order()

	for _, name := range targets {
		for i, row := range out.Rows {
			v := row[name]
			if model.IsMissing(v) {
				continue
			}
			switch val := v.(type) {
			case time.Time:
				row[name] = val.Format(layout)
			case string:
				t, err := dateparse.Parse(val, order)
				if err != nil {
					result.Unparseable[name]++
					result.Warnings = append(result.Warnings, model.Warning{
						Code:    model.WarningUnparseableDate,
						Column:  name,
						Row:     i,
						Value:   val,
						Message: fmt.Sprintf("cannot read as a %s date; left unchanged", format),
					})
					continue
				}
				row[name] = t.Format(layout)
			default:
				result.Unparseable[name]++
				result.Warnings = append(result.Warnings, model.Warning{
					Code:    model.WarningUnparseableDate,
					Column:  name,
					Row:     i,
					Value:   val,
					Message: fmt.Sprintf("%T is not a date; left unchanged", val),
				})
			}
		}
		out.SetColumnType(name, model.TypeText)
		result.Standardized = append(result.Standardized, name)
	}

	return out, result, nil
}

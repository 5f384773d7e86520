package cleaner

import (
	"fmt"
	"time"

	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/stats"
)

// MissingResult describes what HandleMissingValues did
type MissingResult struct {
	// Imputed counts filled cells per column
	Imputed     map[string]int
	RowsDropped int
	// Kept holds the input position of each output row
	Kept       []int
	Warnings   []model.Warning
	Operations []model.CleaningOperation
}

// HandleMissingValues resolves missing cells column by column, in declared column order,
// using the given strategy. columns restricts the columns handled; empty means all.
// autoDropThreshold is the missing fraction at or above which the auto strategy drops rows
// of a numeric column instead of imputing the median.
//
// Entirely missing columns are never imputed or used to drop rows; they produce an
// entirely_missing warning. The input dataset is not modified.
func HandleMissingValues(ds *model.Dataset, strategy MissingStrategy, autoDropThreshold float64, columns []string) (*model.Dataset, MissingResult, error) {
	result := MissingResult{Imputed: make(map[string]int)}

	if err := ds.RequireColumns("handle_missing_values", columns); err != nil {
		return nil, result, err
	}

	out := ds.Clone()
	// position of each remaining row in the input
	origin := make([]int, len(out.Rows))
	for i := range origin {
		origin[i] = i
	}
	now := time.Now().UTC()

	for _, col := range selectColumns(out, columns) {
		missing := out.MissingCount(col.Name)
		if missing == 0 {
			continue
		}
		if missing == len(out.Rows) {
			result.Warnings = append(result.Warnings, model.ColumnWarning(
				model.WarningEntirelyMissing, col.Name,
				"column has no non-missing values; rows kept with missing marker"))
			continue
		}

		action := strategy
		if strategy == MissingAuto {
			fraction := float64(missing) / float64(len(out.Rows))
			switch {
			case col.Type == model.TypeNumeric && fraction >= autoDropThreshold:
				action = MissingDrop
			case col.Type == model.TypeNumeric:
				action = MissingMedian
			default:
				action = MissingMode
			}
		}

		switch action {
		case MissingDrop:
			kept := out.Rows[:0]
			keptOrigin := origin[:0]
			for i, row := range out.Rows {
				if model.IsMissing(row[col.Name]) {
					result.RowsDropped++
					result.Operations = append(result.Operations, model.CleaningOperation{
						DatasetName:       out.Name,
						ColumnName:        col.Name,
						RowIndex:          origin[i],
						CleaningOperation: model.OperationRowDrop,
						CleaningReason:    "missing_value",
						CleanedAt:         now,
					})
					continue
				}
				kept = append(kept, row)
				keptOrigin = append(keptOrigin, origin[i])
			}
			out.Rows = kept
			origin = keptOrigin

		case MissingMean, MissingMedian:
			if col.Type != model.TypeNumeric {
				result.Warnings = append(result.Warnings, model.ColumnWarning(
					model.WarningStrategyNotApplicable, col.Name,
					fmt.Sprintf("%s imputation needs a numeric column, column is %s", action, col.Type)))
				continue
			}
			values := out.NumericValues(col.Name)
			var fill float64
			var err error
			if action == MissingMean {
				fill, err = stats.Mean(values)
			} else {
				fill, err = stats.Median(values)
			}
			if err != nil {
				return nil, result, fmt.Errorf("computing %s of %s: %w", action, col.Name, err)
			}
			fillColumn(out, col.Name, fill, action.String()+"_fill", origin, now, &result)

		case MissingMode:
			fill, ok := modeValue(out, col.Name)
			if !ok {
				continue
			}
			fillColumn(out, col.Name, fill, "mode_fill", origin, now, &result)
		}
	}

	result.Kept = origin
	return out, result, nil
}

func fillColumn(ds *model.Dataset, column string, fill interface{}, reason string, origin []int, now time.Time, result *MissingResult) {
	for i, row := range ds.Rows {
		if !model.IsMissing(row[column]) {
			continue
		}
		row[column] = fill
		result.Imputed[column]++
		result.Operations = append(result.Operations, model.CleaningOperation{
			DatasetName:       ds.Name,
			ColumnName:        column,
			RowIndex:          origin[i],
			NewValue:          fill,
			CleaningOperation: model.OperationImputation,
			CleaningReason:    reason,
			CleanedAt:         now,
		})
	}
}

// modeValue returns the most frequent non-missing value of a column, ties going to the
// value seen first
func modeValue(ds *model.Dataset, column string) (interface{}, bool) {
	keys := make([]string, 0, len(ds.Rows))
	firstValue := make(map[string]interface{})
	for _, row := range ds.Rows {
		v := row[column]
		if model.IsMissing(v) {
			continue
		}
		k := model.ValueKey(v)
		if _, ok := firstValue[k]; !ok {
			firstValue[k] = v
		}
		keys = append(keys, k)
	}
	key, _, ok := stats.Mode(keys)
	if !ok {
		return nil, false
	}
	return firstValue[key], true
}

// selectColumns returns the named columns, or every column when names is empty
func selectColumns(ds *model.Dataset, names []string) []model.Column {
	if len(names) == 0 {
		cols := make([]model.Column, len(ds.Columns))
		copy(cols, ds.Columns)
		return cols
	}
	cols := make([]model.Column, 0, len(names))
	for _, name := range names {
		if col, ok := ds.Column(name); ok {
			cols = append(cols, col)
		}
	}
	return cols
}

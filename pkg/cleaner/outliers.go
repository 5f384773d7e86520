package cleaner

import (
	"fmt"
	"math"
	"time"

	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/stats"
)

// OutlierResult describes what HandleOutliers did
type OutlierResult struct {
	// Handled counts clipped or replaced cells per column
	Handled    map[string]int
	Bounds     map[string][2]float64
	Operations []model.CleaningOperation
}

// OutlierOptions configures HandleOutliers
type OutlierOptions struct {
	Method    OutlierMethod
	Threshold float64
	// Columns restricts handling to these columns; empty means every numeric column
	Columns []string
	// Flag adds a boolean <column>_outlier column marking handled rows
	Flag bool
}

// HandleOutliers detects outliers in numeric columns and handles them without dropping
// rows. IQR: values outside [Q1 - t*IQR, Q3 + t*IQR] are clipped to the nearest fence.
// Z-score: values with |x - mean| / std > t are replaced by the column mean; a column with
// zero spread has no outliers. Non-numeric columns are skipped. The input is not modified.
func HandleOutliers(ds *model.Dataset, opts OutlierOptions) (*model.Dataset, OutlierResult, error) {
	result := OutlierResult{
		Handled: make(map[string]int),
		Bounds:  make(map[string][2]float64),
	}

	if err := ds.RequireColumns("handle_outliers", opts.Columns); err != nil {
		return nil, result, err
	}
	if opts.Method == OutlierNone {
		return ds.Clone(), result, nil
	}

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = opts.Method.DefaultThreshold()
	}
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, result, &model.ConfigurationError{
			Option: "outlier_threshold",
			Value:  threshold,
			Reason: "must be positive",
		}
	}

	out := ds.Clone()
	now := time.Now().UTC()

	for _, col := range selectColumns(out, opts.Columns) {
		if col.Type != model.TypeNumeric {
			continue
		}
		values := out.NumericValues(col.Name)
		if len(values) == 0 {
			continue
		}

		var (
			isOutlier   func(x float64) bool
			replacement func(x float64) float64
			op, reason  string
		)

		switch opts.Method {
		case OutlierIQR:
			q1, q3, iqr, err := stats.Quartiles(values)
			if err != nil {
				return nil, result, fmt.Errorf("quartiles of %s: %w", col.Name, err)
			}
			lo, hi := q1-threshold*iqr, q3+threshold*iqr
			result.Bounds[col.Name] = [2]float64{lo, hi}
			isOutlier = func(x float64) bool { return x < lo || x > hi }
			replacement = func(x float64) float64 {
				if x < lo {
					return lo
				}
				return hi
			}
			op, reason = model.OperationOutlierClip, "outside_iqr_fence"

		case OutlierZScore:
			mean, err := stats.Mean(values)
			if err != nil {
				return nil, result, fmt.Errorf("mean of %s: %w", col.Name, err)
			}
			std, err := stats.StdDev(values)
			if err != nil {
				return nil, result, fmt.Errorf("std of %s: %w", col.Name, err)
			}
			if std == 0 {
				continue
			}
			result.Bounds[col.Name] = [2]float64{mean - threshold*std, mean + threshold*std}
			isOutlier = func(x float64) bool { return math.Abs(x-mean)/std > threshold }
			replacement = func(float64) float64 { return mean }
			op, reason = model.OperationOutlierReplace, "zscore_above_threshold"
		}

		var flagged map[int]bool
		if opts.Flag {
			flagged = make(map[int]bool)
		}

		for i, row := range out.Rows {
			x, ok := model.AsFloat(row[col.Name])
			if !ok || !isOutlier(x) {
				continue
			}
			nv := replacement(x)
			row[col.Name] = nv
			result.Handled[col.Name]++
			if flagged != nil {
				flagged[i] = true
			}
			result.Operations = append(result.Operations, model.CleaningOperation{
				DatasetName:       out.Name,
				ColumnName:        col.Name,
				RowIndex:          i,
				OriginalValue:     x,
				NewValue:          nv,
				CleaningOperation: op,
				CleaningReason:    reason,
				CleanedAt:         now,
			})
		}

		flagName := col.Name + "_outlier"
		if flagged != nil && !out.HasColumn(flagName) {
			out.AddColumn(model.Column{Name: flagName, Type: model.TypeBoolean}, col.Name,
				func(i int, _ model.Row) interface{} { return flagged[i] })
		}
	}

	return out, result, nil
}

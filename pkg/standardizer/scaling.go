package standardizer

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/stats"
)

// ScalerParams is a fitted parameter set. It is what gets persisted so later datasets can
// be transformed with exactly the same statistics.
type ScalerParams struct {
	ID     string        `json:"id"`
	Method ScalingMethod `json:"method"`
	// Columns maps column name to its statistics: min/max, mean/std or median/iqr
	Columns map[string]map[string]float64 `json:"per_column"`
	// Encodings holds label encoding categories by column, in code order
	Encodings map[string][]string `json:"encodings,omitempty"`
	FittedAt  time.Time           `json:"fitted_at"`
}

// ColumnNames returns the parameterized columns in sorted order
func (p *ScalerParams) ColumnNames() []string {
	names := make([]string, 0, len(p.Columns))
	for name := range p.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// numericTargets resolves the columns a numeric step applies to. Explicit names must exist
// and be numeric; no names means every numeric column.
func numericTargets(ds *model.Dataset, operation string, columns []string) ([]string, error) {
	if len(columns) == 0 {
		return ds.ColumnsOfType(model.TypeNumeric), nil
	}
	if err := ds.RequireColumns(operation, columns); err != nil {
		return nil, err
	}
	for _, name := range columns {
		col, _ := ds.Column(name)
		if col.Type != model.TypeNumeric {
			return nil, &model.DataShapeError{
				Operation: operation,
				Column:    name,
				Reason:    fmt.Sprintf("expected a numeric column, found %s", col.Type),
			}
		}
	}
	return columns, nil
}

// FitScaler computes per-column statistics for the given numeric columns (all numeric
// columns when none are named). Columns without any non-missing value get no parameters.
func FitScaler(ds *model.Dataset, method ScalingMethod, columns []string) (*ScalerParams, error) {
	targets, err := numericTargets(ds, "fit_scaler", columns)
	if err != nil {
		return nil, err
	}

	params := &ScalerParams{
		ID:       uuid.New().String(),
		Method:   method,
		Columns:  make(map[string]map[string]float64, len(targets)),
		FittedAt: time.Now().UTC(),
	}

	keys := method.statKeys()
	for _, name := range targets {
		values := ds.NumericValues(name)
		if len(values) == 0 {
			continue
		}

		var a, b float64
		switch method {
		case ScaleMinMax:
			a, b, err = stats.MinMax(values)
		case ScaleZScore:
			if a, err = stats.Mean(values); err == nil {
				b, err = stats.StdDev(values)
			}
		case ScaleRobust:
			if a, err = stats.Median(values); err == nil {
				_, _, b, err = stats.Quartiles(values)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("fitting %s scaler on %s: %w", method, name, err)
		}
		params.Columns[name] = map[string]float64{keys[0]: a, keys[1]: b}
	}

	return params, nil
}

// ApplyScaler rescales the target numeric columns (all numeric columns when none are named)
// with previously fitted parameters. Parameter columns absent from the dataset and target
// columns without parameters are reported as warnings and skipped. Missing stays missing.
func ApplyScaler(ds *model.Dataset, params *ScalerParams, columns []string) (*model.Dataset, []model.Warning, error) {
	return transformColumns(ds, params, columns, "apply_scaler", scale)
}

// InverseScaler maps scaled values back onto the original scale. Columns scaled with a
// degenerate spread cannot be recovered and come back as the location statistic.
func InverseScaler(ds *model.Dataset, params *ScalerParams, columns []string) (*model.Dataset, []model.Warning, error) {
	return transformColumns(ds, params, columns, "inverse_scaler", unscale)
}

func transformColumns(
	ds *model.Dataset,
	params *ScalerParams,
	columns []string,
	operation string,
	fn func(method ScalingMethod, x, a, b float64) float64,
) (*model.Dataset, []model.Warning, error) {
	if params == nil {
		return nil, nil, fmt.Errorf("%s: no scaler parameters", operation)
	}
	targets, err := numericTargets(ds, operation, columns)
	if err != nil {
		return nil, nil, err
	}

	var warnings []model.Warning
	for _, name := range params.ColumnNames() {
		if !ds.HasColumn(name) {
			warnings = append(warnings, model.ColumnWarning(model.WarningUnknownParameterColumn, name,
				"parameters reference a column that is not in the dataset; skipped"))
		}
	}

	out := ds.Clone()
	keys := params.Method.statKeys()
	for _, name := range targets {
		colParams, ok := params.Columns[name]
		if !ok {
			warnings = append(warnings, model.ColumnWarning(model.WarningMissingParameters, name,
				"no fitted parameters for column; left unscaled"))
			continue
		}
		a, b := colParams[keys[0]], colParams[keys[1]]
		for _, row := range out.Rows {
			x, ok := model.AsFloat(row[name])
			if !ok {
				continue
			}
			row[name] = fn(params.Method, x, a, b)
		}
	}
	return out, warnings, nil
}

// scale applies one method to a value. a and b are the method's two statistics.
// A zero spread maps every value to 0.
func scale(method ScalingMethod, x, a, b float64) float64 {
	switch method {
	case ScaleMinMax:
		spread := b - a
		if spread == 0 {
			return 0
		}
		return (x - a) / spread
	default:
		// zscore: a=mean b=std; robust: a=median b=iqr
		if b == 0 {
			return 0
		}
		return (x - a) / b
	}
}

func unscale(method ScalingMethod, x, a, b float64) float64 {
	switch method {
	case ScaleMinMax:
		return x*(b-a) + a
	default:
		return x*b + a
	}
}

// Package standardizer rescales numeric columns, rewrites dates in one format and encodes
// categorical columns. Fitted parameters can be persisted and replayed on later datasets.
package standardizer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

// Standardizer applies scaling, date formatting and encoding, in that order.
//
// Without stored parameters each call fits new ones (fit-and-transform) and returns them in
// the report. After UseParams or one of the Load methods, every call replays the stored
// parameters (transform-only).
type Standardizer struct {
	config Config
	logger *zap.Logger
	params *ScalerParams
}

// New creates a Standardizer in fit-and-transform mode
func New(cfg Config, logger *zap.Logger) *Standardizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Standardizer{
		config: cfg,
		logger: logger.Named("standardizer"),
	}
}

// UseParams switches the standardizer to transform-only mode with the given parameters
func (s *Standardizer) UseParams(params *ScalerParams) {
	s.params = params
}

// Params returns the stored parameters, or nil in fit-and-transform mode
func (s *Standardizer) Params() *ScalerParams {
	return s.params
}

// LoadParams reads stored parameters from r and switches to transform-only mode
func (s *Standardizer) LoadParams(r io.Reader) error {
	params, err := LoadParams(r)
	if err != nil {
		return err
	}
	s.UseParams(params)
	return nil
}

// LoadParamsFile reads stored parameters from a file and switches to transform-only mode
func (s *Standardizer) LoadParamsFile(path string) error {
	params, err := LoadParamsFile(path)
	if err != nil {
		return err
	}
	s.UseParams(params)
	s.logger.Info("Loaded scaler parameters", zap.String("path", path), zap.String("id", params.ID))
	return nil
}

// LoadFrom reads stored parameters from a ParamStore and switches to transform-only mode
func (s *Standardizer) LoadFrom(ctx context.Context, store ParamStore, name string) error {
	params, err := store.LoadParams(ctx, name)
	if err != nil {
		return err
	}
	s.UseParams(params)
	return nil
}

// Standardize runs every enabled step over a copy of ds. The returned report carries the
// parameters used, fitted or stored. If a step fails, the dataset produced by the last
// completed step is returned with the error.
func (s *Standardizer) Standardize(ds *model.Dataset) (*model.Dataset, *StandardizationReport, error) {
	if ds == nil {
		return nil, nil, &model.DataShapeError{Operation: "standardize", Reason: "nil dataset"}
	}

	report := &StandardizationReport{
		Dataset:          ds.Name,
		Mode:             ModeFit,
		UnparseableDates: make(map[string]int),
		Encodings:        make(map[string]*LabelEncoding),
		Indicators:       make(map[string][]string),
	}

	params := s.params
	if params != nil {
		report.Mode = ModeTransform
	} else {
		params = &ScalerParams{
			ID:       uuid.New().String(),
			Method:   s.config.Method,
			Columns:  make(map[string]map[string]float64),
			FittedAt: time.Now().UTC(),
		}
	}
	report.Params = params

	current := ds.Clone()
	textBefore := current.ColumnsOfType(model.TypeText)

	s.logger.Info("Starting data standardization",
		zap.String("dataset", ds.Name),
		zap.String("mode", string(report.Mode)),
		zap.Int("rows", ds.Len()))

	if s.config.NormalizeNumerical {
		if report.Mode == ModeFit {
			fitted, err := FitScaler(current, s.config.Method, s.config.NumericColumns)
			if err != nil {
				return current, report, fmt.Errorf("fitting scaler: %w", err)
			}
			fitted.Encodings = params.Encodings
			params = fitted
			report.Params = params
		} else if params.Method != s.config.Method {
			report.Warnings = append(report.Warnings, model.Warning{
				Code:    model.WarningMethodMismatch,
				Row:     -1,
				Message: fmt.Sprintf("configured %s but stored parameters use %s; using stored", s.config.Method, params.Method),
			})
		}

		out, warnings, err := ApplyScaler(current, params, s.config.NumericColumns)
		if err != nil {
			return current, report, fmt.Errorf("applying scaler: %w", err)
		}
		current = out
		report.Warnings = append(report.Warnings, warnings...)
		for _, name := range current.ColumnNames() {
			if _, ok := params.Columns[name]; ok {
				report.ColumnsNormalized = append(report.ColumnsNormalized, name)
			}
		}
		s.logger.Info("Normalized numeric columns",
			zap.Stringer("method", params.Method),
			zap.Strings("columns", report.ColumnsNormalized))
	}

	dateColumns := make(map[string]bool)
	if s.config.StandardizeDates {
		out, res, err := StandardizeDates(current, s.config.DateFormat, s.config.DateColumns)
		if err != nil {
			return current, report, fmt.Errorf("standardizing dates: %w", err)
		}
		current = out
		report.DatesStandardized = res.Standardized
		report.UnparseableDates = res.Unparseable
		report.Warnings = append(report.Warnings, res.Warnings...)
		for _, name := range res.Standardized {
			dateColumns[name] = true
		}
		s.logger.Info("Standardized date columns",
			zap.Stringer("format", s.config.DateFormat),
			zap.Strings("columns", res.Standardized),
			zap.Int("unparseable", len(res.Warnings)))
	}

	if s.config.EncodeCategorical {
		targets := s.config.CategoricalColumns
		if len(targets) == 0 {
			for _, name := range textBefore {
				if col, ok := current.Column(name); ok && col.Type == model.TypeText && !dateColumns[name] {
					targets = append(targets, name)
				}
			}
		}

		known := make(map[string]*LabelEncoding)
		if report.Mode == ModeTransform {
			for col, categories := range params.Encodings {
				known[col] = NewLabelEncoding(col, categories)
			}
		}

		if len(targets) > 0 {
			out, res, err := EncodeCategorical(current, s.config.Encoding, targets, known)
			if err != nil {
				return current, report, fmt.Errorf("encoding categorical columns: %w", err)
			}
			current = out
			report.ColumnsEncoded = res.Encoded
			report.Encodings = res.Encodings
			report.Indicators = res.Indicators
			report.Warnings = append(report.Warnings, res.Warnings...)

			if report.Mode == ModeFit {
				params.Encodings = make(map[string][]string, len(res.Encodings))
				for col, enc := range res.Encodings {
					params.Encodings[col] = enc.Categories
				}
			}
		}
		s.logger.Info("Encoded categorical columns",
			zap.Stringer("method", s.config.Encoding),
			zap.Strings("columns", report.ColumnsEncoded))
	}

	for _, w := range report.Warnings {
		s.logger.Warn("Unresolved values",
			zap.String("code", string(w.Code)),
			zap.String("column", w.Column),
			zap.Int("row", w.Row))
	}
	s.logger.Info("Standardization completed",
		zap.String("dataset", ds.Name),
		zap.Int("columns", len(current.Columns)))

	return current, report, nil
}

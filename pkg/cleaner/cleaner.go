// pkg/cleaner/cleaner.go
package cleaner

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

// Cleaner applies the configured cleaning steps to whole datasets.
// Steps always run in the same order: duplicates, missing values, outliers, type
// correction, categorical text.
type Cleaner struct {
	config Config
	logger *zap.Logger
}

// New creates a Cleaner. The configuration is copied and never changes afterwards.
func New(cfg Config, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		config: cfg,
		logger: logger.Named("cleaner"),
	}
}

// Config returns the cleaner's configuration
func (c *Cleaner) Config() Config {
	return c.config
}

// Clean runs every enabled step over a copy of ds and returns the cleaned dataset with a
// report. The input is never modified. If a step fails, Clean returns the dataset produced
// by the last completed step, the report so far, and the error.
func (c *Cleaner) Clean(ds *model.Dataset) (*model.Dataset, *CleaningReport, error) {
	if ds == nil {
		return nil, nil, &model.DataShapeError{Operation: "clean", Reason: "nil dataset"}
	}

	report := newCleaningReport(ds)
	current := ds.Clone()

	if ds.IsEmpty() {
		c.logger.Info("Dataset is empty, nothing to clean", zap.String("dataset", ds.Name))
		return current, report, nil
	}

	if err := ds.Validate(); err != nil {
		return current, report, err
	}
	if err := ds.RequireColumns("clean", c.config.Columns); err != nil {
		return current, report, err
	}

	c.logger.Info("Starting data cleaning",
		zap.String("dataset", ds.Name),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Columns)),
		zap.Int("missing", report.MissingBefore))

	// origin maps each row of current to its position in ds
	origin := identity(ds.Len())

	if c.config.RemoveDuplicates {
		out, removed := removeDuplicates(current)
		current = out
		report.DuplicatesRemoved = len(removed)
		c.track(report, origin, duplicateOperations(ds.Name, removed))
		origin = dropPositions(origin, removed)
		c.logger.Info("Removed duplicate rows", zap.Int("count", len(removed)))
	}

	if c.config.HandleMissing {
		out, res, err := HandleMissingValues(current, c.config.MissingStrategy, c.config.AutoDropThreshold, c.config.Columns)
		if err != nil {
			return current, c.finish(report, current), fmt.Errorf("handling missing values: %w", err)
		}
		current = out
		report.RowsDropped = res.RowsDropped
		report.ImputedValues = res.Imputed
		report.Warnings = append(report.Warnings, res.Warnings...)
		c.track(report, origin, res.Operations)
		origin = compose(origin, res.Kept)
		c.logger.Info("Handled missing values",
			zap.Stringer("strategy", c.config.MissingStrategy),
			zap.Int("imputed", report.TotalImputed()),
			zap.Int("rows_dropped", res.RowsDropped),
			zap.Int("warnings", len(res.Warnings)))
	}

	if c.config.OutlierMethod != OutlierNone {
		out, res, err := HandleOutliers(current, OutlierOptions{
			Method:    c.config.OutlierMethod,
			Threshold: c.config.OutlierThreshold,
			Columns:   c.config.Columns,
			Flag:      c.config.FlagOutliers,
		})
		if err != nil {
			return current, c.finish(report, current), fmt.Errorf("handling outliers: %w", err)
		}
		current = out
		report.OutliersHandled = res.Handled
		c.track(report, origin, res.Operations)
		c.logger.Info("Handled outliers",
			zap.Stringer("method", c.config.OutlierMethod),
			zap.Float64("threshold", c.config.OutlierThreshold),
			zap.Int("count", report.TotalOutliers()))
	}

	if c.config.CorrectTypes {
		out, res := CorrectTypes(current, c.config.TypeInferenceThreshold, c.logger)
		current = out
		report.TypeCorrections = res.Corrections
		c.track(report, origin, res.Operations)
		c.logger.Info("Corrected column types", zap.Int("columns", len(res.Corrections)))
	}

	if c.config.StandardizeCategorical {
		out, res := StandardizeCategorical(current, c.config.Dictionary)
		current = out
		report.CategoricalChanged = res.Changed
		report.DisplayForms = res.DisplayForms
		c.track(report, origin, res.Operations)
		c.logger.Debug("Standardized categorical columns", zap.Int("columns", len(res.Changed)))
	}

	c.finish(report, current)

	for _, w := range report.Warnings {
		c.logger.Warn("Unresolved values",
			zap.String("code", string(w.Code)),
			zap.String("column", w.Column),
			zap.String("message", w.Message))
	}
	c.logger.Info("Cleaning completed",
		zap.String("dataset", ds.Name),
		zap.Int("rows_in", report.RowsIn),
		zap.Int("rows_out", report.RowsOut))

	return current, report, nil
}

// track records a step's operations with row indexes translated to positions in the
// dataset passed to Clean
func (c *Cleaner) track(report *CleaningReport, origin []int, ops []model.CleaningOperation) {
	if !c.config.TrackOperations {
		return
	}
	for _, op := range ops {
		if op.RowIndex >= 0 && op.RowIndex < len(origin) {
			op.RowIndex = origin[op.RowIndex]
		}
		report.Operations = append(report.Operations, op)
	}
}

func identity(n int) []int {
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	return positions
}

// dropPositions removes the given sorted indexes from origin
func dropPositions(origin []int, removed []int) []int {
	kept := make([]int, 0, len(origin)-len(removed))
	j := 0
	for i, pos := range origin {
		if j < len(removed) && removed[j] == i {
			j++
			continue
		}
		kept = append(kept, pos)
	}
	return kept
}

// compose maps a step's kept input positions through origin
func compose(origin []int, kept []int) []int {
	out := make([]int, len(kept))
	for i, k := range kept {
		out[i] = origin[k]
	}
	return out
}

func (c *Cleaner) finish(report *CleaningReport, current *model.Dataset) *CleaningReport {
	report.RowsOut = current.Len()
	report.MissingAfter = current.TotalMissing()
	return report
}

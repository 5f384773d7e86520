// Package pipeline runs datasets through load, clean, standardize, write and audit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/David-Botos/data-cleaning/pkg/cleaner"
	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/standardizer"
	"github.com/David-Botos/data-cleaning/pkg/storage"
)

// Auditor persists cleaning operations and run summaries
type Auditor interface {
	RecordCleaningOperations(ctx context.Context, runID, schema string, operations []model.CleaningOperation) error
	RecordRun(ctx context.Context, rec storage.RunRecord) error
}

// RunnerConfig holds everything a Runner needs besides its jobs
type RunnerConfig struct {
	Cleaning        cleaner.Config
	Standardization standardizer.Config

	// Params stores fitted scaler parameters. When set, a job replays the parameters saved
	// under its ParamsName and fits and saves new ones only when none exist. Nil always fits.
	Params standardizer.ParamStore
	Refit  bool

	Audit       Auditor
	AuditSchema string

	Workers    int
	RetryDelay time.Duration
}

// Runner executes jobs
type Runner struct {
	cfg     RunnerConfig
	cleaner *cleaner.Cleaner
	errors  *ErrorHandler
	metrics *RunMetrics
	logger  *zap.Logger
}

// NewRunner creates a runner. A nil metrics gets a fresh RunMetrics.
func NewRunner(cfg RunnerConfig, metrics *RunMetrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("pipeline")
	if metrics == nil {
		metrics = NewRunMetrics(logger)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Runner{
		cfg:     cfg,
		cleaner: cleaner.New(cfg.Cleaning, logger),
		errors:  NewErrorHandler(logger),
		metrics: metrics,
		logger:  logger,
	}
}

// Metrics returns the runner's metrics
func (r *Runner) Metrics() *RunMetrics {
	return r.metrics
}

// Errors returns the runner's error handler
func (r *Runner) Errors() *ErrorHandler {
	return r.errors
}

// Run processes one job. The result is always returned; the error is non-nil when the
// dataset was not written.
func (r *Runner) Run(ctx context.Context, job Job) (*RunResult, error) {
	result := &RunResult{
		JobID:     job.ID,
		Dataset:   job.Source.Name(),
		Source:    job.Source.Describe(),
		Sink:      job.Sink.Describe(),
		StartTime: time.Now(),
	}
	logger := r.logger.With(zap.String("job", job.ID), zap.String("dataset", result.Dataset))
	logger.Info("Starting job", zap.String("source", result.Source), zap.String("sink", result.Sink))

	err := r.run(ctx, &job, result, logger)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Retries = job.RetryCount
	if err != nil {
		result.Status = StatusFailed
	} else {
		result.Status = StatusSucceeded
	}

	r.recordRun(ctx, job, result, logger)
	r.metrics.RecordResult(result)

	if err != nil {
		return result, err
	}
	logger.Info("Completed job",
		zap.Int("rowsRead", result.RowsRead),
		zap.Int64("rowsWritten", result.RowsWritten),
		zap.Int("warnings", result.WarningCount()),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (r *Runner) run(ctx context.Context, job *Job, result *RunResult, logger *zap.Logger) error {
	var ds *model.Dataset
	err := r.withRetry(ctx, job, "load", logger, func() error {
		var err error
		ds, err = job.Source.Load(ctx)
		return err
	})
	if err != nil {
		return r.fail(result, "load", err)
	}
	result.RowsRead = ds.Len()

	cleaned, cleaningReport, err := r.cleaner.Clean(ds)
	result.Cleaning = cleaningReport
	if err != nil {
		return r.fail(result, "clean", err)
	}

	out, stdReport, err := r.standardize(ctx, *job, cleaned, logger)
	result.Standardization = stdReport
	if err != nil {
		return r.fail(result, "standardize", err)
	}

	if err := ctx.Err(); err != nil {
		return r.fail(result, "write", err)
	}
	err = r.withRetry(ctx, job, "write", logger, func() error {
		n, err := job.Sink.Write(ctx, out)
		result.RowsWritten = n
		return err
	})
	if err != nil {
		return r.fail(result, "write", err)
	}

	if r.cfg.Audit != nil && len(cleaningReport.Operations) > 0 {
		if err := r.cfg.Audit.RecordCleaningOperations(ctx, job.ID, r.cfg.AuditSchema, cleaningReport.Operations); err != nil {
			// The data is already written; a lost audit trail is logged, not fatal.
			r.errors.RecordError(NewErrorRecord(err, r.errors.CategorizeError(err)).
				WithStage("audit").WithDataset(result.Dataset))
			logger.Warn("Failed to record cleaning operations", zap.Error(err))
		}
	}
	return nil
}

// standardize replays stored parameters when the store has them, otherwise fits new ones
// and saves them
func (r *Runner) standardize(ctx context.Context, job Job, ds *model.Dataset, logger *zap.Logger) (*model.Dataset, *standardizer.StandardizationReport, error) {
	std := standardizer.New(r.cfg.Standardization, logger)
	store := r.cfg.Params

	if store != nil && !r.cfg.Refit {
		err := std.LoadFrom(ctx, store, job.ParamsName)
		switch {
		case err == nil:
			logger.Info("Using stored scaler parameters",
				zap.String("name", job.ParamsName),
				zap.String("id", std.Params().ID))
		case errors.Is(err, standardizer.ErrParamsNotFound):
			logger.Info("No stored scaler parameters, fitting", zap.String("name", job.ParamsName))
		default:
			return nil, nil, fmt.Errorf("loading scaler parameters %s: %w", job.ParamsName, err)
		}
	}

	out, report, err := std.Standardize(ds)
	if err != nil {
		return nil, report, err
	}

	if store != nil && report.Mode == standardizer.ModeFit && report.Params != nil {
		if err := store.SaveParams(ctx, job.ParamsName, report.Params); err != nil {
			return nil, report, fmt.Errorf("saving scaler parameters %s: %w", job.ParamsName, err)
		}
		logger.Info("Saved scaler parameters",
			zap.String("name", job.ParamsName),
			zap.String("id", report.Params.ID),
			zap.Strings("columns", report.Params.ColumnNames()))
	}
	return out, report, nil
}

// withRetry retries fn while its error is transient and the job has retries left
func (r *Runner) withRetry(ctx context.Context, job *Job, stage string, logger *zap.Logger, fn func() error) error {
	for {
		err := fn()
		if err == nil || !IsRetryable(err) || !job.IsRetryable() {
			return err
		}
		*job = job.Retry()
		logger.Warn("Retrying after transient error",
			zap.String("stage", stage),
			zap.Int("attempt", job.RetryCount),
			zap.Int("maxRetries", job.MaxRetries),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.RetryDelay * time.Duration(job.RetryCount)):
		}
	}
}

func (r *Runner) fail(result *RunResult, stage string, err error) error {
	record := NewErrorRecord(err, r.errors.CategorizeError(err)).
		WithStage(stage).
		WithDataset(result.Dataset)
	action := r.errors.HandleError(record)
	r.metrics.RecordError(record.Category)

	result.Errors = append(result.Errors, record)
	result.Action = action.String()
	return fmt.Errorf("%s %s: %w", stage, result.Dataset, err)
}

// recordRun writes the run summary to the auditor, if any
func (r *Runner) recordRun(ctx context.Context, job Job, result *RunResult, logger *zap.Logger) {
	if r.cfg.Audit == nil {
		return
	}
	// A cancelled run still gets its summary row.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}

	rowsOut := 0
	if result.Status == StatusSucceeded {
		rowsOut = int(result.RowsWritten)
	}
	rec, err := storage.NewRunRecord(job.ID, result.Dataset, result.Source, result.Sink,
		string(result.Status), result.RowsRead, rowsOut, result.StartTime, result.EndTime, result)
	if err == nil {
		err = r.cfg.Audit.RecordRun(ctx, rec)
	}
	if err != nil {
		logger.Warn("Failed to record run", zap.Error(err))
	}
}

// RunAll processes jobs concurrently, at most Workers at a time. Results keep the order of
// jobs. A dataset-level failure skips that dataset only; a configuration error or
// cancellation aborts the batch, and jobs not yet started are reported as skipped.
func (r *Runner) RunAll(ctx context.Context, jobs []Job) ([]*RunResult, error) {
	results := make([]*RunResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	r.logger.Info("Starting batch", zap.Int("jobs", len(jobs)), zap.Int("workers", r.cfg.Workers))

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = r.skipped(job, err)
				return nil
			}
			result, err := r.Run(gctx, job)
			results[i] = result
			if err != nil && result.Action == ActionAbort.String() {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	r.metrics.Complete()

	if err != nil {
		r.logger.Error("Batch aborted", zap.Error(err))
		return results, err
	}
	r.logger.Info("Batch completed", zap.Duration("duration", r.metrics.Duration()))
	return results, nil
}

func (r *Runner) skipped(job Job, cause error) *RunResult {
	now := time.Now()
	result := &RunResult{
		JobID:     job.ID,
		Dataset:   job.Source.Name(),
		Source:    job.Source.Describe(),
		Sink:      job.Sink.Describe(),
		Status:    StatusSkipped,
		Action:    ActionAbort.String(),
		StartTime: now,
		EndTime:   now,
		Errors: []ErrorRecord{
			NewErrorRecord(cause, ErrorCategoryCancelled).WithStage("queue").WithDataset(job.Source.Name()),
		},
	}
	r.metrics.RecordResult(result)
	return result
}

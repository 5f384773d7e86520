package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/David-Botos/data-cleaning/pkg/cleaner"
	"github.com/David-Botos/data-cleaning/pkg/standardizer"
)

// Job represents one dataset moving from a source to a sink
type Job struct {
	ID         string    // Unique job identifier, also used as the audit run id
	Source     Source    // Where the raw dataset comes from
	Sink       Sink      // Where the standardized dataset goes
	ParamsName string    // Name of the stored scaler parameters, defaults to the dataset name
	CreatedAt  time.Time // Job creation timestamp
	RetryCount int       // Number of retries attempted
	MaxRetries int       // Maximum allowed retries for IO failures
}

// NewJob creates a new job with defaults
func NewJob(source Source, sink Sink) Job {
	return Job{
		ID:         uuid.New().String(),
		Source:     source,
		Sink:       sink,
		ParamsName: source.Name(),
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}
}

// WithParamsName sets the parameter set name and returns the modified job
func (j Job) WithParamsName(name string) Job {
	j.ParamsName = name
	return j
}

// WithMaxRetries sets the maximum retry count and returns the modified job
func (j Job) WithMaxRetries(maxRetries int) Job {
	j.MaxRetries = maxRetries
	return j
}

// IsRetryable checks if the job can be retried
func (j Job) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

// Retry increments the retry count and returns the modified job
func (j Job) Retry() Job {
	j.RetryCount++
	return j
}

// String returns a string representation of the job
func (j Job) String() string {
	return fmt.Sprintf("Job[%s]: %s -> %s", j.ID, j.Source.Describe(), j.Sink.Describe())
}

// Status is the outcome of a job
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// RunResult contains the result of a job
type RunResult struct {
	JobID           string                              `json:"job_id"`
	Dataset         string                              `json:"dataset"`
	Source          string                              `json:"source"`
	Sink            string                              `json:"sink"`
	Status          Status                              `json:"status"`
	Action          string                              `json:"action,omitempty"`
	RowsRead        int                                 `json:"rows_read"`
	RowsWritten     int64                               `json:"rows_written"`
	Cleaning        *cleaner.CleaningReport             `json:"cleaning,omitempty"`
	Standardization *standardizer.StandardizationReport `json:"standardization,omitempty"`
	Errors          []ErrorRecord                       `json:"errors,omitempty"`
	StartTime       time.Time                           `json:"start_time"`
	EndTime         time.Time                           `json:"end_time"`
	Duration        time.Duration                       `json:"duration"`
	Retries         int                                 `json:"retries"`
}

// Err returns the last recorded error, or nil
func (r *RunResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[len(r.Errors)-1].Error
}

// WarningCount totals cleaning and standardization warnings
func (r *RunResult) WarningCount() int {
	n := 0
	if r.Cleaning != nil {
		n += len(r.Cleaning.Warnings)
	}
	if r.Standardization != nil {
		n += len(r.Standardization.Warnings)
	}
	return n
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/standardizer"
	"github.com/David-Botos/data-cleaning/pkg/storage"
)

// Action defines the recommended action after an error
type Action int

const (
	// ActionContinue indicates processing should continue despite the error
	ActionContinue Action = iota
	// ActionSkipDataset indicates the current dataset should be skipped
	ActionSkipDataset
	// ActionAbort indicates the entire run should be aborted
	ActionAbort
)

// String returns a string representation of the action
func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionSkipDataset:
		return "skip_dataset"
	case ActionAbort:
		return "abort"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// ErrorCategory defines categories of errors during a run
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryWarning
	ErrorCategoryDataShape
	ErrorCategoryIO
	ErrorCategoryConfiguration
	ErrorCategoryCancelled
	ErrorCategoryUnknown
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryWarning:
		return "Warning"
	case ErrorCategoryDataShape:
		return "DataShape"
	case ErrorCategoryIO:
		return "IO"
	case ErrorCategoryConfiguration:
		return "Configuration"
	case ErrorCategoryCancelled:
		return "Cancelled"
	case ErrorCategoryUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// ErrorRecord represents a single error during a run
type ErrorRecord struct {
	Category  ErrorCategory `json:"category"`
	Stage     string        `json:"stage"`
	Dataset   string        `json:"dataset"`
	Column    string        `json:"column,omitempty"`
	Error     error         `json:"-"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

// MarshalText lets categories appear by name in JSON
func (ec ErrorCategory) MarshalText() ([]byte, error) {
	return []byte(ec.String()), nil
}

// NewErrorRecord creates a new error record with current timestamp
func NewErrorRecord(err error, category ErrorCategory) ErrorRecord {
	record := ErrorRecord{
		Category:  category,
		Error:     err,
		Timestamp: time.Now(),
	}

	if err != nil {
		record.Message = err.Error()
	}

	var shape *model.DataShapeError
	if errors.As(err, &shape) {
		record.Column = shape.Column
	}

	return record
}

// WithStage names the pipeline stage the error came from
func (r ErrorRecord) WithStage(stage string) ErrorRecord {
	r.Stage = stage
	return r
}

// WithDataset adds dataset information to the error record
func (r ErrorRecord) WithDataset(name string) ErrorRecord {
	r.Dataset = name
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))

	if r.Dataset != "" {
		sb.WriteString(fmt.Sprintf("Dataset: %s ", r.Dataset))
	}
	if r.Stage != "" {
		sb.WriteString(fmt.Sprintf("Stage: %s ", r.Stage))
	}
	if r.Column != "" {
		sb.WriteString(fmt.Sprintf("Column: %s ", r.Column))
	}
	sb.WriteString("Error: " + r.Message)

	return sb.String()
}

// ErrorHandler classifies errors and decides what a run does next
type ErrorHandler struct {
	logger       *zap.Logger
	mu           sync.Mutex
	errorCounts  map[ErrorCategory]int
	sampleErrors map[ErrorCategory][]ErrorRecord
	maxSamples   int
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		logger:       logger,
		errorCounts:  make(map[ErrorCategory]int),
		sampleErrors: make(map[ErrorCategory][]ErrorRecord),
		maxSamples:   5,
	}
}

// CategorizeError determines the category of an error from its type
func (eh *ErrorHandler) CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	var (
		warning model.Warning
		pathErr *fs.PathError
		netErr  net.Error
	)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryCancelled
	case errors.Is(err, model.ErrConfiguration):
		return ErrorCategoryConfiguration
	case errors.Is(err, model.ErrDataShape):
		return ErrorCategoryDataShape
	case errors.As(err, &warning):
		return ErrorCategoryWarning
	case errors.As(err, &pathErr),
		errors.As(err, &netErr),
		errors.Is(err, storage.ErrTableNotFound),
		errors.Is(err, standardizer.ErrParamsNotFound):
		return ErrorCategoryIO
	default:
		return ErrorCategoryUnknown
	}
}

// HandleError records an error and determines the action
func (eh *ErrorHandler) HandleError(record ErrorRecord) Action {
	eh.RecordError(record)

	switch record.Category {
	case ErrorCategoryNone, ErrorCategoryWarning:
		return ActionContinue

	case ErrorCategoryDataShape, ErrorCategoryIO, ErrorCategoryUnknown:
		eh.logger.Warn("Skipping dataset",
			zap.String("dataset", record.Dataset),
			zap.String("stage", record.Stage),
			zap.String("category", record.Category.String()),
			zap.String("error", record.Message))
		return ActionSkipDataset

	case ErrorCategoryConfiguration, ErrorCategoryCancelled:
		eh.logger.Error("Aborting run",
			zap.String("dataset", record.Dataset),
			zap.String("category", record.Category.String()),
			zap.String("error", record.Message))
		return ActionAbort

	default:
		return ActionContinue
	}
}

// RecordError counts an error and keeps a few samples per category
func (eh *ErrorHandler) RecordError(record ErrorRecord) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	eh.errorCounts[record.Category]++
	if len(eh.sampleErrors[record.Category]) < eh.maxSamples {
		eh.sampleErrors[record.Category] = append(eh.sampleErrors[record.Category], record)
	}
}

// ErrorCounts returns a copy of the per-category counts
func (eh *ErrorHandler) ErrorCounts() map[ErrorCategory]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	counts := make(map[ErrorCategory]int, len(eh.errorCounts))
	for k, v := range eh.errorCounts {
		counts[k] = v
	}
	return counts
}

// SampleErrors returns the recorded samples for a category
func (eh *ErrorHandler) SampleErrors(category ErrorCategory) []ErrorRecord {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	return append([]ErrorRecord(nil), eh.sampleErrors[category]...)
}

// IsRetryable reports whether an error is worth another attempt. Missing files, tables
// and parameter sets will not appear on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, storage.ErrTableNotFound) ||
		errors.Is(err, standardizer.ErrParamsNotFound) ||
		errors.Is(err, model.ErrConfiguration) ||
		errors.Is(err, model.ErrDataShape) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}

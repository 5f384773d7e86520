package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/storage"
)

func TestCategorizeError(t *testing.T) {
	eh := NewErrorHandler(nil)

	for name, tc := range map[string]struct {
		err  error
		want ErrorCategory
	}{
		"nil":           {nil, ErrorCategoryNone},
		"configuration": {fmt.Errorf("wrapped: %w", &model.ConfigurationError{Option: "x"}), ErrorCategoryConfiguration},
		"shape":         {&model.DataShapeError{Operation: "clean", Column: "age"}, ErrorCategoryDataShape},
		"warning":       {model.ColumnWarning(model.WarningEntirelyMissing, "a", "all missing"), ErrorCategoryWarning},
		"path":          {&fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, ErrorCategoryIO},
		"table":         {fmt.Errorf("read: %w", storage.ErrTableNotFound), ErrorCategoryIO},
		"network":       {&net.OpError{Op: "dial", Err: errors.New("refused")}, ErrorCategoryIO},
		"cancelled":     {context.Canceled, ErrorCategoryCancelled},
		"other":         {errors.New("boom"), ErrorCategoryUnknown},
	} {
		assert.Equal(t, tc.want, eh.CategorizeError(tc.err), name)
	}
}

func TestHandleErrorActions(t *testing.T) {
	eh := NewErrorHandler(nil)

	assert.Equal(t, ActionContinue, eh.HandleError(NewErrorRecord(nil, ErrorCategoryWarning)))
	assert.Equal(t, ActionSkipDataset, eh.HandleError(NewErrorRecord(errors.New("x"), ErrorCategoryIO)))
	assert.Equal(t, ActionAbort, eh.HandleError(NewErrorRecord(errors.New("x"), ErrorCategoryConfiguration)))

	counts := eh.ErrorCounts()
	assert.Equal(t, 1, counts[ErrorCategoryIO])
	assert.Len(t, eh.SampleErrors(ErrorCategoryConfiguration), 1)
}

func TestErrorRecordCarriesColumn(t *testing.T) {
	record := NewErrorRecord(&model.DataShapeError{Operation: "scale", Column: "age", Reason: "not numeric"}, ErrorCategoryDataShape).
		WithStage("standardize").
		WithDataset("visits")

	assert.Equal(t, "age", record.Column)
	assert.Contains(t, record.String(), "Dataset: visits")
	assert.Contains(t, record.String(), "Column: age")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.True(t, IsRetryable(&fs.PathError{Op: "write", Path: "x", Err: errors.New("device busy")}))
	assert.False(t, IsRetryable(&fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}))
	assert.False(t, IsRetryable(storage.ErrTableNotFound))
	assert.False(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}

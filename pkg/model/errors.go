// pkg/model/errors.go
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every ConfigurationError via errors.Is
	ErrConfiguration = errors.New("configuration error")
	// ErrDataShape matches every DataShapeError via errors.Is
	ErrDataShape = errors.New("data shape error")
)

// ConfigurationError reports an unknown strategy or method name, or an invalid threshold.
// It is raised before any row is processed.
type ConfigurationError struct {
	Option string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s=%v: %s", e.Option, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) true
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// DataShapeError reports a dataset that does not fit the requested operation,
// such as a requested column that is absent.
type DataShapeError struct {
	Operation string
	Column    string
	Reason    string
}

func (e *DataShapeError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: column %q: %s", e.Operation, e.Column, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
}

// Is makes errors.Is(err, ErrDataShape) true
func (e *DataShapeError) Is(target error) bool {
	return target == ErrDataShape
}

// WarningCode classifies a non-fatal unresolved value
type WarningCode string

const (
	WarningEntirelyMissing        WarningCode = "entirely_missing"
	WarningStrategyNotApplicable  WarningCode = "strategy_not_applicable"
	WarningUnparseableDate        WarningCode = "unparseable_date"
	WarningMissingParameters      WarningCode = "missing_parameters"
	WarningUnknownParameterColumn WarningCode = "unknown_parameter_column"
	WarningMethodMismatch         WarningCode = "method_mismatch"
	WarningUnknownCategory        WarningCode = "unknown_category"
)

// Warning is an unresolved value recorded in a run report. Processing continues and the
// value is left as it was.
type Warning struct {
	Code    WarningCode `json:"code"`
	Column  string      `json:"column,omitempty"`
	Row     int         `json:"row"` // -1 for column-level warnings
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
}

// Error lets a Warning travel as an error value when a caller wants one
func (w Warning) Error() string {
	if w.Row >= 0 {
		return fmt.Sprintf("%s: column %q row %d: %s", w.Code, w.Column, w.Row, w.Message)
	}
	if w.Column != "" {
		return fmt.Sprintf("%s: column %q: %s", w.Code, w.Column, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// ColumnWarning builds a column-level warning
func ColumnWarning(code WarningCode, column, message string) Warning {
	return Warning{Code: code, Column: column, Row: -1, Message: message}
}

// pkg/model/cleaning.go
package model

import (
	"time"
)

// Cleaning operation names recorded in the audit trail
const (
	OperationImputation       = "imputation"
	OperationRowDrop          = "row_drop"
	OperationDuplicateRemoval = "duplicate_removal"
	OperationOutlierClip      = "outlier_clip"
	OperationOutlierReplace   = "outlier_mean_replace"
	OperationTypeCorrection   = "type_correction"
	OperationCategorical      = "categorical_standardization"
)

// CleaningOperation represents a single data cleaning operation
type CleaningOperation struct {
	DatasetName       string      // Dataset or table the row belongs to
	ColumnName        string      // Column that was cleaned, empty for row-level operations
	RowIndex          int         // Position of the row in the dataset given to Clean, or to the step when called alone
	OriginalValue     interface{} // Original value (may be nil)
	NewValue          interface{} // New value after cleaning (nil for drops)
	CleaningOperation string      // Type of cleaning performed (e.g., "imputation")
	CleaningReason    string      // Reason for cleaning (e.g., "median_fill")
	CleanedAt         time.Time   // When the cleaning occurred
}

package cleaner

import (
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/converter"
	"github.com/David-Botos/data-cleaning/pkg/model"
)

// TypeResult describes what CorrectTypes did
type TypeResult struct {
	// Corrections maps each retyped column to its new type
	Corrections map[string]model.ColumnType
	Operations  []model.CleaningOperation
}

// CorrectTypes retypes text columns whose non-missing values parse as numbers, dates or
// booleans (tried in that order). A column is retyped when at least threshold of its
// non-missing values parse; with a threshold below 1 the values that do not parse become
// missing. Entirely missing columns are left alone. The input is not modified.
func CorrectTypes(ds *model.Dataset, threshold float64, logger *zap.Logger) (*model.Dataset, TypeResult) {
	cfg := converter.DefaultConfig()
	cfg.InferenceThreshold = threshold
	tc := converter.NewTypeConverterWithConfig(logger, cfg)

	out, corrections := tc.InferTypes(ds)

	result := TypeResult{Corrections: make(map[string]model.ColumnType, len(corrections))}
	now := time.Now().UTC()
	for _, c := range corrections {
		result.Corrections[c.Column] = c.To
		for j, idx := range c.Nullified {
			result.Operations = append(result.Operations, model.CleaningOperation{
				DatasetName:       out.Name,
				ColumnName:        c.Column,
				RowIndex:          idx,
				OriginalValue:     c.Originals[j],
				CleaningOperation: model.OperationTypeCorrection,
				CleaningReason:    "unparseable_as_" + c.To.String(),
				CleanedAt:         now,
			})
		}
	}
	return out, result
}

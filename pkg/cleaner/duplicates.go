package cleaner

import (
	"time"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

// RemoveDuplicates drops every row whose values equal an earlier row's values across all
// columns, keeping the first occurrence. Missing equals missing. Returns the number removed.
func RemoveDuplicates(ds *model.Dataset) (*model.Dataset, int) {
	out, removed := removeDuplicates(ds)
	return out, len(removed)
}

// removeDuplicates also returns the input positions of the removed rows
func removeDuplicates(ds *model.Dataset) (*model.Dataset, []int) {
	out := ds.Clone()
	columns := out.ColumnNames()
	seen := make(map[string]struct{}, len(out.Rows))
	kept := out.Rows[:0]
	var removed []int

	for i, row := range out.Rows {
		key := model.RowKey(row, columns)
		if _, dup := seen[key]; dup {
			removed = append(removed, i)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	out.Rows = kept
	return out, removed
}

func duplicateOperations(datasetName string, removed []int) []model.CleaningOperation {
	now := time.Now().UTC()
	ops := make([]model.CleaningOperation, 0, len(removed))
	for _, idx := range removed {
		ops = append(ops, model.CleaningOperation{
			DatasetName:       datasetName,
			RowIndex:          idx,
			CleaningOperation: model.OperationDuplicateRemoval,
			CleaningReason:    "exact_duplicate_row",
			CleanedAt:         now,
		})
	}
	return ops
}

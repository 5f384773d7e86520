package cleaner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

// CleaningReport summarizes one Clean run
type CleaningReport struct {
	Dataset            string                       `json:"dataset"`
	RowsIn             int                          `json:"rows_in"`
	RowsOut            int                          `json:"rows_out"`
	DuplicatesRemoved  int                          `json:"duplicates_removed"`
	RowsDropped        int                          `json:"rows_dropped"`
	MissingBefore      int                          `json:"missing_before"`
	MissingAfter       int                          `json:"missing_after"`
	ImputedValues      map[string]int               `json:"imputed_values"`
	OutliersHandled    map[string]int               `json:"outliers_handled"`
	TypeCorrections    map[string]model.ColumnType  `json:"type_corrections"`
	CategoricalChanged map[string]int               `json:"categorical_changed"`
	DisplayForms       map[string]map[string]string `json:"display_forms,omitempty"`
	Operations         []model.CleaningOperation    `json:"-"`
	Warnings           []model.Warning              `json:"warnings"`
}

func newCleaningReport(ds *model.Dataset) *CleaningReport {
	return &CleaningReport{
		Dataset:            ds.Name,
		RowsIn:             ds.Len(),
		RowsOut:            ds.Len(),
		MissingBefore:      ds.TotalMissing(),
		MissingAfter:       ds.TotalMissing(),
		ImputedValues:      make(map[string]int),
		OutliersHandled:    make(map[string]int),
		TypeCorrections:    make(map[string]model.ColumnType),
		CategoricalChanged: make(map[string]int),
		DisplayForms:       make(map[string]map[string]string),
	}
}

// TotalImputed sums imputed cells across columns
func (r *CleaningReport) TotalImputed() int {
	return sumCounts(r.ImputedValues)
}

// TotalOutliers sums handled outliers across columns
func (r *CleaningReport) TotalOutliers() int {
	return sumCounts(r.OutliersHandled)
}

// Summary renders the report as a short multi-line text block
func (r *CleaningReport) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Cleaning report for %s\n", r.Dataset)
	fmt.Fprintf(&sb, "  rows: %d -> %d\n", r.RowsIn, r.RowsOut)
	fmt.Fprintf(&sb, "  duplicates removed: %d\n", r.DuplicatesRemoved)
	fmt.Fprintf(&sb, "  rows dropped for missing values: %d\n", r.RowsDropped)
	fmt.Fprintf(&sb, "  missing cells: %d -> %d\n", r.MissingBefore, r.MissingAfter)
	writeCounts(&sb, "imputed", r.ImputedValues)
	writeCounts(&sb, "outliers handled", r.OutliersHandled)
	if len(r.TypeCorrections) > 0 {
		names := make([]string, 0, len(r.TypeCorrections))
		for name := range r.TypeCorrections {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("  type corrections:\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "    %s: %s\n", name, r.TypeCorrections[name])
		}
	}
	writeCounts(&sb, "categorical values normalized", r.CategoricalChanged)
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "  warnings: %d\n", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Fprintf(&sb, "    %s\n", w.Error())
		}
	}
	return sb.String()
}

func writeCounts(sb *strings.Builder, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(sb, "  %s:\n", label)
	for _, name := range names {
		fmt.Fprintf(sb, "    %s: %d\n", name, counts[name])
	}
}

func sumCounts(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

package standardizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

// Mode tells whether a run fitted new parameters or replayed stored ones
type Mode string

const (
	ModeFit       Mode = "fit"
	ModeTransform Mode = "transform"
)

// StandardizationReport summarizes one Standardize run
type StandardizationReport struct {
	Dataset           string                    `json:"dataset"`
	Mode              Mode                      `json:"mode"`
	ColumnsNormalized []string                  `json:"columns_normalized"`
	DatesStandardized []string                  `json:"dates_standardized"`
	ColumnsEncoded    []string                  `json:"columns_encoded"`
	UnparseableDates  map[string]int            `json:"unparseable_dates"`
	Params            *ScalerParams             `json:"params,omitempty"`
	Encodings         map[string]*LabelEncoding `json:"encodings,omitempty"`
	Indicators        map[string][]string       `json:"indicators,omitempty"`
	Warnings          []model.Warning           `json:"warnings"`
}

// Summary renders the report as a short multi-line text block
func (r *StandardizationReport) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Standardization report for %s (%s)\n", r.Dataset, r.Mode)
	if r.Params != nil && len(r.Params.Columns) > 0 {
		fmt.Fprintf(&sb, "  scaler: %s (%s)\n", r.Params.Method, r.Params.ID)
	}
	writeList(&sb, "normalized", r.ColumnsNormalized)
	writeList(&sb, "dates standardized", r.DatesStandardized)
	writeList(&sb, "encoded", r.ColumnsEncoded)
	if len(r.UnparseableDates) > 0 {
		names := make([]string, 0, len(r.UnparseableDates))
		for name := range r.UnparseableDates {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("  unparseable dates:\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "    %s: %d\n", name, r.UnparseableDates[name])
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "  warnings: %d\n", len(r.Warnings))
	}
	return sb.String()
}

func writeList(sb *strings.Builder, label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(sb, "  %s: %s\n", label, strings.Join(names, ", "))
}

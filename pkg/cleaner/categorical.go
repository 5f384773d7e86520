// pkg/cleaner/categorical.go
package cleaner

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

// DefaultAbbreviations are token expansions for common unit and title abbreviations.
// Keys match a whole token with or without a trailing period.
var DefaultAbbreviations = map[string]string{
	"st":    "street",
	"ave":   "avenue",
	"rd":    "road",
	"blvd":  "boulevard",
	"dept":  "department",
	"univ":  "university",
	"inst":  "institute",
	"assoc": "association",
	"intl":  "international",
	"natl":  "national",
	"govt":  "government",
	"dr":    "doctor",
	"prof":  "professor",
	"mgr":   "manager",
	"asst":  "assistant",
	"kg":    "kilogram",
	"g":     "gram",
	"lb":    "pound",
	"lbs":   "pounds",
	"km":    "kilometer",
	"cm":    "centimeter",
	"mm":    "millimeter",
	"hr":    "hour",
	"hrs":   "hours",
	"yr":    "year",
	"yrs":   "years",
}

// DefaultValueReplacements map whole values onto short canonical codes
var DefaultValueReplacements = map[string]string{
	"yes":    "y",
	"no":     "n",
	"true":   "y",
	"false":  "n",
	"male":   "m",
	"female": "f",
}

// Dictionary holds the abbreviation and whole-value replacement tables used by
// categorical standardization. Keys are stored in canonical (normalized) form.
type Dictionary struct {
	abbreviations map[string]string
	replacements  map[string]string
}

// NewDictionary normalizes and validates user tables, optionally layered over the defaults.
// User entries override defaults.
func NewDictionary(abbreviations, replacements map[string]string, useDefaults bool) (Dictionary, error) {
	dict := Dictionary{
		abbreviations: make(map[string]string),
		replacements:  make(map[string]string),
	}

	if useDefaults {
		for k, v := range DefaultAbbreviations {
			dict.abbreviations[k] = v
		}
		for k, v := range DefaultValueReplacements {
			dict.replacements[k] = v
		}
	}

	for k, v := range abbreviations {
		key := strings.TrimSuffix(canonical(k), ".")
		if key == "" || strings.Contains(key, " ") {
			return Dictionary{}, &model.ConfigurationError{
				Option: "abbreviations",
				Value:  k,
				Reason: "abbreviation keys must be a single non-empty token",
			}
		}
		dict.abbreviations[key] = canonical(v)
	}

	for k, v := range replacements {
		key := canonical(k)
		if key == "" {
			return Dictionary{}, &model.ConfigurationError{
				Option: "value_replacements",
				Value:  k,
				Reason: "replacement keys must not be empty",
			}
		}
		dict.replacements[key] = canonical(v)
	}

	return dict, nil
}

// Len returns the number of entries in both tables
func (d Dictionary) Len() int {
	return len(d.abbreviations) + len(d.replacements)
}

// Canonicalize returns the canonical form of a text value: trimmed, internal whitespace
// collapsed, NFC-normalized, lower-cased, abbreviations expanded and whole-value
// replacements applied.
func (d Dictionary) Canonicalize(value string) string {
	s := canonical(value)
	if s == "" {
		return s
	}

	if len(d.abbreviations) > 0 {
		tokens := strings.Split(s, " ")
		for i, tok := range tokens {
			if exp, ok := d.abbreviations[strings.TrimSuffix(tok, ".")]; ok {
				tokens[i] = exp
			}
		}
		s = strings.Join(tokens, " ")
	}

	if rep, ok := d.replacements[s]; ok {
		s = rep
	}
	return s
}

// canonical builds a fresh Caser per call; Casers keep state and cannot be shared
// between goroutines.
func canonical(value string) string {
	collapsed := strings.Join(strings.Fields(value), " ")
	return cases.Lower(language.Und).String(norm.NFC.String(collapsed))
}

// CategoricalResult describes what StandardizeCategorical changed
type CategoricalResult struct {
	// Changed counts cells whose value differs from the canonical form, per column
	Changed map[string]int
	// DisplayForms maps, per column, each canonical value to the first original
	// (trimmed) spelling seen, for presentation
	DisplayForms map[string]map[string]string
	Operations   []model.CleaningOperation
}

// StandardizeCategorical canonicalizes every string cell of the text columns.
// The input dataset is not modified.
func StandardizeCategorical(ds *model.Dataset, dict Dictionary) (*model.Dataset, CategoricalResult) {
	out := ds.Clone()
	result := CategoricalResult{
		Changed:      make(map[string]int),
		DisplayForms: make(map[string]map[string]string),
	}
	now := time.Now().UTC()

	for _, name := range out.ColumnsOfType(model.TypeText) {
		forms := make(map[string]string)
		for i, row := range out.Rows {
			s, ok := row[name].(string)
			if !ok {
				continue
			}
			canon := dict.Canonicalize(s)
			if _, seen := forms[canon]; !seen {
				forms[canon] = strings.TrimSpace(s)
			}
			if canon == s {
				continue
			}
			row[name] = canon
			result.Changed[name]++
			result.Operations = append(result.Operations, model.CleaningOperation{
				DatasetName:       out.Name,
				ColumnName:        name,
				RowIndex:          i,
				OriginalValue:     s,
				NewValue:          canon,
				CleaningOperation: model.OperationCategorical,
				CleaningReason:    "text_normalization",
				CleanedAt:         now,
			})
		}
		if len(forms) > 0 {
			result.DisplayForms[name] = forms
		}
	}

	return out, result
}

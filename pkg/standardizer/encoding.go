package standardizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

// LabelEncoding maps the categories of one column to zero-based codes in order of first
// appearance. It is kept so encoded values can be decoded again.
type LabelEncoding struct {
	Column     string   `json:"column"`
	Categories []string `json:"categories"`
	index      map[string]int64
}

// NewLabelEncoding builds an encoding from categories listed in code order
func NewLabelEncoding(column string, categories []string) *LabelEncoding {
	enc := &LabelEncoding{
		Column:     column,
		Categories: append([]string(nil), categories...),
		index:      make(map[string]int64, len(categories)),
	}
	for i, c := range enc.Categories {
		enc.index[c] = int64(i)
	}
	return enc
}

// Code returns the code of a category
func (e *LabelEncoding) Code(category string) (int64, bool) {
	if e.index == nil {
		*e = *NewLabelEncoding(e.Column, e.Categories)
	}
	code, ok := e.index[category]
	return code, ok
}

// Decode returns the category of a code
func (e *LabelEncoding) Decode(code int64) (string, bool) {
	if code < 0 || code >= int64(len(e.Categories)) {
		return "", false
	}
	return e.Categories[code], true
}

// DecodeColumn restores the original categories of a label-encoded column. The column
// becomes text again.
func DecodeColumn(ds *model.Dataset, enc *LabelEncoding) (*model.Dataset, error) {
	if err := ds.RequireColumns("decode_labels", []string{enc.Column}); err != nil {
		return nil, err
	}
	out := ds.Clone()
	for i, row := range out.Rows {
		v := row[enc.Column]
		if model.IsMissing(v) {
			continue
		}
		f, ok := model.AsFloat(v)
		if !ok {
			return nil, &model.DataShapeError{
				Operation: "decode_labels",
				Column:    enc.Column,
				Reason:    fmt.Sprintf("row %d holds %T, not a label code", i, v),
			}
		}
		category, ok := enc.Decode(int64(f))
		if !ok {
			return nil, &model.DataShapeError{
				Operation: "decode_labels",
				Column:    enc.Column,
				Reason:    fmt.Sprintf("row %d holds unknown code %v", i, v),
			}
		}
		row[enc.Column] = category
	}
	out.SetColumnType(enc.Column, model.TypeText)
	return out, nil
}

// EncodingResult describes what EncodeCategorical did
type EncodingResult struct {
	Encoded []string
	// Encodings holds the category list of every encoded column (label and one-hot)
	Encodings map[string]*LabelEncoding
	// Indicators lists the one-hot columns generated per source column
	Indicators map[string][]string
	Warnings   []model.Warning
}

// EncodeCategorical encodes text columns (all text columns when none are named).
//
// Label encoding replaces each category with its int64 code. One-hot encoding replaces the
// column with one boolean column per category, named <column>_<category>; a row with a
// missing value gets false everywhere. When known holds an encoding for a column, its
// categories are reused and values outside it are reported as unknown_category.
func EncodeCategorical(ds *model.Dataset, method EncodingMethod, columns []string, known map[string]*LabelEncoding) (*model.Dataset, EncodingResult, error) {
	result := EncodingResult{
		Encodings:  make(map[string]*LabelEncoding),
		Indicators: make(map[string][]string),
	}

	targets := columns
	if len(targets) == 0 {
		targets = ds.ColumnsOfType(model.TypeText)
	} else {
		if err := ds.RequireColumns("encode_categorical", targets); err != nil {
			return nil, result, err
		}
		for _, name := range targets {
			if col, _ := ds.Column(name); col.Type != model.TypeText {
				return nil, result, &model.DataShapeError{
					Operation: "encode_categorical",
					Column:    name,
					Reason:    fmt.Sprintf("expected a text column, found %s", col.Type),
				}
			}
		}
	}

	out := ds.Clone()
	for _, name := range targets {
		enc, ok := known[name]
		if !ok {
			enc = fitCategories(out, name)
		}
		result.Encodings[name] = enc

		switch method {
		case EncodeLabel:
			result.Warnings = append(result.Warnings, labelEncode(out, name, enc)...)
		case EncodeOneHot:
			indicators, warnings := oneHotEncode(out, name, enc)
			result.Indicators[name] = indicators
			result.Warnings = append(result.Warnings, warnings...)
		}
		result.Encoded = append(result.Encoded, name)
	}

	return out, result, nil
}

func categoryOf(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return model.FormatValue(v)
}

func fitCategories(ds *model.Dataset, column string) *LabelEncoding {
	var categories []string
	seen := make(map[string]bool)
	for _, row := range ds.Rows {
		v := row[column]
		if model.IsMissing(v) {
			continue
		}
		c := categoryOf(v)
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}
	return NewLabelEncoding(column, categories)
}

func unknownCategory(column string, row int, value interface{}) model.Warning {
	return model.Warning{
		Code:    model.WarningUnknownCategory,
		Column:  column,
		Row:     row,
		Value:   value,
		Message: "category not present in the stored encoding",
	}
}

func labelEncode(ds *model.Dataset, column string, enc *LabelEncoding) []model.Warning {
	var warnings []model.Warning
	for i, row := range ds.Rows {
		v := row[column]
		if model.IsMissing(v) {
			continue
		}
		code, ok := enc.Code(categoryOf(v))
		if !ok {
			warnings = append(warnings, unknownCategory(column, i, v))
			row[column] = nil
			continue
		}
		row[column] = code
	}
	ds.SetColumnType(column, model.TypeNumeric)
	return warnings
}

func oneHotEncode(ds *model.Dataset, column string, enc *LabelEncoding) ([]string, []model.Warning) {
	var warnings []model.Warning
	for i, row := range ds.Rows {
		v := row[column]
		if model.IsMissing(v) {
			continue
		}
		if _, ok := enc.Code(categoryOf(v)); !ok {
			warnings = append(warnings, unknownCategory(column, i, v))
		}
	}

	taken := make(map[string]bool, len(ds.Columns))
	for _, col := range ds.Columns {
		taken[col.Name] = true
	}

	names := make([]string, 0, len(enc.Categories))
	after := column
	for _, category := range enc.Categories {
		name := uniqueName(column+"_"+sanitize(category), taken)
		taken[name] = true
		names = append(names, name)

		cat := category
		ds.AddColumn(model.Column{Name: name, Type: model.TypeBoolean}, after, func(_ int, row model.Row) interface{} {
			v := row[column]
			return !model.IsMissing(v) && categoryOf(v) == cat
		})
		after = name
	}
	ds.DropColumn(column)
	return names, warnings
}

// sanitize replaces every rune that is not a letter, digit or underscore with '_'
func sanitize(category string) string {
	if category == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return '_'
	}, category)
}

func uniqueName(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

package standardizer

import (
	"strings"

	"github.com/David-Botos/data-cleaning/pkg/dateparse"
	"github.com/David-Botos/data-cleaning/pkg/model"
)

// ScalingMethod selects the numeric rescaling rule
type ScalingMethod int

const (
	ScaleMinMax ScalingMethod = iota
	ScaleZScore
	ScaleRobust
)

func (m ScalingMethod) String() string {
	switch m {
	case ScaleMinMax:
		return "minmax"
	case ScaleZScore:
		return "zscore"
	case ScaleRobust:
		return "robust"
	default:
		return "unknown"
	}
}

// MarshalText writes the method name into persisted parameters
func (m ScalingMethod) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText reads a method name from persisted parameters
func (m *ScalingMethod) UnmarshalText(text []byte) error {
	parsed, err := ParseScalingMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseScalingMethod converts a method name into a ScalingMethod. "standard" is accepted
// as an alias of zscore.
func ParseScalingMethod(name string) (ScalingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "minmax", "min-max", "min_max":
		return ScaleMinMax, nil
	case "zscore", "z-score", "standard":
		return ScaleZScore, nil
	case "robust":
		return ScaleRobust, nil
	default:
		return ScaleMinMax, &model.ConfigurationError{
			Option: "normalization_method",
			Value:  name,
			Reason: "expected minmax, zscore or robust",
		}
	}
}

// statKeys are the per-column statistic names each method persists
func (m ScalingMethod) statKeys() [2]string {
	switch m {
	case ScaleZScore:
		return [2]string{"mean", "std"}
	case ScaleRobust:
		return [2]string{"median", "iqr"}
	default:
		return [2]string{"min", "max"}
	}
}

// EncodingMethod selects categorical encoding
type EncodingMethod int

const (
	EncodeLabel EncodingMethod = iota
	EncodeOneHot
)

func (m EncodingMethod) String() string {
	if m == EncodeOneHot {
		return "onehot"
	}
	return "label"
}

// ParseEncodingMethod converts an encoding name into an EncodingMethod
func ParseEncodingMethod(name string) (EncodingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "label":
		return EncodeLabel, nil
	case "onehot", "one-hot", "one_hot":
		return EncodeOneHot, nil
	default:
		return EncodeLabel, &model.ConfigurationError{
			Option: "encoding_method",
			Value:  name,
			Reason: "expected label or onehot",
		}
	}
}

// DateFormat is the target representation for standardized dates
type DateFormat int

const (
	DateISO DateFormat = iota
	DateUS
	DateEU
)

func (f DateFormat) String() string {
	switch f {
	case DateUS:
		return "US"
	case DateEU:
		return "EU"
	default:
		return "ISO"
	}
}

// Layout returns the Go time layout of the format
func (f DateFormat) Layout() string {
	switch f {
	case DateUS:
		return "01/02/2006"
	case DateEU:
		return "02/01/2006"
	default:
		return "2006-01-02"
	}
}

// Order returns how ambiguous day/month dates are read for this target: the US and EU
// targets require their own field order, ISO accepts either.
func (f DateFormat) Order() dateparse.Order {
	switch f {
	case DateUS:
		return dateparse.OrderMonthFirst
	case DateEU:
		return dateparse.OrderDayFirst
	default:
		return dateparse.OrderAuto
	}
}

// ParseDateFormat converts a format name (case-insensitive) into a DateFormat
func ParseDateFormat(name string) (DateFormat, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "ISO":
		return DateISO, nil
	case "US":
		return DateUS, nil
	case "EU":
		return DateEU, nil
	default:
		return DateISO, &model.ConfigurationError{
			Option: "date_format",
			Value:  name,
			Reason: "expected ISO, US or EU",
		}
	}
}

// Options is the raw standardization configuration as read from a pipeline options file
type Options struct {
	NormalizeNumerical  bool     `json:"normalize_numerical" toml:"normalize_numerical"`
	NormalizationMethod string   `json:"normalization_method" toml:"normalization_method"`
	EncodeCategorical   bool     `json:"encode_categorical" toml:"encode_categorical"`
	EncodingMethod      string   `json:"encoding_method" toml:"encoding_method"`
	StandardizeDates    bool     `json:"standardize_dates" toml:"standardize_dates"`
	DateFormat          string   `json:"date_format" toml:"date_format"`
	NumericColumns      []string `json:"numeric_columns" toml:"numeric_columns"`
	DateColumns         []string `json:"date_columns" toml:"date_columns"`
	CategoricalColumns  []string `json:"categorical_columns" toml:"categorical_columns"`
}

// DefaultOptions returns the standardization defaults
func DefaultOptions() Options {
	return Options{
		NormalizationMethod: "minmax",
		EncodingMethod:      "label",
		StandardizeDates:    true,
		DateFormat:          "ISO",
	}
}

// Config is the parsed, immutable standardization configuration
type Config struct {
	NormalizeNumerical bool
	Method             ScalingMethod
	EncodeCategorical  bool
	Encoding           EncodingMethod
	StandardizeDates   bool
	DateFormat         DateFormat
	NumericColumns     []string
	DateColumns        []string
	CategoricalColumns []string
}

// NewConfig validates raw options, reporting invalid values as *model.ConfigurationError
func NewConfig(opts Options) (Config, error) {
	method, err := ParseScalingMethod(opts.NormalizationMethod)
	if err != nil {
		return Config{}, err
	}
	encoding, err := ParseEncodingMethod(opts.EncodingMethod)
	if err != nil {
		return Config{}, err
	}
	format, err := ParseDateFormat(opts.DateFormat)
	if err != nil {
		return Config{}, err
	}

	return Config{
		NormalizeNumerical: opts.NormalizeNumerical,
		Method:             method,
		EncodeCategorical:  opts.EncodeCategorical,
		Encoding:           encoding,
		StandardizeDates:   opts.StandardizeDates,
		DateFormat:         format,
		NumericColumns:     append([]string(nil), opts.NumericColumns...),
		DateColumns:        append([]string(nil), opts.DateColumns...),
		CategoricalColumns: append([]string(nil), opts.CategoricalColumns...),
	}, nil
}

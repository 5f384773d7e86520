// pkg/cleaner/config.go
package cleaner

import (
	"math"
	"strings"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

// MissingStrategy selects how missing cells are resolved
type MissingStrategy int

const (
	MissingAuto MissingStrategy = iota
	MissingDrop
	MissingMean
	MissingMedian
	MissingMode
)

func (s MissingStrategy) String() string {
	switch s {
	case MissingAuto:
		return "auto"
	case MissingDrop:
		return "drop"
	case MissingMean:
		return "mean"
	case MissingMedian:
		return "median"
	case MissingMode:
		return "mode"
	default:
		return "unknown"
	}
}

// ParseMissingStrategy converts a strategy name into a MissingStrategy
func ParseMissingStrategy(name string) (MissingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return MissingAuto, nil
	case "drop":
		return MissingDrop, nil
	case "mean":
		return MissingMean, nil
	case "median":
		return MissingMedian, nil
	case "mode":
		return MissingMode, nil
	default:
		return MissingAuto, &model.ConfigurationError{
			Option: "missing_strategy",
			Value:  name,
			Reason: "expected one of auto, drop, mean, median, mode",
		}
	}
}

// OutlierMethod selects the outlier rule
type OutlierMethod int

const (
	OutlierNone OutlierMethod = iota
	OutlierIQR
	OutlierZScore
)

func (m OutlierMethod) String() string {
	switch m {
	case OutlierNone:
		return "none"
	case OutlierIQR:
		return "IQR"
	case OutlierZScore:
		return "zscore"
	default:
		return "unknown"
	}
}

// DefaultThreshold returns the threshold used when none is configured
func (m OutlierMethod) DefaultThreshold() float64 {
	switch m {
	case OutlierIQR:
		return 1.5
	case OutlierZScore:
		return 3
	default:
		return 0
	}
}

// ParseOutlierMethod converts a method name (case-insensitive) into an OutlierMethod.
// An empty name disables outlier handling.
func ParseOutlierMethod(name string) (OutlierMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return OutlierNone, nil
	case "iqr":
		return OutlierIQR, nil
	case "zscore", "z-score", "z_score":
		return OutlierZScore, nil
	default:
		return OutlierNone, &model.ConfigurationError{
			Option: "outlier_detection_method",
			Value:  name,
			Reason: "expected IQR or zscore",
		}
	}
}

// Options is the raw cleaning configuration as read from a pipeline options file
type Options struct {
	RemoveDuplicates        bool              `json:"remove_duplicates" toml:"remove_duplicates"`
	HandleMissingValues     bool              `json:"handle_missing_values" toml:"handle_missing_values"`
	MissingStrategy         string            `json:"missing_strategy" toml:"missing_strategy"`
	AutoDropThreshold       float64           `json:"auto_drop_threshold" toml:"auto_drop_threshold"`
	OutlierDetectionMethod  string            `json:"outlier_detection_method" toml:"outlier_detection_method"`
	OutlierThreshold        float64           `json:"outlier_threshold" toml:"outlier_threshold"`
	FlagOutliers            bool              `json:"flag_outliers" toml:"flag_outliers"`
	CorrectTypes            bool              `json:"correct_types" toml:"correct_types"`
	TypeInferenceThreshold  float64           `json:"type_inference_threshold" toml:"type_inference_threshold"`
	StandardizeCategorical  bool              `json:"standardize_categorical" toml:"standardize_categorical"`
	Abbreviations           map[string]string `json:"abbreviations" toml:"abbreviations"`
	UseDefaultAbbreviations bool              `json:"use_default_abbreviations" toml:"use_default_abbreviations"`
	ValueReplacements       map[string]string `json:"value_replacements" toml:"value_replacements"`
	Columns                 []string          `json:"columns" toml:"columns"`
	TrackOperations         bool              `json:"track_operations" toml:"track_operations"`
}

// DefaultOptions returns the cleaning defaults. Decoders fill an Options value starting from
// these so absent keys keep their default.
func DefaultOptions() Options {
	return Options{
		RemoveDuplicates:       true,
		HandleMissingValues:    true,
		MissingStrategy:        "auto",
		AutoDropThreshold:      0.5,
		CorrectTypes:           true,
		TypeInferenceThreshold: 1.0,
		StandardizeCategorical: true,
		TrackOperations:        true,
	}
}

// Config is the parsed, immutable cleaning configuration. Build it with NewConfig.
type Config struct {
	RemoveDuplicates       bool
	HandleMissing          bool
	MissingStrategy        MissingStrategy
	AutoDropThreshold      float64
	OutlierMethod          OutlierMethod
	OutlierThreshold       float64
	FlagOutliers           bool
	CorrectTypes           bool
	TypeInferenceThreshold float64
	StandardizeCategorical bool
	Dictionary             Dictionary
	Columns                []string
	TrackOperations        bool
}

// NewConfig validates raw options. Every invalid value is reported as a
// *model.ConfigurationError.
func NewConfig(opts Options) (Config, error) {
	strategy, err := ParseMissingStrategy(opts.MissingStrategy)
	if err != nil {
		return Config{}, err
	}

	method, err := ParseOutlierMethod(opts.OutlierDetectionMethod)
	if err != nil {
		return Config{}, err
	}

	threshold := opts.OutlierThreshold
	if threshold < 0 || !finite(threshold) {
		return Config{}, &model.ConfigurationError{
			Option: "outlier_threshold",
			Value:  threshold,
			Reason: "must be a positive finite number",
		}
	}
	if threshold == 0 {
		threshold = method.DefaultThreshold()
	}

	if !finite(opts.AutoDropThreshold) || opts.AutoDropThreshold <= 0 || opts.AutoDropThreshold > 1 {
		return Config{}, &model.ConfigurationError{
			Option: "auto_drop_threshold",
			Value:  opts.AutoDropThreshold,
			Reason: "must be within (0, 1]",
		}
	}

	if !finite(opts.TypeInferenceThreshold) || opts.TypeInferenceThreshold <= 0 || opts.TypeInferenceThreshold > 1 {
		return Config{}, &model.ConfigurationError{
			Option: "type_inference_threshold",
			Value:  opts.TypeInferenceThreshold,
			Reason: "must be within (0, 1]",
		}
	}

	dict, err := NewDictionary(opts.Abbreviations, opts.ValueReplacements, opts.UseDefaultAbbreviations)
	if err != nil {
		return Config{}, err
	}

	columns := make([]string, len(opts.Columns))
	copy(columns, opts.Columns)

	return Config{
		RemoveDuplicates:       opts.RemoveDuplicates,
		HandleMissing:          opts.HandleMissingValues,
		MissingStrategy:        strategy,
		AutoDropThreshold:      opts.AutoDropThreshold,
		OutlierMethod:          method,
		OutlierThreshold:       threshold,
		FlagOutliers:           opts.FlagOutliers,
		CorrectTypes:           opts.CorrectTypes,
		TypeInferenceThreshold: opts.TypeInferenceThreshold,
		StandardizeCategorical: opts.StandardizeCategorical,
		Dictionary:             dict,
		Columns:                columns,
		TrackOperations:        opts.TrackOperations,
	}, nil
}

// finite reports whether x is neither NaN nor infinite
func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// DefaultConfig returns the parsed defaults
func DefaultConfig() Config {
	cfg, err := NewConfig(DefaultOptions())
	if err != nil {
		panic(err)
	}
	return cfg
}

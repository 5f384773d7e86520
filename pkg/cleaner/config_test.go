package cleaner

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

func TestNewConfigRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		option string
	}{
		{"unknown strategy", func(o *Options) { o.MissingStrategy = "interpolate" }, "missing_strategy"},
		{"unknown outlier method", func(o *Options) { o.OutlierDetectionMethod = "dbscan" }, "outlier_detection_method"},
		{"negative threshold", func(o *Options) { o.OutlierThreshold = -1 }, "outlier_threshold"},
		{"auto threshold above one", func(o *Options) { o.AutoDropThreshold = 1.5 }, "auto_drop_threshold"},
		{"zero inference threshold", func(o *Options) { o.TypeInferenceThreshold = 0 }, "type_inference_threshold"},
		{"NaN outlier threshold", func(o *Options) { o.OutlierThreshold = math.NaN() }, "outlier_threshold"},
		{"infinite outlier threshold", func(o *Options) { o.OutlierThreshold = math.Inf(1) }, "outlier_threshold"},
		{"NaN auto threshold", func(o *Options) { o.AutoDropThreshold = math.NaN() }, "auto_drop_threshold"},
		{"NaN inference threshold", func(o *Options) { o.TypeInferenceThreshold = math.NaN() }, "type_inference_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)

			_, err := NewConfig(opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrConfiguration))

			var cfgErr *model.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.option, cfgErr.Option)
		})
	}
}

func TestNewConfigDefaults(t *testing.T) {
	opts := DefaultOptions()
	opts.OutlierDetectionMethod = "iqr"
	cfg, err := NewConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, OutlierIQR, cfg.OutlierMethod)
	assert.Equal(t, 1.5, cfg.OutlierThreshold)
	assert.Equal(t, MissingAuto, cfg.MissingStrategy)

	opts.OutlierDetectionMethod = "ZScore"
	cfg, err = NewConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, OutlierZScore, cfg.OutlierMethod)
	assert.Equal(t, 3.0, cfg.OutlierThreshold)

	cfg = DefaultConfig()
	assert.Equal(t, OutlierNone, cfg.OutlierMethod)
}

func TestCleanEmptyDatasetIsNoOp(t *testing.T) {
	ds := model.NewDataset("empty", []model.Column{{Name: "x", Type: model.TypeNumeric}})

	out, report, err := New(DefaultConfig(), zap.NewNop()).Clean(ds)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, 0, report.RowsIn)
	assert.Equal(t, 0, report.RowsOut)
}

func TestCleanRunsStepsInOrder(t *testing.T) {
	ds := model.NewDataset("survey", []model.Column{
		{Name: "id", Type: model.TypeNumeric},
		{Name: "age", Type: model.TypeNumeric},
		{Name: "income", Type: model.TypeText},
		{Name: "city", Type: model.TypeText},
	})
	ds.AppendRow(model.Row{"id": 1.0, "age": 20.0, "income": "100", "city": " New  York"})
	ds.AppendRow(model.Row{"id": 1.0, "age": 20.0, "income": "100", "city": " New  York"})
	ds.AppendRow(model.Row{"id": 2.0, "age": nil, "income": "200", "city": "boston"})
	ds.AppendRow(model.Row{"id": 3.0, "age": 40.0, "income": "300", "city": "BOSTON"})
	ds.AppendRow(model.Row{"id": 4.0, "age": 30.0, "income": "400", "city": nil})

	opts := DefaultOptions()
	opts.MissingStrategy = "mean"
	cfg, err := NewConfig(opts)
	require.NoError(t, err)

	out, report, err := New(cfg, nil).Clean(ds)
	require.NoError(t, err)

	assert.Equal(t, 5, report.RowsIn)
	assert.Equal(t, 4, report.RowsOut)
	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, map[string]int{"age": 1}, report.ImputedValues)
	assert.Equal(t, model.TypeNumeric, report.TypeCorrections["income"])
	assert.Equal(t, 2, report.MissingBefore)
	assert.Equal(t, 1, report.MissingAfter)

	assert.Equal(t, 30.0, out.Rows[1]["age"])
	assert.Equal(t, 200.0, out.Rows[1]["income"])
	assert.Equal(t, "new york", out.Rows[0]["city"])
	assert.Equal(t, "boston", out.Rows[2]["city"])
	assert.Equal(t, "boston", report.DisplayForms["city"]["boston"])
	assert.Equal(t, "New  York", report.DisplayForms["city"]["new york"])

	// city cannot take a mean
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, model.WarningStrategyNotApplicable, report.Warnings[0].Code)

	assert.NotEmpty(t, report.Operations)
	assert.True(t, strings.Contains(report.Summary(), "duplicates removed: 1"))

	// caller's dataset untouched
	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, " New  York", ds.Rows[0]["city"])
}

func TestCleanOperationsUseInputPositions(t *testing.T) {
	ds := model.NewDataset("readings", []model.Column{{Name: "x", Type: model.TypeNumeric}})
	for _, v := range []interface{}{1.0, 1.0, nil, 2.0, 3.0, 4.0, 100.0} {
		ds.AppendRow(model.Row{"x": v})
	}

	opts := DefaultOptions()
	opts.MissingStrategy = "drop"
	opts.OutlierDetectionMethod = "iqr"
	cfg, err := NewConfig(opts)
	require.NoError(t, err)

	_, report, err := New(cfg, nil).Clean(ds)
	require.NoError(t, err)

	rows := map[string][]int{}
	for _, op := range report.Operations {
		rows[op.CleaningOperation] = append(rows[op.CleaningOperation], op.RowIndex)
	}
	assert.Equal(t, []int{1}, rows[model.OperationDuplicateRemoval])
	assert.Equal(t, []int{2}, rows[model.OperationRowDrop])
	assert.Equal(t, []int{6}, rows[model.OperationOutlierClip])
}

func TestCleanUnknownColumnFailsBeforeMutation(t *testing.T) {
	opts := DefaultOptions()
	opts.Columns = []string{"missing_column"}
	cfg, err := NewConfig(opts)
	require.NoError(t, err)

	ds := numericDataset("t", "x", 1.0, 1.0, nil)
	out, report, err := New(cfg, nil).Clean(ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDataShape))
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, 0, report.DuplicatesRemoved)
}

package standardizer

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/stats"
)

func scoresDataset(values ...interface{}) *model.Dataset {
	ds := model.NewDataset("scores", []model.Column{{Name: "score", Type: model.TypeNumeric}})
	for _, v := range values {
		ds.AppendRow(model.Row{"score": v})
	}
	return ds
}

func TestMinMaxRangeAndEndpoints(t *testing.T) {
	ds := scoresDataset(3.0, -2.0, 10.0, nil, 7.5)

	params, err := FitScaler(ds, ScaleMinMax, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"min": -2, "max": 10}, params.Columns["score"])

	out, warnings, err := ApplyScaler(ds, params, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, 0.0, out.Rows[1]["score"])
	assert.Equal(t, 1.0, out.Rows[2]["score"])
	assert.Nil(t, out.Rows[3]["score"])
	for _, v := range out.NumericValues("score") {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestZScoreMeanZeroStdOne(t *testing.T) {
	ds := scoresDataset(2.0, 4.0, 4.0, 4.0, 5.0, 5.0, 7.0, 9.0)

	params, err := FitScaler(ds, ScaleZScore, nil)
	require.NoError(t, err)
	out, _, err := ApplyScaler(ds, params, nil)
	require.NoError(t, err)

	values := out.NumericValues("score")
	mean, err := stats.Mean(values)
	require.NoError(t, err)
	std, err := stats.StdDev(values)
	require.NoError(t, err)
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, std, 1e-12)
}

func TestDegenerateSpreadGivesZero(t *testing.T) {
	for _, method := range []ScalingMethod{ScaleMinMax, ScaleZScore, ScaleRobust} {
		ds := scoresDataset(4.0, 4.0, 4.0)
		params, err := FitScaler(ds, method, nil)
		require.NoError(t, err)
		out, _, err := ApplyScaler(ds, params, nil)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0, 0}, out.NumericValues("score"), method.String())
	}
}

func TestRobustUsesOnlyMedianAndIQR(t *testing.T) {
	a := scoresDataset(1.0, 2.0, 3.0, 4.0, 5.0)
	// same median and quartiles, very different mean and spread in the tail
	b := scoresDataset(1.0, 2.0, 3.0, 4.0, 5.0)
	b.AppendRow(model.Row{"score": -1000.0})
	b.AppendRow(model.Row{"score": 1000.0})

	pa, err := FitScaler(a, ScaleRobust, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, pa.Columns["score"]["median"])
	assert.Equal(t, 2.0, pa.Columns["score"]["iqr"])

	// the output for a value depends only on the fitted median and IQR
	alt := &ScalerParams{Method: ScaleRobust, Columns: map[string]map[string]float64{
		"score": {"median": 3, "iqr": 2},
	}}
	outA, _, err := ApplyScaler(a, pa, nil)
	require.NoError(t, err)
	outAlt, _, err := ApplyScaler(a, alt, nil)
	require.NoError(t, err)
	assert.Equal(t, outA.Rows, outAlt.Rows)
	assert.Equal(t, []float64{-1, -0.5, 0, 0.5, 1}, outA.NumericValues("score"))

	pb, err := FitScaler(b, ScaleRobust, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, pb.Columns["score"]["median"])
}

func TestSaveLoadReplayMatchesFit(t *testing.T) {
	ds := model.NewDataset("train", []model.Column{
		{Name: "a", Type: model.TypeNumeric},
		{Name: "b", Type: model.TypeNumeric},
		{Name: "color", Type: model.TypeText},
	})
	for i, v := range []float64{0.1, 0.7, 1.3, 2.9, 3.3333333333333335, 100.25} {
		ds.AppendRow(model.Row{"a": v, "b": v * math.Pi, "color": []string{"red", "blue", "green"}[i%3]})
	}

	for _, method := range []ScalingMethod{ScaleMinMax, ScaleZScore, ScaleRobust} {
		t.Run(method.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.NormalizeNumerical = true
			opts.NormalizationMethod = method.String()
			opts.EncodeCategorical = true
			cfg, err := NewConfig(opts)
			require.NoError(t, err)

			fitted, report, err := New(cfg, nil).Standardize(ds)
			require.NoError(t, err)
			assert.Equal(t, ModeFit, report.Mode)

			var buf bytes.Buffer
			require.NoError(t, SaveParams(&buf, report.Params))

			replayer := New(cfg, nil)
			require.NoError(t, replayer.LoadParams(&buf))
			replayed, replayReport, err := replayer.Standardize(ds)
			require.NoError(t, err)

			assert.Equal(t, ModeTransform, replayReport.Mode)
			assert.Equal(t, fitted.Rows, replayed.Rows)
			assert.Equal(t, fitted.Columns, replayed.Columns)
			assert.Empty(t, replayReport.Warnings)
		})
	}
}

func TestParamsFileStore(t *testing.T) {
	store := FileParamStore{Dir: filepath.Join(t.TempDir(), "params")}
	params := &ScalerParams{
		ID:       "abc",
		Method:   ScaleZScore,
		Columns:  map[string]map[string]float64{"x": {"mean": 0.1, "std": 1.0 / 3}},
		FittedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	ctx := context.Background()
	require.NoError(t, store.SaveParams(ctx, "survey 2024", params))

	loaded, err := store.LoadParams(ctx, "survey 2024")
	require.NoError(t, err)
	assert.Equal(t, params, loaded)

	_, err = store.LoadParams(ctx, "other")
	assert.True(t, errors.Is(err, ErrParamsNotFound))
}

func TestLoadParamsRejectsIncompleteStats(t *testing.T) {
	_, err := LoadParams(bytes.NewBufferString(`{"id":"x","method":"robust","per_column":{"a":{"median":1}},"fitted_at":"2024-01-01T00:00:00Z"}`))
	assert.Error(t, err)

	_, err = LoadParams(bytes.NewBufferString(`{"id":"x","method":"quantile","per_column":{}}`))
	assert.Error(t, err)
}

func TestTransformOnlyWarnings(t *testing.T) {
	ds := model.NewDataset("new", []model.Column{
		{Name: "a", Type: model.TypeNumeric},
		{Name: "c", Type: model.TypeNumeric},
	})
	ds.AppendRow(model.Row{"a": 5.0, "c": 1.0})

	params := &ScalerParams{Method: ScaleMinMax, Columns: map[string]map[string]float64{
		"a":    {"min": 0, "max": 10},
		"gone": {"min": 0, "max": 1},
	}}

	out, warnings, err := ApplyScaler(ds, params, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, out.Rows[0]["a"])
	assert.Equal(t, 1.0, out.Rows[0]["c"])

	require.Len(t, warnings, 2)
	assert.Equal(t, model.WarningUnknownParameterColumn, warnings[0].Code)
	assert.Equal(t, "gone", warnings[0].Column)
	assert.Equal(t, model.WarningMissingParameters, warnings[1].Code)
	assert.Equal(t, "c", warnings[1].Column)
}

func TestInverseScalerRestoresValues(t *testing.T) {
	ds := scoresDataset(1.0, 5.0, 9.0, nil)
	for _, method := range []ScalingMethod{ScaleMinMax, ScaleZScore, ScaleRobust} {
		params, err := FitScaler(ds, method, nil)
		require.NoError(t, err)
		scaled, _, err := ApplyScaler(ds, params, nil)
		require.NoError(t, err)
		restored, _, err := InverseScaler(scaled, params, nil)
		require.NoError(t, err)

		got := restored.NumericValues("score")
		require.Len(t, got, 3)
		for i, want := range []float64{1, 5, 9} {
			assert.InDelta(t, want, got[i], 1e-9)
		}
		assert.Nil(t, restored.Rows[3]["score"])
	}
}

func TestScalerRejectsNonNumericColumn(t *testing.T) {
	ds := model.NewDataset("t", []model.Column{{Name: "name", Type: model.TypeText}})
	ds.AppendRow(model.Row{"name": "x"})

	_, err := FitScaler(ds, ScaleMinMax, []string{"name"})
	assert.True(t, errors.Is(err, model.ErrDataShape))

	_, err = FitScaler(ds, ScaleMinMax, []string{"absent"})
	assert.True(t, errors.Is(err, model.ErrDataShape))
}

func TestNewConfigRejectsUnknownNames(t *testing.T) {
	for _, opts := range []Options{
		{NormalizationMethod: "log"},
		{EncodingMethod: "binary"},
		{DateFormat: "JP"},
	} {
		_, err := NewConfig(opts)
		assert.True(t, errors.Is(err, model.ErrConfiguration), "%+v", opts)
	}

	cfg, err := NewConfig(Options{NormalizationMethod: "standard", DateFormat: "eu"})
	require.NoError(t, err)
	assert.Equal(t, ScaleZScore, cfg.Method)
	assert.Equal(t, DateEU, cfg.DateFormat)
}

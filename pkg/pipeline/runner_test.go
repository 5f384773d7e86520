package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-cleaning/pkg/cleaner"
	"github.com/David-Botos/data-cleaning/pkg/fileio"
	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/standardizer"
	"github.com/David-Botos/data-cleaning/pkg/storage"
)

const visitsCSV = `id,age,city,visit
1,20,NYC,2023-01-15
2,40,boston,2023-02-01
2,40,boston,2023-02-01
3,,NYC,2023-03-10
`

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func scalingConfig(t *testing.T) standardizer.Config {
	t.Helper()
	opts := standardizer.DefaultOptions()
	opts.NormalizeNumerical = true
	opts.NumericColumns = []string{"age"}
	cfg, err := standardizer.NewConfig(opts)
	require.NoError(t, err)
	return cfg
}

type fakeSource struct {
	name  string
	err   error
	fails int
	calls int
	ds    *model.Dataset
}

func (s *fakeSource) Name() string     { return s.name }
func (s *fakeSource) Describe() string { return "fake:" + s.name }
func (s *fakeSource) Load(ctx context.Context) (*model.Dataset, error) {
	s.calls++
	if s.calls <= s.fails {
		return nil, s.err
	}
	return s.ds, nil
}

type memorySink struct {
	mu      sync.Mutex
	written map[string]*model.Dataset
}

func (s *memorySink) Describe() string { return "memory" }
func (s *memorySink) Write(_ context.Context, ds *model.Dataset) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written == nil {
		s.written = make(map[string]*model.Dataset)
	}
	s.written[ds.Name] = ds
	return int64(ds.Len()), nil
}

type fakeAuditor struct {
	mu   sync.Mutex
	ops  map[string]int
	runs []storage.RunRecord
}

func (a *fakeAuditor) RecordCleaningOperations(_ context.Context, runID, _ string, ops []model.CleaningOperation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ops == nil {
		a.ops = make(map[string]int)
	}
	a.ops[runID] += len(ops)
	return nil
}

func (a *fakeAuditor) RecordRun(_ context.Context, rec storage.RunRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs = append(a.runs, rec)
	return nil
}

func TestRunFitsThenReplaysParameters(t *testing.T) {
	dir := t.TempDir()
	store := standardizer.FileParamStore{Dir: filepath.Join(dir, "params")}
	audit := &fakeAuditor{}

	runner := NewRunner(RunnerConfig{
		Cleaning:        cleaner.DefaultConfig(),
		Standardization: scalingConfig(t),
		Params:          store,
		Audit:           audit,
		AuditSchema:     "public",
		Workers:         1,
	}, nil, nil)

	in := writeInput(t, dir, "visits.csv", visitsCSV)
	out := filepath.Join(dir, "out", "visits.csv")

	result, err := runner.Run(context.Background(), NewJob(NewFileSource(in, nil), NewFileSink(out, nil)))
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, 4, result.RowsRead)
	assert.Equal(t, int64(3), result.RowsWritten)
	assert.Equal(t, 1, result.Cleaning.DuplicatesRemoved)
	assert.Equal(t, standardizer.ModeFit, result.Standardization.Mode)
	assert.FileExists(t, store.Path("visits"))

	back, err := fileio.NewReader(fileio.DefaultOptions(), nil).ReadFile(out)
	require.NoError(t, err)
	for _, v := range back.NumericValues("age") {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	second, err := runner.Run(context.Background(), NewJob(NewFileSource(in, nil), NewFileSink(out, nil)))
	require.NoError(t, err)
	assert.Equal(t, standardizer.ModeTransform, second.Standardization.Mode)
	assert.Equal(t, result.Standardization.Params.ID, second.Standardization.Params.ID)

	assert.Len(t, audit.runs, 2)
	assert.Equal(t, "succeeded", audit.runs[0].Status)
	assert.Greater(t, audit.ops[result.JobID], 0)
}

func TestRunRefitIgnoresStoredParameters(t *testing.T) {
	dir := t.TempDir()
	store := standardizer.FileParamStore{Dir: dir}
	in := writeInput(t, dir, "visits.csv", visitsCSV)

	cfg := RunnerConfig{
		Cleaning:        cleaner.DefaultConfig(),
		Standardization: scalingConfig(t),
		Params:          store,
	}
	first, err := NewRunner(cfg, nil, nil).Run(context.Background(), NewJob(NewFileSource(in, nil), &memorySink{}))
	require.NoError(t, err)

	cfg.Refit = true
	second, err := NewRunner(cfg, nil, nil).Run(context.Background(), NewJob(NewFileSource(in, nil), &memorySink{}))
	require.NoError(t, err)

	assert.Equal(t, standardizer.ModeFit, second.Standardization.Mode)
	assert.NotEqual(t, first.Standardization.Params.ID, second.Standardization.Params.ID)
}

func TestRunMissingFileSkipsDataset(t *testing.T) {
	runner := NewRunner(RunnerConfig{Cleaning: cleaner.DefaultConfig()}, nil, nil)

	result, err := runner.Run(context.Background(),
		NewJob(NewFileSource(filepath.Join(t.TempDir(), "absent.csv"), nil), &memorySink{}))
	require.Error(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, ActionSkipDataset.String(), result.Action)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrorCategoryIO, result.Errors[0].Category)
	assert.Equal(t, "load", result.Errors[0].Stage)
	assert.Equal(t, 0, result.Retries)
	assert.Equal(t, 1, runner.Errors().ErrorCounts()[ErrorCategoryIO])
}

func TestRunRetriesTransientErrors(t *testing.T) {
	ds := model.NewDataset("flaky", []model.Column{{Name: "a", Type: model.TypeNumeric}})
	ds.AppendRow(model.Row{"a": 1.0})
	src := &fakeSource{
		name:  "flaky",
		err:   &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
		fails: 2,
		ds:    ds,
	}

	runner := NewRunner(RunnerConfig{Cleaning: cleaner.DefaultConfig()}, nil, nil)
	result, err := runner.Run(context.Background(), NewJob(src, &memorySink{}))
	require.NoError(t, err)

	assert.Equal(t, 3, src.calls)
	assert.Equal(t, 2, result.Retries)
	assert.Equal(t, int64(1), result.RowsWritten)
}

func TestRunAllSkipsBadDatasetsAndKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	good := writeInput(t, dir, "good.csv", visitsCSV)
	sink := &memorySink{}

	jobs := []Job{
		NewJob(NewFileSource(good, nil), sink),
		NewJob(NewFileSource(filepath.Join(dir, "missing.csv"), nil), sink),
		NewJob(NewFileSource(writeInput(t, dir, "bad.csv", "a,a\n1,2\n"), nil), sink),
	}

	metrics := NewRunMetrics(nil)
	runner := NewRunner(RunnerConfig{Cleaning: cleaner.DefaultConfig(), Workers: 2}, metrics, nil)
	results, err := runner.RunAll(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "good", results[0].Dataset)
	assert.Equal(t, StatusSucceeded, results[0].Status)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Equal(t, StatusFailed, results[2].Status)
	assert.Equal(t, ErrorCategoryDataShape, results[2].Errors[0].Category)
	assert.Contains(t, sink.written, "good")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.datasets.WithLabelValues("succeeded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.datasets.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.rows.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.errorsSeen.WithLabelValues("DataShape")))

	report := metrics.GenerateReport()
	assert.Contains(t, report, "Successful Datasets:     1")
	assert.Contains(t, report, "Failed Datasets")
	assert.Contains(t, report, "- missing:")

	data, err := metrics.ToJSON()
	require.NoError(t, err)
	var summary struct {
		Succeeded   []string       `json:"succeeded"`
		ErrorCounts map[string]int `json:"errorCounts"`
	}
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, []string{"good"}, summary.Succeeded)
	assert.Equal(t, 1, summary.ErrorCounts["DataShape"])
}

func TestRunAllAbortsOnConfigurationError(t *testing.T) {
	bad := &fakeSource{
		name:  "misconfigured",
		err:   &model.ConfigurationError{Option: "missing_strategy", Value: "magic", Reason: "unknown strategy"},
		fails: 1,
	}

	runner := NewRunner(RunnerConfig{Cleaning: cleaner.DefaultConfig(), Workers: 1}, nil, nil)
	results, err := runner.RunAll(context.Background(), []Job{NewJob(bad, &memorySink{})})

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	assert.Equal(t, ActionAbort.String(), results[0].Action)
}

func TestRunAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{name: "never"}
	runner := NewRunner(RunnerConfig{Cleaning: cleaner.DefaultConfig()}, nil, nil)
	results, err := runner.RunAll(ctx, []Job{NewJob(src, &memorySink{})})

	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, results[0].Status)
	assert.Equal(t, 0, src.calls)
}

package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const metricsNamespace = "datapipe"

// RunMetrics tracks a batch of jobs. Counters are exported through a private Prometheus
// registry and also kept in memory for the end-of-run text report.
type RunMetrics struct {
	mu        sync.Mutex
	logger    *zap.Logger
	registry  *prometheus.Registry
	StartTime time.Time
	EndTime   time.Time

	Succeeded        []string
	Failed           map[string]string // dataset -> error message
	Skipped          map[string]string // dataset -> reason
	TotalRowsRead    int64
	TotalRowsWritten int64
	TotalImputed     int
	TotalOutliers    int
	TotalDuplicates  int
	TotalWarnings    int
	ErrorCounts      map[ErrorCategory]int

	datasets   *prometheus.CounterVec
	rows       *prometheus.CounterVec
	cleaned    *prometheus.CounterVec
	warnings   *prometheus.CounterVec
	errorsSeen *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewRunMetrics creates a new RunMetrics with its own registry
func NewRunMetrics(logger *zap.Logger) *RunMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &RunMetrics{
		logger:      logger,
		registry:    prometheus.NewRegistry(),
		StartTime:   time.Now(),
		Failed:      make(map[string]string),
		Skipped:     make(map[string]string),
		ErrorCounts: make(map[ErrorCategory]int),
		datasets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "datasets_total",
			Help:      "Datasets processed, by final status.",
		}, []string{"status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_total",
			Help:      "Rows read from sources and written to sinks.",
		}, []string{"direction"}),
		cleaned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cleaning_changes_total",
			Help:      "Values or rows changed by cleaning, by kind.",
		}, []string{"kind"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "warnings_total",
			Help:      "Non-fatal warnings, by code.",
		}, []string{"code"}),
		errorsSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Job errors, by category.",
		}, []string{"category"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of one job.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"status"}),
	}

	m.registry.MustRegister(m.datasets, m.rows, m.cleaned, m.warnings, m.errorsSeen, m.duration)
	return m
}

// Registry exposes the collectors, e.g. for promhttp or testutil
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format
func (m *RunMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordResult folds one job result into the metrics
func (m *RunMetrics) RecordResult(result *RunResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := string(result.Status)
	m.datasets.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(result.Duration.Seconds())
	m.rows.WithLabelValues("read").Add(float64(result.RowsRead))
	m.rows.WithLabelValues("written").Add(float64(result.RowsWritten))

	m.TotalRowsRead += int64(result.RowsRead)
	m.TotalRowsWritten += result.RowsWritten

	switch result.Status {
	case StatusSucceeded:
		m.Succeeded = append(m.Succeeded, result.Dataset)
	case StatusSkipped:
		m.Skipped[result.Dataset] = errorMessage(result)
	default:
		m.Failed[result.Dataset] = errorMessage(result)
	}

	if c := result.Cleaning; c != nil {
		m.TotalImputed += c.TotalImputed()
		m.TotalOutliers += c.TotalOutliers()
		m.TotalDuplicates += c.DuplicatesRemoved
		m.cleaned.WithLabelValues("imputed").Add(float64(c.TotalImputed()))
		m.cleaned.WithLabelValues("outliers").Add(float64(c.TotalOutliers()))
		m.cleaned.WithLabelValues("duplicates").Add(float64(c.DuplicatesRemoved))
		m.cleaned.WithLabelValues("rows_dropped").Add(float64(c.RowsDropped))
		for _, w := range c.Warnings {
			m.warnings.WithLabelValues(string(w.Code)).Inc()
		}
	}
	if s := result.Standardization; s != nil {
		for _, w := range s.Warnings {
			m.warnings.WithLabelValues(string(w.Code)).Inc()
		}
	}
	m.TotalWarnings += result.WarningCount()

	m.logger.Info("Recorded job result",
		zap.String("dataset", result.Dataset),
		zap.String("status", status),
		zap.Int("rowsRead", result.RowsRead),
		zap.Int64("rowsWritten", result.RowsWritten),
		zap.Duration("duration", result.Duration))
}

// RecordError counts an error by category
func (m *RunMetrics) RecordError(category ErrorCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCounts[category]++
	m.errorsSeen.WithLabelValues(category.String()).Inc()
}

// Complete marks the end of the batch
func (m *RunMetrics) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndTime = time.Now()
}

// Duration returns the batch duration so far
func (m *RunMetrics) Duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// Throughput returns rows written per second
func (m *RunMetrics) Throughput() float64 {
	seconds := m.Duration().Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(m.TotalRowsWritten) / seconds
}

func errorMessage(result *RunResult) string {
	if err := result.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// getPercentage safely calculates a percentage, avoiding division by zero
func getPercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}

// GenerateReport creates the end-of-run text report
func (m *RunMetrics) GenerateReport() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := len(m.Succeeded) + len(m.Failed) + len(m.Skipped)

	var sb strings.Builder
	fmt.Fprintf(&sb, `
Pipeline Metrics Report
=======================
Duration:                %s

Datasets Summary
----------------
Total Datasets:          %d
Successful Datasets:     %d (%.1f%%)
Failed Datasets:         %d (%.1f%%)
Skipped Datasets:        %d (%.1f%%)

Data Summary
------------
Total Rows Read:         %d
Total Rows Written:      %d
Duplicates Removed:      %d
Values Imputed:          %d
Outliers Handled:        %d
Warnings:                %d
Average Throughput:      %.2f rows/sec
`,
		formatDuration(m.Duration()),
		total,
		len(m.Succeeded), getPercentage(float64(len(m.Succeeded)), float64(total)),
		len(m.Failed), getPercentage(float64(len(m.Failed)), float64(total)),
		len(m.Skipped), getPercentage(float64(len(m.Skipped)), float64(total)),
		m.TotalRowsRead,
		m.TotalRowsWritten,
		m.TotalDuplicates,
		m.TotalImputed,
		m.TotalOutliers,
		m.TotalWarnings,
		m.Throughput(),
	)

	writeReasons(&sb, "Failed Datasets", m.Failed)
	writeReasons(&sb, "Skipped Datasets", m.Skipped)

	if len(m.ErrorCounts) > 0 {
		sb.WriteString("\nError Distribution\n------------------\n")
		totalErrors := 0
		for _, count := range m.ErrorCounts {
			totalErrors += count
		}
		categories := make([]ErrorCategory, 0, len(m.ErrorCounts))
		for category := range m.ErrorCounts {
			categories = append(categories, category)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
		for _, category := range categories {
			count := m.ErrorCounts[category]
			fmt.Fprintf(&sb, "- %s: %d (%.1f%%)\n", category, count,
				getPercentage(float64(count), float64(totalErrors)))
		}
	}

	return sb.String()
}

func writeReasons(sb *strings.Builder, title string, reasons map[string]string) {
	if len(reasons) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
	names := make([]string, 0, len(reasons))
	for name := range reasons {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(sb, "- %s: %s\n", name, reasons[name])
	}
}

// ToJSON serializes metrics to JSON
func (m *RunMetrics) ToJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	errorCounts := make(map[string]int, len(m.ErrorCounts))
	for category, count := range m.ErrorCounts {
		errorCounts[category.String()] = count
	}

	return json.Marshal(struct {
		Duration         string            `json:"duration"`
		Succeeded        []string          `json:"succeeded"`
		Failed           map[string]string `json:"failed"`
		Skipped          map[string]string `json:"skipped"`
		TotalRowsRead    int64             `json:"totalRowsRead"`
		TotalRowsWritten int64             `json:"totalRowsWritten"`
		TotalImputed     int               `json:"totalImputed"`
		TotalOutliers    int               `json:"totalOutliers"`
		TotalDuplicates  int               `json:"totalDuplicates"`
		TotalWarnings    int               `json:"totalWarnings"`
		ErrorCounts      map[string]int    `json:"errorCounts"`
	}{
		Duration:         formatDuration(m.Duration()),
		Succeeded:        m.Succeeded,
		Failed:           m.Failed,
		Skipped:          m.Skipped,
		TotalRowsRead:    m.TotalRowsRead,
		TotalRowsWritten: m.TotalRowsWritten,
		TotalImputed:     m.TotalImputed,
		TotalOutliers:    m.TotalOutliers,
		TotalDuplicates:  m.TotalDuplicates,
		TotalWarnings:    m.TotalWarnings,
		ErrorCounts:      errorCounts,
	})
}

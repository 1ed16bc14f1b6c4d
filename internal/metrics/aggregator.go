// internal/metrics/aggregator.go
package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mwiater/studyrag/internal/logging"
)

// Aggregator collects and manages performance metrics for backend models.
type Aggregator struct {
	mutex    sync.Mutex
	metrics  map[string]*ModelMetrics
	filePath string
}

var (
	instance *Aggregator
	once     sync.Once
)

// GetInstance returns the process-wide Aggregator, persisting to filePath. The
// path passed on the first call wins.
func GetInstance(filePath string) *Aggregator {
	once.Do(func() {
		instance = NewAggregator(filePath)
	})
	return instance
}

// NewAggregator creates an Aggregator and loads any metrics already stored at filePath.
func NewAggregator(filePath string) *Aggregator {
	agg := &Aggregator{
		metrics:  make(map[string]*ModelMetrics),
		filePath: filePath,
	}
	agg.load()
	return agg
}

func metricsKey(model, op string) string {
	return model + "|" + op
}

// load reads metrics from the JSON file into memory.
func (a *Aggregator) load() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.filePath == "" {
		return
	}
	data, err := os.ReadFile(a.filePath)
	if err != nil {
		return
	}

	var metricsSlice []*ModelMetrics
	if err := json.Unmarshal(data, &metricsSlice); err != nil {
		logging.LogWarn("[METRICS] ignoring unreadable metrics file %s: %v", a.filePath, err)
		return
	}

	for _, m := range metricsSlice {
		a.metrics[metricsKey(m.ModelName, m.Operation)] = m
	}
}

// Save writes the current metrics from memory to the JSON file.
func (a *Aggregator) Save() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.filePath == "" {
		return nil
	}
	logging.LogEvent("[METRICS] Saving metrics to %s", a.filePath)

	data, err := json.MarshalIndent(a.sortedLocked(), "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(a.filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(a.filePath, data, 0o644)
}

// Snapshot returns a copy of the collected metrics ordered by model and operation.
func (a *Aggregator) Snapshot() []ModelMetrics {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	sorted := a.sortedLocked()
	out := make([]ModelMetrics, len(sorted))
	for i, m := range sorted {
		out[i] = *m
		out[i].PerformanceBuckets = append([]PerformanceBucket(nil), m.PerformanceBuckets...)
	}
	return out
}

func (a *Aggregator) sortedLocked() []*ModelMetrics {
	metricsSlice := make([]*ModelMetrics, 0, len(a.metrics))
	for _, m := range a.metrics {
		metricsSlice = append(metricsSlice, m)
	}
	sort.Slice(metricsSlice, func(i, j int) bool {
		if metricsSlice[i].ModelName != metricsSlice[j].ModelName {
			return metricsSlice[i].ModelName < metricsSlice[j].ModelName
		}
		return metricsSlice[i].Operation < metricsSlice[j].Operation
	})
	return metricsSlice
}

// Record updates the metrics for the sample's model and operation.
func (a *Aggregator) Record(s Sample) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	key := metricsKey(s.Model, s.Operation)
	modelMetrics, exists := a.metrics[key]
	if !exists {
		modelMetrics = &ModelMetrics{
			ModelName: s.Model,
			Operation: s.Operation,
		}
		a.metrics[key] = modelMetrics
	}

	modelMetrics.LastUpdatedUTC = time.Now().UTC()

	updateStats(&modelMetrics.OverallStats, s)

	bucket := getBucket(s.Texts)
	for i := range modelMetrics.PerformanceBuckets {
		if modelMetrics.PerformanceBuckets[i].Dimension == "batch_size" && modelMetrics.PerformanceBuckets[i].Bucket == bucket {
			updateStats(&modelMetrics.PerformanceBuckets[i].Stats, s)
			return
		}
	}
	newBucket := PerformanceBucket{Dimension: "batch_size", Bucket: bucket}
	updateStats(&newBucket.Stats, s)
	modelMetrics.PerformanceBuckets = append(modelMetrics.PerformanceBuckets, newBucket)
}

// updateStats folds one sample into the running statistics. Failed calls only
// count toward TotalRequests and Failures.
func updateStats(stats *RunningAggregatedStats, s Sample) {
	stats.TotalRequests++
	if s.Err != nil {
		stats.Failures++
		return
	}
	updateRunningStat(&stats.LatencyMillis, float64(s.Latency.Milliseconds()))
	updateRunningStat(&stats.TextsPerRequest, float64(s.Texts))
	updateRunningStat(&stats.InputChars, float64(s.InputChars))
	updateRunningStat(&stats.OutputChars, float64(s.OutputChars))
}

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}

// StdDev returns the sample standard deviation.
func (rs RunningStat) StdDev() float64 {
	if rs.Count < 2 {
		return 0
	}
	return math.Sqrt(rs.M2 / float64(rs.Count-1))
}

// getBucket determines the performance bucket for a request carrying n texts.
func getBucket(n int) string {
	switch {
	case n <= 1:
		return "1"
	case n <= 16:
		return "2-16"
	case n <= 64:
		return "17-64"
	case n <= 256:
		return "65-256"
	default:
		return "256+"
	}
}

// Summary renders one line per model and operation.
func (a *Aggregator) Summary() string {
	snapshot := a.Snapshot()
	if len(snapshot) == 0 {
		return "no backend calls recorded"
	}
	var b strings.Builder
	for _, m := range snapshot {
		s := m.OverallStats
		fmt.Fprintf(&b, "%s %s: requests=%d failures=%d latency_ms(mean=%.1f sd=%.1f max=%.0f) texts/request=%.1f\n",
			m.ModelName, m.Operation, s.TotalRequests, s.Failures,
			s.LatencyMillis.Mean, s.LatencyMillis.StdDev(), s.LatencyMillis.Max, s.TextsPerRequest.Mean)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Close saves the singleton aggregator, if one was created.
func Close() error {
	if instance != nil {
		return instance.Save()
	}
	return nil
}

// internal/metrics/types.go
package metrics

import "time"

// ModelMetrics is the top-level document for a single backend model's aggregated data.
type ModelMetrics struct {
	ModelName          string                 `json:"model_name"`
	Operation          string                 `json:"operation"`
	LastUpdatedUTC     time.Time              `json:"last_updated_utc"`
	OverallStats       RunningAggregatedStats `json:"overall_stats"`
	PerformanceBuckets []PerformanceBucket    `json:"performance_buckets"`
}

// PerformanceBucket holds aggregated stats for a specific dimension, like batch size.
type PerformanceBucket struct {
	Dimension string                 `json:"dimension"`
	Bucket    string                 `json:"bucket"`
	Stats     RunningAggregatedStats `json:"stats"`
}

// RunningAggregatedStats stores the running statistical values for a set of calls.
// It uses Welford's online algorithm for calculating mean and standard deviation.
type RunningAggregatedStats struct {
	TotalRequests int64 `json:"total_requests"`
	Failures      int64 `json:"failures"`

	LatencyMillis   RunningStat `json:"latency_ms"`
	TextsPerRequest RunningStat `json:"texts_per_request"`
	InputChars      RunningStat `json:"input_chars"`
	OutputChars     RunningStat `json:"output_chars"`
}

// RunningStat holds the necessary values for online calculation of mean, variance, and stddev.
type RunningStat struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"m2"` // Sum of squares of differences from the current mean
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Sample is one observed backend call.
type Sample struct {
	Model       string
	Operation   string
	Texts       int
	InputChars  int
	OutputChars int
	Latency     time.Duration
	Err         error
}

package metrics

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type stubEmbedder struct {
	err error
}

func (s stubEmbedder) EmbedOne(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0}, nil
}

func (s stubEmbedder) EmbedBatch(_ context.Context, texts []string, _ int) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (stubEmbedder) Dimension() int { return 2 }
func (stubEmbedder) Name() string   { return "stub/model" }

func TestUpdateRunningStat(t *testing.T) {
	var rs RunningStat
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		updateRunningStat(&rs, v)
	}
	if rs.Count != 8 || rs.Mean != 5 || rs.Min != 2 || rs.Max != 9 {
		t.Fatalf("unexpected running stat: %+v", rs)
	}
	if got := rs.StdDev(); math.Abs(got-2.138) > 0.001 {
		t.Fatalf("unexpected stddev: %f", got)
	}
}

func TestGetBucket(t *testing.T) {
	cases := map[int]string{0: "1", 1: "1", 2: "2-16", 64: "17-64", 100: "65-256", 1000: "256+"}
	for n, want := range cases {
		if got := getBucket(n); got != want {
			t.Fatalf("getBucket(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestEmbedderDecoratorRecordsCalls(t *testing.T) {
	agg := NewAggregator("")
	embedder := NewEmbedder(stubEmbedder{}, agg)

	if _, err := embedder.EmbedBatch(context.Background(), []string{"a", "b", "c"}, 2); err != nil {
		t.Fatalf("EmbedBatch returned error: %v", err)
	}
	if _, err := embedder.EmbedOne(context.Background(), "q"); err != nil {
		t.Fatalf("EmbedOne returned error: %v", err)
	}

	snapshot := agg.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 metric groups, got %d", len(snapshot))
	}
	batch := snapshot[0]
	if batch.Operation != "embed_batch" || batch.ModelName != "stub/model" {
		t.Fatalf("unexpected first group: %+v", batch)
	}
	if batch.OverallStats.TotalRequests != 1 || batch.OverallStats.TextsPerRequest.Mean != 3 {
		t.Fatalf("unexpected batch stats: %+v", batch.OverallStats)
	}
	if embedder.Dimension() != 2 || embedder.Name() != "stub/model" {
		t.Fatalf("decorator did not pass through identity")
	}
}

func TestFailuresAreCountedSeparately(t *testing.T) {
	agg := NewAggregator("")
	embedder := NewEmbedder(stubEmbedder{err: errors.New("down")}, agg)

	if _, err := embedder.EmbedOne(context.Background(), "q"); err == nil {
		t.Fatalf("expected error to pass through")
	}
	stats := agg.Snapshot()[0].OverallStats
	if stats.TotalRequests != 1 || stats.Failures != 1 || stats.LatencyMillis.Count != 0 {
		t.Fatalf("unexpected failure stats: %+v", stats)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "embedding_metrics.json")
	agg := NewAggregator(path)
	agg.Record(Sample{Model: "m", Operation: "embed_batch", Texts: 10, Latency: 25 * time.Millisecond})
	if err := agg.Save(); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	reloaded := NewAggregator(path)
	reloaded.Record(Sample{Model: "m", Operation: "embed_batch", Texts: 10, Latency: 35 * time.Millisecond})
	stats := reloaded.Snapshot()[0].OverallStats
	if stats.TotalRequests != 2 || stats.LatencyMillis.Mean != 30 {
		t.Fatalf("expected stats to accumulate across reload, got %+v", stats)
	}
	if !strings.Contains(reloaded.Summary(), "m embed_batch: requests=2") {
		t.Fatalf("unexpected summary: %s", reloaded.Summary())
	}
}

func TestSummaryEmpty(t *testing.T) {
	if got := NewAggregator("").Summary(); got != "no backend calls recorded" {
		t.Fatalf("unexpected empty summary: %s", got)
	}
}

package metrics

import (
	"sort"
	"testing"
	"time"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatalf("expected non-nil collector")
	}
}

func TestCollectorRecordAndGetTimeSeries(t *testing.T) {
	c := NewCollector()
	c.Start()

	c.Record("velocity", 10.0, 0, nil)
	c.Record("velocity", 20.0, 1.5, nil)
	c.Record("velocity", 30.0, 2.25, nil)

	points := c.GetTimeSeries("velocity", nil)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Value != 10.0 || points[1].Value != 20.0 || points[2].Value != 30.0 {
		t.Fatalf("unexpected values: %v %v %v", points[0].Value, points[1].Value, points[2].Value)
	}
	if points[2].Time != 2.25 {
		t.Fatalf("expected sim time 2.25, got %f", points[2].Time)
	}

	// returned points are copies
	points[0].Value = -1
	if c.GetTimeSeries("velocity", nil)[0].Value != 10.0 {
		t.Fatalf("time series must not alias collector state")
	}
}

func TestCollectorRecordWithLabels(t *testing.T) {
	c := NewCollector()
	labels := map[string]string{"strategy": "policy", "segment": "1"}
	c.Record("power", 200.0, 0, labels)

	// label order does not matter
	points := c.GetTimeSeries("power", map[string]string{"segment": "1", "strategy": "policy"})
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if points[0].Labels["strategy"] != "policy" {
		t.Fatalf("expected strategy label policy, got %s", points[0].Labels["strategy"])
	}
	if got := c.GetTimeSeries("power", nil); got != nil {
		t.Fatalf("expected no unlabelled points, got %d", len(got))
	}
}

func TestCollectorGetAggregation(t *testing.T) {
	c := NewCollector()
	for i, v := range []float64{10.0, 20.0, 30.0, 40.0, 50.0} {
		c.Record("energy", v, float64(i), nil)
	}

	agg := c.GetAggregation("energy", nil)
	if agg == nil {
		t.Fatalf("expected non-nil aggregation")
	}
	if agg.Count != 5 {
		t.Fatalf("expected count 5, got %d", agg.Count)
	}
	if agg.Min != 10.0 || agg.Max != 50.0 {
		t.Fatalf("expected min/max 10/50, got %f/%f", agg.Min, agg.Max)
	}
	if agg.Mean != 30.0 || agg.Sum != 150.0 {
		t.Fatalf("expected mean 30 sum 150, got %f %f", agg.Mean, agg.Sum)
	}
}

func TestCollectorPercentiles(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 100; i++ {
		c.Record("power", float64(i+1), float64(i)*0.1, nil)
	}

	agg := c.GetAggregation("power", nil)
	if agg == nil {
		t.Fatalf("expected non-nil aggregation")
	}
	if agg.P50 < 50.0 || agg.P50 > 51.0 {
		t.Fatalf("expected P50 around 50.5, got %f", agg.P50)
	}
	if agg.P95 < 95.0 || agg.P95 > 96.0 {
		t.Fatalf("expected P95 around 95.5, got %f", agg.P95)
	}
	if agg.P99 < 99.0 || agg.P99 > 100.0 {
		t.Fatalf("expected P99 around 99.5, got %f", agg.P99)
	}
}

func TestCollectorGetOrComputeAggregationInvalidates(t *testing.T) {
	c := NewCollector()
	c.Record("power", 10.0, 0, nil)
	c.Record("power", 20.0, 1, nil)

	agg1 := c.GetOrComputeAggregation("power", nil)
	agg2 := c.GetOrComputeAggregation("power", nil)
	if agg1 == nil || agg1 != agg2 {
		t.Fatalf("expected cached aggregation to be returned")
	}

	c.Record("power", 30.0, 2, nil)
	agg3 := c.GetOrComputeAggregation("power", nil)
	if agg3.Count != 3 {
		t.Fatalf("expected recomputed count 3 after new point, got %d", agg3.Count)
	}
}

func TestCollectorComputeAllAggregations(t *testing.T) {
	c := NewCollector()
	c.Record("metric1", 10.0, 0, nil)
	c.Record("metric2", 20.0, 0, map[string]string{"strategy": "constant"})

	c.ComputeAllAggregations()

	if c.GetOrComputeAggregation("metric1", nil) == nil {
		t.Fatalf("expected non-nil aggregation for metric1")
	}
	if c.GetOrComputeAggregation("metric2", map[string]string{"strategy": "constant"}) == nil {
		t.Fatalf("expected non-nil aggregation for metric2")
	}
}

func TestCollectorGetSummary(t *testing.T) {
	c := NewCollector()
	c.Start()
	c.Record("metric1", 10.0, 0, nil)
	c.Record("metric1", 20.0, 1, nil)
	c.Record("metric2", 30.0, 0, nil)

	time.Sleep(10 * time.Millisecond)
	c.Stop()

	summary := c.GetSummary()
	if len(summary.Metrics["metric1"]) != 2 {
		t.Fatalf("expected 2 values for metric1, got %d", len(summary.Metrics["metric1"]))
	}
	if summary.Aggregations["metric2"] == nil {
		t.Fatalf("expected aggregation for metric2")
	}
	if summary.WallDuration <= 0 {
		t.Fatalf("expected positive wall duration, got %v", summary.WallDuration)
	}
}

func TestCollectorGetMetricNamesSorted(t *testing.T) {
	c := NewCollector()
	c.Record("b", 1, 0, nil)
	c.Record("c", 1, 0, nil)
	c.Record("a", 1, 0, nil)

	names := c.GetMetricNames()
	if len(names) != 3 || !sort.StringsAreSorted(names) {
		t.Fatalf("expected 3 sorted names, got %v", names)
	}
}

func TestCollectorGetLabelsForMetric(t *testing.T) {
	c := NewCollector()
	c.Record("metric1", 10.0, 0, map[string]string{"strategy": "a"})
	c.Record("metric1", 20.0, 0, map[string]string{"strategy": "b"})
	c.Record("metric1", 30.0, 0, nil)

	labelsList := c.GetLabelsForMetric("metric1")
	if len(labelsList) != 3 {
		t.Fatalf("expected 3 label combinations, got %d", len(labelsList))
	}
	if c.GetLabelsForMetric("missing") != nil {
		t.Fatalf("expected nil for unknown metric")
	}
}

func TestCollectorClear(t *testing.T) {
	c := NewCollector()
	c.Record("metric1", 10.0, 0, nil)
	c.Clear()

	if names := c.GetMetricNames(); len(names) != 0 {
		t.Fatalf("expected 0 metric names after clear, got %d", len(names))
	}
	if c.GetAggregation("metric1", nil) != nil {
		t.Fatalf("expected nil aggregation after clear")
	}
}

func TestPercentileCalculation(t *testing.T) {
	if p := calculatePercentile([]float64{10.0}, 0.50); p != 10.0 {
		t.Fatalf("expected P50 10.0 for single value, got %f", p)
	}
	if p := calculatePercentile([]float64{10.0, 20.0}, 0.50); p != 15.0 {
		t.Fatalf("expected P50 15.0 for [10,20], got %f", p)
	}
	if p := calculatePercentile([]float64{10, 20, 30, 40, 50}, 0.50); p != 30.0 {
		t.Fatalf("expected P50 30.0, got %f", p)
	}
	if p := calculatePercentile(nil, 0.5); p != 0 {
		t.Fatalf("expected 0 for empty input, got %f", p)
	}
}

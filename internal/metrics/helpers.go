package metrics

import (
	"math"
	"strconv"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"github.com/samber/lo"
)

// Common metric names
const (
	MetricVelocity    = "velocity_mps"
	MetricEnergy      = "energy_j"
	MetricPower       = "power_w"
	MetricStepTime    = "step_time_s"
	MetricConsumed    = "energy_consumed_j"
	MetricRegenerated = "energy_regenerated_j"
	MetricIncline     = "incline_rad"
)

// StepSample is what the simulation driver reports after each step.
type StepSample struct {
	Time        float64
	Velocity    float64
	Energy      float64
	Power       float64
	DeltaT      float64
	Consumed    float64
	Regenerated float64
	Incline     float64
}

// RecordStep records every series of one step at the sample's time.
func RecordStep(collector *Collector, s StepSample, labels map[string]string) {
	collector.Record(MetricVelocity, s.Velocity, s.Time, labels)
	collector.Record(MetricEnergy, s.Energy, s.Time, labels)
	collector.Record(MetricPower, s.Power, s.Time, labels)
	collector.Record(MetricStepTime, s.DeltaT, s.Time, labels)
	collector.Record(MetricConsumed, s.Consumed, s.Time, labels)
	collector.Record(MetricRegenerated, s.Regenerated, s.Time, labels)
	collector.Record(MetricIncline, s.Incline, s.Time, labels)
}

// CreateStrategyLabels creates a labels map for a strategy
func CreateStrategyLabels(strategy string) map[string]string {
	return map[string]string{
		"strategy": strategy,
	}
}

// CreateSegmentLabels creates a labels map for a route segment
func CreateSegmentLabels(strategy string, segment int) map[string]string {
	return map[string]string{
		"strategy": strategy,
		"segment":  strconv.Itoa(segment),
	}
}

// Summarize builds a run summary from a trace. The first record is the
// initial state; every later record is one applied step.
func Summarize(records []models.TraceRecord, routeDistance float64, status models.TerminalStatus, strategy string) models.RunSummary {
	summary := models.RunSummary{
		Status:        status,
		RouteDistance: routeDistance,
		Strategy:      strategy,
	}
	if len(records) == 0 {
		return summary
	}

	first, last := records[0], records[len(records)-1]
	steps := records[1:]

	summary.TotalTime = last.Time
	summary.Distance = last.Distance
	summary.EnergyLeft = last.Energy
	summary.EnergyUsed = math.Max(first.Energy-last.Energy, 0)
	summary.Steps = len(steps)
	summary.MaxVelocity = lo.MaxBy(records, func(a, b models.TraceRecord) bool {
		return a.Velocity > b.Velocity
	}).Velocity
	if last.Time > 0 {
		summary.AvgVelocity = (last.Distance - first.Distance) / last.Time
	}

	// time-weighted mean power: each step's power held for its duration
	if last.Time > 0 {
		work := 0.0
		prev := first.Time
		for _, r := range steps {
			work += r.Power * (r.Time - prev)
			prev = r.Time
		}
		summary.AvgPower = work / last.Time
	}
	return summary
}

// ConvertToRunMetrics aggregates every series of a collector, keyed by
// metric name, across all label sets.
func ConvertToRunMetrics(collector *Collector) map[string]*models.Aggregation {
	out := make(map[string]*models.Aggregation)
	for _, name := range collector.GetMetricNames() {
		var points []*models.MetricPoint
		for _, labels := range collector.GetLabelsForMetric(name) {
			points = append(points, collector.GetTimeSeries(name, labels)...)
		}
		if agg := calculateAggregation(points); agg != nil {
			out[name] = agg
		}
	}
	return out
}

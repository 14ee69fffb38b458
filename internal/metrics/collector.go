package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"github.com/samber/lo"
)

// Collector collects per-step time series during a simulation. It is safe
// for concurrent use so a daemon can read series while a run is in flight.
type Collector struct {
	mu sync.RWMutex

	wallStart time.Time
	wallEnd   time.Time

	// metric name -> label key -> points
	timeSeries map[string]map[string][]*models.MetricPoint

	// metric name -> label key -> cached aggregation
	aggregations map[string]map[string]*models.Aggregation
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		wallStart:    time.Now(),
		timeSeries:   make(map[string]map[string][]*models.MetricPoint),
		aggregations: make(map[string]map[string]*models.Aggregation),
	}
}

// Start marks the wall-clock start of collection
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallStart = time.Now()
}

// Stop marks the wall-clock end of collection
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallEnd = time.Now()
}

// Record records a value at simulated time simTime.
func (c *Collector) Record(name string, value, simTime float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.timeSeries[name] == nil {
		c.timeSeries[name] = make(map[string][]*models.MetricPoint)
	}
	c.timeSeries[name][key] = append(c.timeSeries[name][key], &models.MetricPoint{
		Time:   simTime,
		Name:   name,
		Value:  value,
		Labels: copyLabels(labels),
	})
	// a new point invalidates the cached aggregation
	if c.aggregations[name] != nil {
		delete(c.aggregations[name], key)
	}
}

// GetTimeSeries returns a copy of all points for a metric and label set
func (c *Collector) GetTimeSeries(name string, labels map[string]string) []*models.MetricPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.getPointsUnsafe(name, labelKey(labels))
	if points == nil {
		return nil
	}
	return lo.Map(points, func(p *models.MetricPoint, _ int) *models.MetricPoint {
		return &models.MetricPoint{Time: p.Time, Name: p.Name, Value: p.Value, Labels: copyLabels(p.Labels)}
	})
}

// GetAggregation calculates aggregated statistics for a metric
func (c *Collector) GetAggregation(name string, labels map[string]string) *models.Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return calculateAggregation(c.getPointsUnsafe(name, labelKey(labels)))
}

// GetOrComputeAggregation gets cached aggregation or computes it
func (c *Collector) GetOrComputeAggregation(name string, labels map[string]string) *models.Aggregation {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.aggregations[name] == nil {
		c.aggregations[name] = make(map[string]*models.Aggregation)
	}
	if agg, ok := c.aggregations[name][key]; ok {
		return agg
	}

	agg := calculateAggregation(c.getPointsUnsafe(name, key))
	if agg != nil {
		c.aggregations[name][key] = agg
	}
	return agg
}

// ComputeAllAggregations computes aggregations for all metrics
func (c *Collector) ComputeAllAggregations() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, labelMap := range c.timeSeries {
		if c.aggregations[name] == nil {
			c.aggregations[name] = make(map[string]*models.Aggregation)
		}
		for key, points := range labelMap {
			if len(points) > 0 {
				c.aggregations[name][key] = calculateAggregation(points)
			}
		}
	}
}

// GetSummary returns all collected values and their unlabelled aggregations
func (c *Collector) GetSummary() *models.MetricsSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := &models.MetricsSummary{
		WallStart:    c.wallStart,
		WallEnd:      c.wallEnd,
		Metrics:      make(map[string][]float64),
		Aggregations: make(map[string]*models.Aggregation),
	}
	if !c.wallEnd.IsZero() {
		summary.WallDuration = c.wallEnd.Sub(c.wallStart)
	}

	for name, labelMap := range c.timeSeries {
		values := make([]float64, 0)
		for _, key := range sortedKeys(labelMap) {
			for _, p := range labelMap[key] {
				values = append(values, p.Value)
			}
		}
		summary.Metrics[name] = values
		if agg := calculateAggregation(labelMap[""]); agg != nil {
			summary.Aggregations[name] = agg
		}
	}
	return summary
}

// GetMetricNames returns all metric names that have been collected, sorted
func (c *Collector) GetMetricNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.timeSeries)
}

// GetLabelsForMetric returns all label combinations for a metric
func (c *Collector) GetLabelsForMetric(name string) []map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.timeSeries[name] == nil {
		return nil
	}
	labelsList := make([]map[string]string, 0, len(c.timeSeries[name]))
	for _, key := range sortedKeys(c.timeSeries[name]) {
		if points := c.timeSeries[name][key]; len(points) > 0 {
			labelsList = append(labelsList, copyLabels(points[0].Labels))
		}
	}
	return labelsList
}

// Clear clears all collected metrics
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeSeries = make(map[string]map[string][]*models.MetricPoint)
	c.aggregations = make(map[string]map[string]*models.Aggregation)
	c.wallStart = time.Now()
	c.wallEnd = time.Time{}
}

// getPointsUnsafe returns points without locking (caller must hold lock)
func (c *Collector) getPointsUnsafe(name, key string) []*models.MetricPoint {
	if c.timeSeries[name] == nil {
		return nil
	}
	return c.timeSeries[name][key]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

// labelKey creates a key from labels for map lookup
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	var b strings.Builder
	for _, k := range sortedKeys(labels) {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	return lo.Assign(labels)
}

// calculateAggregation calculates aggregated statistics from metric points
func calculateAggregation(points []*models.MetricPoint) *models.Aggregation {
	if len(points) == 0 {
		return nil
	}

	values := lo.Map(points, func(p *models.MetricPoint, _ int) float64 { return p.Value })
	sort.Float64s(values)
	sum := lo.Sum(values)

	return &models.Aggregation{
		Count: int64(len(values)),
		Sum:   sum,
		Min:   values[0],
		Max:   values[len(values)-1],
		Mean:  sum / float64(len(values)),
		P50:   calculatePercentile(values, 0.50),
		P95:   calculatePercentile(values, 0.95),
		P99:   calculatePercentile(values, 0.99),
	}
}

// calculatePercentile interpolates the p-quantile (0..1) of sorted values
func calculatePercentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0.0
	}
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	index := p * float64(len(sortedValues)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return sortedValues[len(sortedValues)-1]
	}

	weight := index - float64(lower)
	return sortedValues[lower]*(1-weight) + sortedValues[upper]*weight
}

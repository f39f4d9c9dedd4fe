package domain

import "math"

// Units of the built-in statistics.
const (
	UnitSeconds = "s"
	UnitCPUs    = "# CPUs"
	UnitGB      = "GB"
	UnitUSD     = "USD"
)

// StatisticBatch is a pre-reduced group of N data points.
type StatisticBatch struct {
	Minimum float64
	Maximum float64
	Average float64
	Count   int
}

// BatchOf reduces raw data points into a StatisticBatch.
func BatchOf(points ...float64) StatisticBatch {
	if len(points) == 0 {
		return StatisticBatch{}
	}
	b := StatisticBatch{Minimum: points[0], Maximum: points[0], Count: len(points)}
	sum := 0.0
	for _, p := range points {
		b.Minimum = math.Min(b.Minimum, p)
		b.Maximum = math.Max(b.Maximum, p)
		sum += p
	}
	b.Average = sum / float64(len(points))
	return b
}

// StatisticMetric is a running min/max/mean over every data point seen so far.
type StatisticMetric struct {
	Minimum                      float64 `json:"minimum"`
	Maximum                      float64 `json:"maximum"`
	Average                      float64 `json:"average"`
	NumberOfDataPointsForAverage int     `json:"numberOfDataPointsForAverage"`
	Unit                         string  `json:"unit,omitempty"`
}

// Merge folds a batch into the running statistic. Empty batches are no-ops.
func (m *StatisticMetric) Merge(b StatisticBatch) error {
	if b.Count < 0 {
		return NewValidationError("numberOfDataPoints", "batch size must not be negative, got %d", b.Count)
	}
	if b.Count == 0 {
		return nil
	}
	if b.Minimum > b.Maximum {
		return NewValidationError("minimum", "batch minimum %v exceeds maximum %v", b.Minimum, b.Maximum)
	}

	if m.NumberOfDataPointsForAverage == 0 {
		m.Minimum = b.Minimum
		m.Maximum = b.Maximum
		m.Average = b.Average
		m.NumberOfDataPointsForAverage = b.Count
		return nil
	}

	n := float64(m.NumberOfDataPointsForAverage)
	k := float64(b.Count)
	total := n + k

	m.Minimum = math.Min(m.Minimum, b.Minimum)
	m.Maximum = math.Max(m.Maximum, b.Maximum)
	// weights kept in float64 so large counts cannot overflow
	m.Average = m.Average*(n/total) + b.Average*(k/total)
	m.NumberOfDataPointsForAverage += b.Count
	return nil
}

// Combine merges another aggregate into m.
func (m *StatisticMetric) Combine(other StatisticMetric) error {
	if m.Unit == "" {
		m.Unit = other.Unit
	}
	return m.Merge(other.Batch())
}

// Batch returns m viewed as a single batch.
func (m StatisticMetric) Batch() StatisticBatch {
	return StatisticBatch{
		Minimum: m.Minimum,
		Maximum: m.Maximum,
		Average: m.Average,
		Count:   m.NumberOfDataPointsForAverage,
	}
}

// mergeStatistic allocates the statistic on first use.
func mergeStatistic(dst **StatisticMetric, b StatisticBatch, unit string) error {
	if b.Count <= 0 {
		// Merge rejects negative sizes and ignores empty batches
		var scratch StatisticMetric
		return scratch.Merge(b)
	}
	if *dst == nil {
		*dst = &StatisticMetric{Unit: unit}
	}
	return (*dst).Merge(b)
}

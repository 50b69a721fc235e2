package audio

import (
	"fmt"
	"math"
)

// Metric selects the loudness metric computed per frame. The two metrics
// are functionally equivalent up to scale; the silence threshold is
// calibrated against one of them, so the metric must not change while a
// session is active.
type Metric string

const (
	// MetricRMS is the root-mean-square amplitude of a frame.
	MetricRMS Metric = "rms"
	// MetricMeanAbs is the mean absolute amplitude of a frame.
	MetricMeanAbs Metric = "mean_abs"
)

// ParseMetric validates and returns a Metric from its configuration string.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricRMS:
		return MetricRMS, nil
	case MetricMeanAbs:
		return MetricMeanAbs, nil
	default:
		return "", fmt.Errorf("unknown loudness metric %q (must be %q or %q)", s, MetricRMS, MetricMeanAbs)
	}
}

// Meter computes a scalar loudness value per frame. It is stateless; the
// same frame always yields the same value for a given metric.
type Meter struct {
	metric Metric
}

// NewMeter creates a meter for the given metric. Unknown metrics are
// rejected here so Measure never has to guess.
func NewMeter(metric Metric) (*Meter, error) {
	switch metric {
	case MetricRMS, MetricMeanAbs:
		return &Meter{metric: metric}, nil
	default:
		return nil, fmt.Errorf("unknown loudness metric %q (must be %q or %q)", metric, MetricRMS, MetricMeanAbs)
	}
}

// Measure returns the loudness of the frame. Empty frames measure 0.
func (m *Meter) Measure(frame Frame) float64 {
	if len(frame.Samples) == 0 {
		return 0
	}

	switch m.metric {
	case MetricMeanAbs:
		var sum float64
		for _, s := range frame.Samples {
			sum += math.Abs(float64(s))
		}
		return sum / float64(len(frame.Samples))
	default: // MetricRMS
		var sum float64
		for _, s := range frame.Samples {
			sum += float64(s) * float64(s)
		}
		return math.Sqrt(sum / float64(len(frame.Samples)))
	}
}

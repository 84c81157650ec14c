package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/sensor"
)

// WeightedMovingAverage filters x with a linearly weighted window of the given
// period; the newest sample has the highest weight. The result has
// len(x)-period+1 values, or none when x is shorter than period.
func WeightedMovingAverage(x []float64, period int) []float64 {
	if period < 1 || len(x) < period {
		return nil
	}
	weights := make([]float64, period)
	for i := range weights {
		weights[i] = float64(i + 1)
	}
	total := floats.Sum(weights)

	out := make([]float64, 0, len(x)-period+1)
	for end := period; end <= len(x); end++ {
		out = append(out, floats.Dot(weights, x[end-period:end])/total)
	}
	return out
}

// SmoothedRange compiles a range from data points after filtering every
// channel with WeightedMovingAverage, so single outliers do not stretch it.
func SmoothedRange(points []DataPoint, channels, period int) (*sensor.Range, error) {
	if len(points) < period || len(points) < 2 {
		return nil, fmt.Errorf("%d data points for a smoothing period of %d: %w", len(points), period, hand.ErrInsufficientData)
	}

	series := make([]float64, 0, len(points))
	r := sensor.ForCalibration(channels)
	for ch := 0; ch < channels; ch++ {
		series = series[:0]
		for _, p := range points {
			if ch < len(p.Values) && !math.IsNaN(float64(p.Values[ch])) {
				series = append(series, float64(p.Values[ch]))
			}
		}
		smoothed := WeightedMovingAverage(series, period)
		if len(smoothed) == 0 {
			continue
		}
		r.Channels[ch] = sensor.Channel{
			Min: float32(floats.Min(smoothed)),
			Max: float32(floats.Max(smoothed)),
		}
	}
	return r, nil
}

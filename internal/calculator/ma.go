package calculator

import (
	"errors"

	"IrrigationSentinel/internal/model"
)

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// RecentET0Mean averages ET0 over the most recent window observations,
// or over all of them when the series is shorter.
func RecentET0Mean(decisions []model.Decision, window int) (float64, error) {
	if len(decisions) < window {
		window = len(decisions)
	}
	return CalculateSMA(extractET0(decisions), window)
}

func extractET0(decisions []model.Decision) []float64 {
	out := make([]float64, len(decisions))
	for i, d := range decisions {
		out[i] = d.ET0
	}
	return out
}

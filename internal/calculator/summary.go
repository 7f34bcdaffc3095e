package calculator

import (
	"log"

	"IrrigationSentinel/internal/model"
)

// RecentWindow is the number of trailing observations used for RecentET0Mean.
const RecentWindow = 7

// Summarize aggregates a decision series. An empty series yields a zero summary.
func Summarize(decisions []model.Decision) model.ScheduleSummary {
	s := model.ScheduleSummary{Records: len(decisions)}
	if len(decisions) == 0 {
		return s
	}

	ndvi := make([]float64, len(decisions))
	soil := make([]float64, len(decisions))
	s.First = decisions[0].Timestamp
	s.Last = decisions[0].Timestamp

	for i, d := range decisions {
		ndvi[i] = d.NDVI
		soil[i] = d.SoilMoisture
		if d.Irrigate {
			s.IrrigationEvents++
			s.TotalIrrigationMM += d.IrrigationMM
			s.TotalETc += d.ETc
		}
		if d.Timestamp.Before(s.First) {
			s.First = d.Timestamp
		}
		if d.Timestamp.After(s.Last) {
			s.Last = d.Timestamp
		}
	}

	s.MeanNDVI = Mean(ndvi)
	if lo, hi, err := SeriesRange(soil); err == nil {
		s.MinSoilMoisture = lo
		s.MaxSoilMoisture = hi
	}
	if m, err := RecentET0Mean(decisions, RecentWindow); err != nil {
		log.Printf("[WARN] recent ET0 mean failed: %v", err)
	} else {
		s.RecentET0Mean = m
	}
	return s
}

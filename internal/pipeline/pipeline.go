package pipeline

import (
	"time"

	"IrrigationSentinel/internal/calculator"
	"IrrigationSentinel/internal/model"
	"IrrigationSentinel/internal/recorder"
	"IrrigationSentinel/internal/strategy"
)

// Run evaluates a full series under one parameter set and packages the result
// for recording and presentation. workers > 1 evaluates concurrently.
func Run(source string, obs []model.Observation, p model.Parameters, workers int) *recorder.RunSnapshot {
	decisions := strategy.EvaluateConcurrent(obs, p, workers)
	return &recorder.RunSnapshot{
		RunID:       recorder.NewRunID(),
		Source:      source,
		EvaluatedAt: time.Now(),
		Parameters:  p,
		Decisions:   decisions,
		Summary:     calculator.Summarize(decisions),
	}
}

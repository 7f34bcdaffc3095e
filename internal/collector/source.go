package collector

import (
	"context"

	"IrrigationSentinel/internal/model"
)

// Source supplies an ordered series of fully parsed observations.
type Source interface {
	Fetch(ctx context.Context) ([]model.Observation, error)
	Name() string
}

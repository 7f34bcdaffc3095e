package recorder

import (
	"time"

	"github.com/google/uuid"

	"IrrigationSentinel/internal/model"
)

// RunSnapshot holds everything produced by one evaluation pass.
type RunSnapshot struct {
	RunID       string                `json:"run_id"`
	Source      string                `json:"source"`
	EvaluatedAt time.Time             `json:"evaluated_at"`
	Parameters  model.Parameters      `json:"parameters"`
	Decisions   []model.Decision      `json:"decisions"`
	Summary     model.ScheduleSummary `json:"summary"`
}

// Recorder persists evaluation history for later analysis.
type Recorder interface {
	RecordRun(snap *RunSnapshot) error
	Close() error
}

// NewRunID returns a fresh identifier for an evaluation run.
func NewRunID() string {
	return uuid.New().String()
}

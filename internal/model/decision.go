package model

import "time"

// Decision is an Observation annotated with the irrigation outcome.
type Decision struct {
	Observation
	Irrigate     bool    `json:"irrigate"`
	ETc          float64 `json:"ETc"`
	IrrigationMM float64 `json:"irrigation_mm"`
}

// ConditionResult describes one trigger condition evaluated against an observation.
type ConditionResult struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Threshold  float64 `json:"threshold"`
	Comparator string  `json:"comparator"` // "<" or ">"
	Held       bool    `json:"held"`
}

// ScheduleSummary aggregates a decision series for reports.
type ScheduleSummary struct {
	Records           int       `json:"records"`
	IrrigationEvents  int       `json:"irrigation_events"`
	TotalIrrigationMM float64   `json:"total_irrigation_mm"`
	TotalETc          float64   `json:"total_etc"`
	MeanNDVI          float64   `json:"mean_ndvi"`
	MinSoilMoisture   float64   `json:"min_soil_moisture"`
	MaxSoilMoisture   float64   `json:"max_soil_moisture"`
	RecentET0Mean     float64   `json:"recent_et0_mean"`
	First             time.Time `json:"first"`
	Last              time.Time `json:"last"`
}

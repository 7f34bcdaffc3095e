package model

import "time"

// Observation is a single time-stamped reading for a crop plot.
type Observation struct {
	Timestamp    time.Time `json:"timestamp"`
	NDVI         float64   `json:"NDVI"`
	SoilMoisture float64   `json:"soil_moisture"` // percent
	ET0          float64   `json:"ET0"`           // mm
	ForecastRain float64   `json:"forecast_rain"` // mm
}

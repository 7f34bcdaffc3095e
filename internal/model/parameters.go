package model

// Parameters holds the thresholds and crop coefficient for one evaluation run.
// It is passed by value and never modified while a series is evaluated.
type Parameters struct {
	NDVIThreshold        float64 `json:"ndvi_threshold"`
	FieldCapacity        float64 `json:"field_capacity"` // percent
	SoilMoistureFraction float64 `json:"soil_moisture_fraction"`
	ET0Threshold         float64 `json:"et0_threshold"`  // mm
	RainThreshold        float64 `json:"rain_threshold"` // mm
	CropCoefficient      float64 `json:"crop_coefficient"`
}

// SoilMoistureThreshold is the moisture level (percent) below which the plot counts as dry.
func (p Parameters) SoilMoistureThreshold() float64 {
	return p.SoilMoistureFraction * p.FieldCapacity
}

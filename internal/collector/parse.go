package collector

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field names as they appear in the tabular input.
const (
	FieldTimestamp    = "timestamp"
	FieldNDVI         = "NDVI"
	FieldSoilMoisture = "soil_moisture"
	FieldET0          = "ET0"
	FieldForecastRain = "forecast_rain"
)

// RequiredFields lists the input columns in canonical order.
var RequiredFields = []string{FieldTimestamp, FieldNDVI, FieldSoilMoisture, FieldET0, FieldForecastRain}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04",
	"2006/01/02",
}

// ParseTimestamp accepts the layouts sensor exports commonly use. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised timestamp format")
}

// parseValue parses a finite float.
func parseValue(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("value must be finite")
	}
	return f, nil
}

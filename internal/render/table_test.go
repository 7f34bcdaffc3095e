package render

import (
	"strings"
	"testing"
	"time"

	"IrrigationSentinel/internal/model"
)

func TestTable_ContainsRows(t *testing.T) {
	ds := []model.Decision{
		{
			Observation: model.Observation{Timestamp: time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC), NDVI: 0.62, SoilMoisture: 25, ET0: 4.2, ForecastRain: 0.5},
			Irrigate:    true, ETc: 4.83, IrrigationMM: 4.33,
		},
		{
			Observation: model.Observation{Timestamp: time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), NDVI: 0.68, SoilMoisture: 28, ET0: 3.9, ForecastRain: 3},
		},
	}
	out := Table(ds)
	for _, want := range []string{"Timestamp", "Irrigation (mm)", "2025-06-01 06:00", "4.33", "YES", "2025-06-02 06:00", "no"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestSummary_ShowsTotals(t *testing.T) {
	s := model.ScheduleSummary{
		Records:           3,
		IrrigationEvents:  2,
		TotalIrrigationMM: 7.43,
		First:             time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Last:              time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
	}
	p := model.Parameters{FieldCapacity: 38, SoilMoistureFraction: 0.7}
	out := Summary(s, p)
	for _, want := range []string{"7.43 mm", "2025-06-01 .. 2025-06-03", "26.6"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestNoData(t *testing.T) {
	if out := NoData(); !strings.Contains(out, "no irrigation schedule was computed") {
		t.Errorf("unexpected no-data message %q", out)
	}
}

package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"IrrigationSentinel/internal/model"
)

// DefaultFileName is the suggested name for a downloaded schedule.
const DefaultFileName = "irrigation_schedule.csv"

// TimestampLayout is how UTC timestamps are written back out.
// Timestamps carrying another zone are written as RFC3339 to keep the offset.
const TimestampLayout = "2006-01-02 15:04:05"

// observationColumns is the number of leading Header entries taken from the input.
const observationColumns = 5

// Header is the column order of the exported schedule.
var Header = []string{"timestamp", "NDVI", "soil_moisture", "ET0", "forecast_rain", "irrigate", "ETc", "irrigation_mm"}

// WriteCSV writes the annotated schedule, one row per decision in series order.
func WriteCSV(w io.Writer, decisions []model.Decision) error {
	return WriteCSVWithExtra(w, decisions, nil, nil)
}

// WriteCSVWithExtra also writes pass-through input columns, placed after the
// observation fields. extra[i] belongs to decisions[i]; short rows are padded.
func WriteCSVWithExtra(w io.Writer, decisions []model.Decision, extraHeader []string, extra [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(splice(Header, extraHeader)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, d := range decisions {
		cells := make([]string, len(extraHeader))
		if i < len(extra) {
			copy(cells, extra[i])
		}
		if err := cw.Write(splice(Row(d), cells)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// splice inserts extra between the observation and decision columns.
func splice(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base[:observationColumns]...)
	out = append(out, extra...)
	return append(out, base[observationColumns:]...)
}

// Row renders one decision as CSV cells.
func Row(d model.Decision) []string {
	return []string{
		formatTimestamp(d.Timestamp),
		formatFloat(d.NDVI),
		formatFloat(d.SoilMoisture),
		formatFloat(d.ET0),
		formatFloat(d.ForecastRain),
		formatBool(d.Irrigate),
		formatFloat(d.ETc),
		formatFloat(d.IrrigationMM),
	}
}

// WriteJSON writes the decisions as an indented JSON array.
func WriteJSON(w io.Writer, decisions []model.Decision) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(decisions); err != nil {
		return fmt.Errorf("encode decisions: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.Location() == time.UTC {
		return t.Format(TimestampLayout)
	}
	return t.Format(time.RFC3339)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

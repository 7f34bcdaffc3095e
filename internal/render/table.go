package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"IrrigationSentinel/internal/model"
)

var columns = []string{"Timestamp", "NDVI", "Soil moisture", "ET0", "Rain fcst", "Irrigate", "ETc", "Irrigation (mm)"}

// Table renders the annotated schedule. Rows that call for irrigation are highlighted.
func Table(decisions []model.Decision) string {
	rows := make([][]string, len(decisions))
	for i, d := range decisions {
		irrigate := "no"
		if d.Irrigate {
			irrigate = "YES"
		}
		rows[i] = []string{
			d.Timestamp.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.2f", d.NDVI),
			fmt.Sprintf("%.1f", d.SoilMoisture),
			fmt.Sprintf("%.2f", d.ET0),
			fmt.Sprintf("%.1f", d.ForecastRain),
			irrigate,
			fmt.Sprintf("%.2f", d.ETc),
			fmt.Sprintf("%.2f", d.IrrigationMM),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(columns...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(decisions) && decisions[row].Irrigate:
				return irrigateStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// Summary renders the aggregate block printed under the table.
func Summary(s model.ScheduleSummary, p model.Parameters) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Irrigation schedule"))
	b.WriteString("\n")
	line := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(" ")
		b.WriteString(value)
		b.WriteString("\n")
	}
	if s.Records > 0 {
		line("Period:", fmt.Sprintf("%s .. %s", s.First.Format("2006-01-02"), s.Last.Format("2006-01-02")))
	}
	line("Observations:", fmt.Sprintf("%d", s.Records))
	line("Irrigation events:", fmt.Sprintf("%d", s.IrrigationEvents))
	line("Total irrigation:", fmt.Sprintf("%.2f mm", s.TotalIrrigationMM))
	line("Total ETc:", fmt.Sprintf("%.2f mm", s.TotalETc))
	line("Mean NDVI:", fmt.Sprintf("%.3f", s.MeanNDVI))
	line("Soil moisture range:", fmt.Sprintf("%.1f .. %.1f %% (trigger < %.1f %%)", s.MinSoilMoisture, s.MaxSoilMoisture, p.SoilMoistureThreshold()))
	line("Recent ET0 mean:", fmt.Sprintf("%.2f mm", s.RecentET0Mean))
	return paneStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Parameters renders the effective parameter set.
func Parameters(p model.Parameters) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Scheduler parameters"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %.2f\n", labelStyle.Render("NDVI stress threshold:"), p.NDVIThreshold)
	fmt.Fprintf(&b, "%s %.1f %%\n", labelStyle.Render("Field capacity:"), p.FieldCapacity)
	fmt.Fprintf(&b, "%s %.2f (trigger < %.2f %%)\n", labelStyle.Render("Soil moisture fraction:"), p.SoilMoistureFraction, p.SoilMoistureThreshold())
	fmt.Fprintf(&b, "%s %.2f mm\n", labelStyle.Render("ET0 threshold:"), p.ET0Threshold)
	fmt.Fprintf(&b, "%s %.2f mm\n", labelStyle.Render("Rain forecast threshold:"), p.RainThreshold)
	fmt.Fprintf(&b, "%s %.2f", labelStyle.Render("Crop coefficient (Kc):"), p.CropCoefficient)
	return paneStyle.Render(b.String())
}

// NoData is shown instead of a table when nothing was computed.
func NoData() string {
	return warningStyle.Render("No observation data supplied: no irrigation schedule was computed.") + "\n" +
		labelStyle.Render("Expected CSV columns: ") + strings.Join([]string{"timestamp", "NDVI", "soil_moisture", "ET0", "forecast_rain"}, ", ")
}

package notifier

import (
	"fmt"
	"strings"

	"IrrigationSentinel/internal/model"
	"IrrigationSentinel/internal/strategy"
)

// maxListedEvents caps how many irrigation rows a report lists.
const maxListedEvents = 10

// FormatScheduleReport formats a summary of the evaluated series.
func FormatScheduleReport(plot string, s model.ScheduleSummary, decisions []model.Decision, p model.Parameters) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("💧 <b>Irrigation schedule</b> | plot %s\n\n", plot))
	if s.Records == 0 {
		b.WriteString("No observations available, nothing computed.\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Period: %s .. %s (%d observations)\n",
		s.First.Format("2006-01-02"), s.Last.Format("2006-01-02"), s.Records))
	b.WriteString(fmt.Sprintf("Mean NDVI: %.3f | Soil moisture: %.1f..%.1f%%\n", s.MeanNDVI, s.MinSoilMoisture, s.MaxSoilMoisture))
	b.WriteString(fmt.Sprintf("Recent ET0: %.2f mm\n\n", s.RecentET0Mean))

	b.WriteString(fmt.Sprintf("🚿 <b>Irrigation events:</b> %d\n", s.IrrigationEvents))
	b.WriteString(fmt.Sprintf("   Total water: %.2f mm (ETc %.2f mm)\n", s.TotalIrrigationMM, s.TotalETc))

	var events []model.Decision
	for _, d := range decisions {
		if d.Irrigate {
			events = append(events, d)
		}
	}
	if len(events) > maxListedEvents {
		events = events[len(events)-maxListedEvents:]
	}
	for _, d := range events {
		b.WriteString(fmt.Sprintf("   • %s: %.2f mm\n", d.Timestamp.Format("2006-01-02 15:04"), d.IrrigationMM))
	}

	if len(decisions) > 0 {
		last := decisions[len(decisions)-1]
		if !last.Irrigate {
			failed := strategy.FailedConditions(last.Observation, p)
			b.WriteString(fmt.Sprintf("\nLatest (%s): no irrigation, not met: %s\n",
				last.Timestamp.Format("2006-01-02 15:04"), strings.Join(failed, ", ")))
		}
	}
	return b.String()
}

// FormatIrrigationAlert formats a single irrigate decision with its condition breakdown.
func FormatIrrigationAlert(d model.Decision, p model.Parameters) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚿 <b>Irrigate</b> | %s\n\n", d.Timestamp.Format("2006-01-02 15:04")))
	for _, c := range strategy.Explain(d.Observation, p) {
		mark := "✅"
		if !c.Held {
			mark = "❌"
		}
		b.WriteString(fmt.Sprintf("%s %s: %.2f %s %.2f\n", mark, c.Name, c.Value, c.Comparator, c.Threshold))
	}
	b.WriteString(fmt.Sprintf("\nETc: %.2f mm (Kc %.2f)\n", d.ETc, p.CropCoefficient))
	b.WriteString(fmt.Sprintf("Apply: <b>%.2f mm</b>\n", d.IrrigationMM))
	return b.String()
}

// FormatParameters formats the active parameter set.
func FormatParameters(p model.Parameters) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Scheduler parameters</b>\n\n")
	b.WriteString(fmt.Sprintf("NDVI stress threshold: %.2f\n", p.NDVIThreshold))
	b.WriteString(fmt.Sprintf("Field capacity: %.1f%%\n", p.FieldCapacity))
	b.WriteString(fmt.Sprintf("Soil moisture trigger: %.0f%% of FC = %.2f%%\n", p.SoilMoistureFraction*100, p.SoilMoistureThreshold()))
	b.WriteString(fmt.Sprintf("ET0 threshold: %.2f mm\n", p.ET0Threshold))
	b.WriteString(fmt.Sprintf("Rain forecast threshold: %.2f mm\n", p.RainThreshold))
	b.WriteString(fmt.Sprintf("Crop coefficient (Kc): %.2f\n", p.CropCoefficient))
	return b.String()
}

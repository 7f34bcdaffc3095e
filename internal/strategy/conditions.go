package strategy

import "IrrigationSentinel/internal/model"

// Condition names, in trigger order.
const (
	CondVegetationStress = "NDVI stress"
	CondSoilMoisture     = "Soil moisture"
	CondEvaporation      = "ET0 demand"
	CondRainForecast     = "Rain forecast"
)

// Explain reports each trigger condition for an observation.
// Irrigation is warranted exactly when every result has Held set.
func Explain(obs model.Observation, p model.Parameters) []model.ConditionResult {
	return []model.ConditionResult{
		below(CondVegetationStress, obs.NDVI, p.NDVIThreshold),
		below(CondSoilMoisture, obs.SoilMoisture, p.SoilMoistureThreshold()),
		above(CondEvaporation, obs.ET0, p.ET0Threshold),
		below(CondRainForecast, obs.ForecastRain, p.RainThreshold),
	}
}

// FailedConditions returns the names of the conditions that did not hold.
func FailedConditions(obs model.Observation, p model.Parameters) []string {
	var failed []string
	for _, c := range Explain(obs, p) {
		if !c.Held {
			failed = append(failed, c.Name)
		}
	}
	return failed
}

func below(name string, value, threshold float64) model.ConditionResult {
	return model.ConditionResult{
		Name:       name,
		Value:      value,
		Threshold:  threshold,
		Comparator: "<",
		Held:       value < threshold,
	}
}

func above(name string, value, threshold float64) model.ConditionResult {
	return model.ConditionResult{
		Name:       name,
		Value:      value,
		Threshold:  threshold,
		Comparator: ">",
		Held:       value > threshold,
	}
}

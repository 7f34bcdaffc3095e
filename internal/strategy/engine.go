package strategy

import (
	"sync"

	"IrrigationSentinel/internal/model"
)

// Decide applies the four-condition trigger to one observation.
// It is total: any finite input yields a decision, and nothing is mutated.
func Decide(obs model.Observation, p model.Parameters) model.Decision {
	d := model.Decision{Observation: obs}

	stressed := obs.NDVI < p.NDVIThreshold
	dry := obs.SoilMoisture < p.SoilMoistureThreshold()
	demanding := obs.ET0 > p.ET0Threshold
	noRain := obs.ForecastRain < p.RainThreshold

	if !(stressed && dry && demanding && noRain) {
		return d
	}

	etc := obs.ET0 * p.CropCoefficient
	net := etc - obs.ForecastRain
	if net < 0 {
		net = 0
	}

	d.Irrigate = true
	d.ETc = etc
	d.IrrigationMM = net
	return d
}

// Evaluate runs Decide over the series. Output position i belongs to input position i.
func Evaluate(obs []model.Observation, p model.Parameters) []model.Decision {
	out := make([]model.Decision, len(obs))
	for i, o := range obs {
		out[i] = Decide(o, p)
	}
	return out
}

// EvaluateConcurrent is Evaluate split across a fixed number of workers.
// Results are written by index, so output order always matches input order.
func EvaluateConcurrent(obs []model.Observation, p model.Parameters, workers int) []model.Decision {
	if workers <= 1 || len(obs) < 2 {
		return Evaluate(obs, p)
	}
	if workers > len(obs) {
		workers = len(obs)
	}

	out := make([]model.Decision, len(obs))
	chunk := (len(obs) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(obs); start += chunk {
		end := start + chunk
		if end > len(obs) {
			end = len(obs)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				out[i] = Decide(obs[i], p)
			}
		}(start, end)
	}
	wg.Wait()
	return out
}

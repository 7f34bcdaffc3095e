package collector

import (
	"context"
	"fmt"
	"log"

	"IrrigationSentinel/internal/config"
	"IrrigationSentinel/internal/model"
)

// MockSource returns a fixed series for development and testing.
type MockSource struct {
	Observations []model.Observation
	Err          error
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Fetch(_ context.Context) ([]model.Observation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]model.Observation(nil), m.Observations...), nil
}

// NewSource picks the configured source: the telemetry API when a base URL is
// set, otherwise the CSV file. With neither it returns ErrNoData.
func NewSource(cfg *config.Config) (Source, error) {
	switch {
	case cfg.Source.BaseURL != "":
		return NewHTTPSource(cfg.Source.BaseURL, cfg.Source.APIKey, cfg.Source.Plot, cfg.Proxy), nil
	case cfg.Source.CSVPath != "":
		return NewCSVSource(cfg.Source.CSVPath), nil
	default:
		return nil, ErrNoData
	}
}

// Collector wraps a Source and logs what each pull produced.
type Collector struct {
	Source Source
}

// NewCollector creates a new Collector.
func NewCollector(source Source) *Collector {
	return &Collector{Source: source}
}

// Collect fetches one complete series. Any malformed record fails the whole pull.
func (c *Collector) Collect(ctx context.Context) ([]model.Observation, error) {
	obs, err := c.Source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect from %s: %w", c.Source.Name(), err)
	}
	if len(obs) == 0 {
		log.Printf("[WARN] %s returned no observations", c.Source.Name())
		return obs, nil
	}
	log.Printf("[INFO] collected %d observations from %s (%s .. %s)",
		len(obs), c.Source.Name(),
		obs[0].Timestamp.Format("2006-01-02 15:04"),
		obs[len(obs)-1].Timestamp.Format("2006-01-02 15:04"))
	return obs, nil
}

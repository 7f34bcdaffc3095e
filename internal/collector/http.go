package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"IrrigationSentinel/internal/model"
)

// HTTPSource fetches observations from a field telemetry REST API.
type HTTPSource struct {
	BaseURL string
	APIKey  string
	Plot    string
	Client  *http.Client
}

// NewHTTPSource creates a source with optional proxy support.
func NewHTTPSource(baseURL, apiKey, plot, proxyURL string) *HTTPSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPSource{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Plot:    plot,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (s *HTTPSource) Name() string { return "http:" + s.BaseURL }

// RawObservation is the JSON shape of an observation on the wire.
// Pointers distinguish absent keys from zero readings.
type RawObservation struct {
	Timestamp    *string  `json:"timestamp"`
	NDVI         *float64 `json:"ndvi"`
	SoilMoisture *float64 `json:"soil_moisture"`
	ET0          *float64 `json:"et0"`
	ForecastRain *float64 `json:"forecast_rain"`
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Observation, error) {
	endpoint := fmt.Sprintf("%s/api/v1/observations?plot=%s", s.BaseURL, url.QueryEscape(s.Plot))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch observations: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch observations: status %d, body: %s", resp.StatusCode, string(body))
	}

	var items []RawObservation
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}
	return ConvertRaw(items)
}

// ConvertRaw validates decoded observations, keeping their order.
func ConvertRaw(items []RawObservation) ([]model.Observation, error) {
	obs := make([]model.Observation, len(items))
	for i, it := range items {
		o, err := it.toModel(i + 1)
		if err != nil {
			return nil, err
		}
		obs[i] = o
	}
	return obs, nil
}

func (a RawObservation) toModel(row int) (model.Observation, error) {
	var o model.Observation
	if a.Timestamp == nil || *a.Timestamp == "" {
		return o, &MissingFieldError{Row: row, Field: FieldTimestamp}
	}
	ts, err := ParseTimestamp(*a.Timestamp)
	if err != nil {
		return o, &InvalidFieldError{Row: row, Field: FieldTimestamp, Value: *a.Timestamp, Err: err}
	}
	o.Timestamp = ts

	values := []struct {
		field string
		src   *float64
		dst   *float64
	}{
		{FieldNDVI, a.NDVI, &o.NDVI},
		{FieldSoilMoisture, a.SoilMoisture, &o.SoilMoisture},
		{FieldET0, a.ET0, &o.ET0},
		{FieldForecastRain, a.ForecastRain, &o.ForecastRain},
	}
	for _, v := range values {
		if v.src == nil {
			return o, &MissingFieldError{Row: row, Field: v.field}
		}
		if math.IsNaN(*v.src) || math.IsInf(*v.src, 0) {
			return o, &InvalidFieldError{Row: row, Field: v.field, Value: fmt.Sprint(*v.src), Err: fmt.Errorf("value must be finite")}
		}
		*v.dst = *v.src
	}
	return o, nil
}

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"IrrigationSentinel/internal/config"
	"IrrigationSentinel/internal/recorder"
)

// parameterFlags binds CLI flag names to parameter keys.
var parameterFlags = []struct {
	flag  string
	field string
	usage string
}{
	{"ndvi-threshold", "ndvi_threshold", "NDVI below this counts as vegetation stress"},
	{"field-capacity", "field_capacity", "soil field capacity in percent"},
	{"soil-moisture-fraction", "soil_moisture_fraction", "fraction of field capacity below which the soil is dry"},
	{"et0-threshold", "et0_threshold", "ET0 above this (mm) counts as high demand"},
	{"rain-threshold", "rain_threshold", "forecast rain below this (mm) counts as dry"},
	{"kc", "crop_coefficient", "crop coefficient applied to ET0"},
}

func addParameterFlags(cmd *cobra.Command) {
	for _, pf := range parameterFlags {
		cmd.Flags().Float64(pf.flag, 0, pf.usage)
	}
}

// loadConfig loads and validates config, overlaying any parameter flag the
// user actually set.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, pf := range parameterFlags {
		f := cmd.Flags().Lookup(pf.flag)
		if f == nil || !f.Changed {
			continue
		}
		v, err := config.ParseParameter(pf.field, f.Value.String())
		if err != nil {
			return nil, err
		}
		if err := cfg.Params.Set(pf.field, v); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// openRecorder returns the SQLite recorder, or a no-op one when none is
// configured or it cannot be opened.
func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

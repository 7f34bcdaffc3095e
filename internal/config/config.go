package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"IrrigationSentinel/internal/model"
)

// ErrInvalidParameter is matched by every InvalidParameterError.
var ErrInvalidParameter = errors.New("invalid parameter")

// InvalidParameterError reports a parameter that is non-numeric or non-finite.
type InvalidParameterError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidParameterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parameter %s=%q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("parameter %s=%q is invalid", e.Field, e.Value)
}

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

func (e *InvalidParameterError) Unwrap() error { return e.Err }

// ParameterConfig mirrors model.Parameters. Nil fields fall back to defaults.
type ParameterConfig struct {
	NDVIThreshold        *float64 `yaml:"ndvi_threshold" json:"ndvi_threshold"`
	FieldCapacity        *float64 `yaml:"field_capacity" json:"field_capacity"`
	SoilMoistureFraction *float64 `yaml:"soil_moisture_fraction" json:"soil_moisture_fraction"`
	ET0Threshold         *float64 `yaml:"et0_threshold" json:"et0_threshold"`
	RainThreshold        *float64 `yaml:"rain_threshold" json:"rain_threshold"`
	CropCoefficient      *float64 `yaml:"crop_coefficient" json:"crop_coefficient"`
}

// Config holds all application configuration.
type Config struct {
	Params ParameterConfig `yaml:"parameters"`
	Source struct {
		CSVPath string `yaml:"csv_path"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Plot    string `yaml:"plot"`
	} `yaml:"source"`
	Schedule struct {
		EvaluateCron string `yaml:"evaluate_cron"`
		ReportCron   string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Evaluation struct {
		Workers int `yaml:"workers"`
	} `yaml:"evaluation"`
	Proxy string `yaml:"proxy"`
}

// DefaultParameters returns the stock T4 thresholds.
func DefaultParameters() model.Parameters {
	return model.Parameters{
		NDVIThreshold:        0.65,
		FieldCapacity:        38.0,
		SoilMoistureFraction: 0.70,
		ET0Threshold:         3.5,
		RainThreshold:        2.0,
		CropCoefficient:      1.15,
	}
}

// parameterEnv maps environment variables to parameter fields.
// Field names double as CLI flag and query parameter keys.
var parameterEnv = []struct {
	env   string
	field string
	get   func(*ParameterConfig) **float64
}{
	{"NDVI_THRESHOLD", "ndvi_threshold", func(p *ParameterConfig) **float64 { return &p.NDVIThreshold }},
	{"FIELD_CAPACITY", "field_capacity", func(p *ParameterConfig) **float64 { return &p.FieldCapacity }},
	{"SOIL_MOISTURE_FRACTION", "soil_moisture_fraction", func(p *ParameterConfig) **float64 { return &p.SoilMoistureFraction }},
	{"ET0_THRESHOLD", "et0_threshold", func(p *ParameterConfig) **float64 { return &p.ET0Threshold }},
	{"RAIN_THRESHOLD", "rain_threshold", func(p *ParameterConfig) **float64 { return &p.RainThreshold }},
	{"CROP_COEFFICIENT", "crop_coefficient", func(p *ParameterConfig) **float64 { return &p.CropCoefficient }},
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	for _, pe := range parameterEnv {
		v := os.Getenv(pe.env)
		if v == "" {
			continue
		}
		f, err := ParseParameter(pe.field, v)
		if err != nil {
			return nil, err
		}
		*pe.get(&cfg.Params) = &f
	}
	if v := os.Getenv("OBSERVATIONS_CSV"); v != "" {
		cfg.Source.CSVPath = v
	}
	if v := os.Getenv("OBSERVATIONS_BASE_URL"); v != "" {
		cfg.Source.BaseURL = v
	}
	if v := os.Getenv("OBSERVATIONS_API_KEY"); v != "" {
		cfg.Source.APIKey = v
	}
	if v := os.Getenv("OBSERVATIONS_PLOT"); v != "" {
		cfg.Source.Plot = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_EVALUATE"); v != "" {
		cfg.Schedule.EvaluateCron = v
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		cfg.Schedule.ReportCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("EVAL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse EVAL_WORKERS: %w", err)
		}
		cfg.Evaluation.Workers = n
	}

	// Defaults
	if cfg.Source.Plot == "" {
		cfg.Source.Plot = "T4"
	}
	if cfg.Schedule.EvaluateCron == "" {
		cfg.Schedule.EvaluateCron = "0 0 6 * * *"
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 0 18 * * 0"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/irrigation_sentinel.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	return cfg, nil
}

// ParseParameter parses a textual parameter value, as entered in env or flags.
func ParseParameter(field, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &InvalidParameterError{Field: field, Value: value, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &InvalidParameterError{Field: field, Value: value, Err: errors.New("must be finite")}
	}
	return f, nil
}

// Parameters resolves the configured parameter set, filling unset fields with defaults.
func (c *Config) Parameters() (model.Parameters, error) {
	return c.Params.Apply(DefaultParameters())
}

// ParameterNames lists the parameter keys in declaration order.
func ParameterNames() []string {
	names := make([]string, len(parameterEnv))
	for i, pe := range parameterEnv {
		names[i] = pe.field
	}
	return names
}

// Set assigns one parameter by its key.
func (pc *ParameterConfig) Set(field string, v float64) error {
	for _, pe := range parameterEnv {
		if pe.field == field {
			*pe.get(pc) = &v
			return nil
		}
	}
	return &InvalidParameterError{Field: field, Value: strconv.FormatFloat(v, 'g', -1, 64), Err: errors.New("unknown parameter")}
}

// Apply overlays the set fields on base. Non-finite values are rejected.
func (pc ParameterConfig) Apply(base model.Parameters) (model.Parameters, error) {
	p := base
	fields := []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"ndvi_threshold", pc.NDVIThreshold, &p.NDVIThreshold},
		{"field_capacity", pc.FieldCapacity, &p.FieldCapacity},
		{"soil_moisture_fraction", pc.SoilMoistureFraction, &p.SoilMoistureFraction},
		{"et0_threshold", pc.ET0Threshold, &p.ET0Threshold},
		{"rain_threshold", pc.RainThreshold, &p.RainThreshold},
		{"crop_coefficient", pc.CropCoefficient, &p.CropCoefficient},
	}
	for _, f := range fields {
		if f.src == nil {
			continue
		}
		if math.IsNaN(*f.src) || math.IsInf(*f.src, 0) {
			return model.Parameters{}, &InvalidParameterError{
				Field: f.name,
				Value: strconv.FormatFloat(*f.src, 'g', -1, 64),
				Err:   errors.New("must be finite"),
			}
		}
		*f.dst = *f.src
	}
	return p, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if _, err := c.Parameters(); err != nil {
		return err
	}
	if c.Evaluation.Workers < 0 {
		return fmt.Errorf("evaluation.workers must not be negative")
	}
	return nil
}

// ValidateDaemon additionally checks what the scheduled run needs.
func (c *Config) ValidateDaemon() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if c.Source.BaseURL == "" && c.Source.CSVPath == "" {
		return fmt.Errorf("source.base_url or source.csv_path is required")
	}
	return nil
}

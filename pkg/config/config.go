package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Duration wraps time.Duration so config files may use either raw
// nanoseconds or strings like "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return errors.New("invalid duration")
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// DriftThresholds are the PSI/KS decision points for the drift monitor.
type DriftThresholds struct {
	Bins        int     `json:"bins"         validate:"gte=2"`
	PSIWarning  float64 `json:"psi_warning"  validate:"gt=0"`
	PSICritical float64 `json:"psi_critical" validate:"gt=0"`
	KSAlpha     float64 `json:"ks_alpha"     validate:"gt=0,lt=1"`
}

// FairnessThresholds are the decision points for the fairness analyzer.
type FairnessThresholds struct {
	DemographicParity float64 `json:"demographic_parity" validate:"gt=0"`
	EqualizedOdds     float64 `json:"equalized_odds"     validate:"gt=0"`
	DisparateImpact   float64 `json:"disparate_impact"   validate:"gt=0,lte=1"`
}

type Config struct {
	Address         string   `json:"address"          validate:"required"`
	LogLevel        string   `json:"log_level"`
	StoreURL        string   `json:"store_url"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
	Version         string   `json:"version"`

	SchedulerPoll    Duration `json:"scheduler_poll"`
	AlertDedupWindow Duration `json:"alert_dedup_window"`

	Drift    DriftThresholds    `json:"drift"`
	Fairness FairnessThresholds `json:"fairness"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Address:          "localhost:5500",
		LogLevel:         "info",
		StoreURL:         "sqlite:///modelguard.db",
		ShutdownTimeout:  Duration{time.Minute},
		Version:          "dev",
		SchedulerPoll:    Duration{30 * time.Second},
		AlertDedupWindow: Duration{time.Hour},
		Drift: DriftThresholds{
			Bins:        10,
			PSIWarning:  0.10,
			PSICritical: 0.25,
			KSAlpha:     0.05,
		},
		Fairness: FairnessThresholds{
			DemographicParity: 0.10,
			EqualizedOdds:     0.10,
			DisparateImpact:   0.80,
		},
	}
}

// Load reads cfg from path (when non-empty) on top of the defaults,
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
		}
	}

	if v := os.Getenv("MODELGUARD_ADDRESS"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("MODELGUARD_STORE_URL"); v != "" {
		cfg.StoreURL = v
	}
	if v := os.Getenv("MODELGUARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

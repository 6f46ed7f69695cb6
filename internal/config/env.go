package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the settings that may be overridden from the
// environment, e.g. in a container or CI job.
type envOverrides struct {
	Timezone   string `env:"INFLUXCAL_TIMEZONE"`
	OutputDir  string `env:"INFLUXCAL_OUTPUT_DIR"`
	Listen     string `env:"INFLUXCAL_LISTEN"`
	Refresh    string `env:"INFLUXCAL_REFRESH"`
	HorizonEnd string `env:"INFLUXCAL_HORIZON_END"`
}

// ApplyEnv overlays non-empty environment overrides onto c.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Timezone != "" {
		c.Timezone = o.Timezone
	}
	if o.OutputDir != "" {
		c.OutputDir = o.OutputDir
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.Refresh != "" {
		c.RefreshCron = o.Refresh
	}
	if o.HorizonEnd != "" {
		c.HorizonEnd = o.HorizonEnd
	}
	return nil
}

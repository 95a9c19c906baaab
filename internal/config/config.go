// Package config loads and validates the vitals configuration file.
package config

import (
	"fmt"
	"time"

	"github.com/vitals-sh/vitals/internal/errors"
)

// TempUnit selects how temperatures are displayed.
type TempUnit string

const (
	TempCelsius    TempUnit = "celsius"
	TempFahrenheit TempUnit = "fahrenheit"
	TempKelvin     TempUnit = "kelvin"
)

// Config holds every user-tunable setting. Zero values are filled in by
// Default and the validators, so a partial config file is fine.
type Config struct {
	// Rate is the telemetry collection interval.
	Rate time.Duration `mapstructure:"rate" yaml:"rate"`
	// Retention is how much history is kept in memory.
	Retention time.Duration `mapstructure:"retention" yaml:"retention"`
	// Window is the graph span shown at startup.
	Window time.Duration `mapstructure:"window" yaml:"window"`

	Temperature   TempUnit `mapstructure:"temperature" yaml:"temperature"`
	CaseSensitive bool     `mapstructure:"case_sensitive" yaml:"case_sensitive"`

	DefaultSort           string `mapstructure:"default_sort" yaml:"default_sort"`
	DefaultSortDescending bool   `mapstructure:"default_sort_descending" yaml:"default_sort_descending"`

	// Tree and Group pick the initial table shape; Tree wins if both are set.
	Tree  bool `mapstructure:"tree" yaml:"tree"`
	Group bool `mapstructure:"group" yaml:"group"`
	// AvgCPU collapses the per-core graphs into the average only.
	AvgCPU bool `mapstructure:"avg_cpu" yaml:"avg_cpu"`

	// ShrinkTicks is the graph axis shrink hysteresis, in ticks.
	ShrinkTicks int `mapstructure:"shrink_ticks" yaml:"shrink_ticks"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Rate:                  time.Second,
		Retention:             10 * time.Minute,
		Window:                2 * time.Minute,
		Temperature:           TempCelsius,
		DefaultSort:           "cpu",
		DefaultSortDescending: true,
		ShrinkTicks:           3,
	}
}

// Validate checks ranges and fills gaps with defaults. It returns a coded
// config error for values that are present but unusable.
func (c *Config) Validate() error {
	def := Default()

	if c.Rate == 0 {
		c.Rate = def.Rate
	}
	if c.Rate < 100*time.Millisecond {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("rate %s is too fast", c.Rate),
			"Use a collection rate of at least 100ms")
	}

	if c.Retention == 0 {
		c.Retention = def.Retention
	}
	if c.Retention < c.Rate {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("retention %s is shorter than the collection rate %s", c.Retention, c.Rate),
			"Set retention to at least one collection interval")
	}

	if c.Window == 0 {
		c.Window = def.Window
	}
	if c.Window > c.Retention {
		c.Window = c.Retention
	}

	switch c.Temperature {
	case "":
		c.Temperature = def.Temperature
	case TempCelsius, TempFahrenheit, TempKelvin:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("unknown temperature unit %q", c.Temperature),
			"Use celsius, fahrenheit, or kelvin")
	}

	if c.DefaultSort == "" {
		c.DefaultSort = def.DefaultSort
		c.DefaultSortDescending = def.DefaultSortDescending
	}

	if c.ShrinkTicks <= 0 {
		c.ShrinkTicks = def.ShrinkTicks
	}

	return nil
}

// ConvertTemp converts a celsius reading into the configured unit.
func (c *Config) ConvertTemp(celsius float64) (value float64, suffix string) {
	switch c.Temperature {
	case TempFahrenheit:
		return celsius*9/5 + 32, "°F"
	case TempKelvin:
		return celsius + 273.15, "K"
	default:
		return celsius, "°C"
	}
}

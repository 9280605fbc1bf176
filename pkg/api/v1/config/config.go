package config

import (
	"sync"

	"github.com/nergy-se/hourcontroller/pkg/hourselection"
)

// Prices is the hourly price response from the controller server. Tomorrow is empty until the
// day ahead prices are published.
type Prices struct {
	Date     string    `json:"date,omitempty"`
	Today    []float64 `json:"today"`
	Tomorrow []float64 `json:"tomorrow"`
}

func (p Prices) HasTomorrow() bool {
	return len(p.Tomorrow) > 0
}

// Config is the runtime configuration shared between the fetch loops and the hour selection. It
// implements hourselection.PriceSource and hourselection.OptionsProvider.
type Config struct {
	prices  Prices
	cloud   *CloudConfig
	options hourselection.Options
	peak    float64
	err     error
	mutex   sync.RWMutex
}

func NewConfig() *Config {
	return &Config{
		options: hourselection.Options{MinimumLoadKW: DefaultMinimumLoadKW},
	}
}

func (c *Config) SetPrices(p Prices) {
	c.mutex.Lock()
	c.prices = Prices{
		Date:     p.Date,
		Today:    append([]float64{}, p.Today...),
		Tomorrow: append([]float64{}, p.Tomorrow...),
	}
	c.mutex.Unlock()
}

func (c *Config) Prices() Prices {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return Prices{
		Date:     c.prices.Date,
		Today:    append([]float64{}, c.prices.Today...),
		Tomorrow: append([]float64{}, c.prices.Tomorrow...),
	}
}

func (c *Config) PricesToday() []float64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return append([]float64{}, c.prices.Today...)
}

func (c *Config) PricesTomorrow() []float64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return append([]float64{}, c.prices.Tomorrow...)
}

// PriceAt returns today's price for hour.
func (c *Config) PriceAt(hour int) (float64, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if hour < 0 || hour >= len(c.prices.Today) {
		return 0, false
	}
	return c.prices.Today[hour], true
}

// RolloverPrices makes tomorrow's prices today's at midnight.
func (c *Config) RolloverPrices(date string) {
	c.mutex.Lock()
	c.prices = Prices{
		Date:  date,
		Today: c.prices.Tomorrow,
	}
	c.mutex.Unlock()
}

// SetCloudConfig validates the scheduling policy of cc and stores it. An invalid policy is
// returned as an error and remembered by Err until a valid one is set. The previous options are
// kept.
func (c *Config) SetCloudConfig(cc *CloudConfig) error {
	opts, err := cc.Options()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err != nil {
		c.err = err
		return err
	}
	c.cloud = cc
	c.options = opts
	c.err = nil
	return nil
}

// Err returns the error of the last rejected cloud config, nil once a valid one is accepted.
func (c *Config) Err() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.err
}

func (c *Config) CloudConfig() *CloudConfig {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.cloud
}

// SetPeak sets the current peak load in kW.
func (c *Config) SetPeak(kw float64) {
	c.mutex.Lock()
	c.peak = kw
	c.mutex.Unlock()
}

func (c *Config) Options() hourselection.Options {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	opts := c.options
	opts.CurrentPeak = c.peak
	return opts
}

package controller

import (
	"math"

	"github.com/nergy-se/hourcontroller/pkg/state"
)

// Gate switches the controlled load according to the hour selection.
type Gate interface {
	// AllowLoad sets the share of the load allowed to run. 1 in non hours, the dynamic caution
	// allowance in caution hours.
	AllowLoad(allowance float64) error

	// fetch state. Used for status and mqtt.
	State() (*state.State, error)

	Alarms() ([]string, error)
}

// Percent converts an allowance to a whole percent clamped to 0..100.
func Percent(allowance float64) uint16 {
	if math.IsNaN(allowance) || allowance <= 0 {
		return 0
	}
	if allowance >= 1 {
		return 100
	}
	return uint16(math.Round(allowance * 100))
}

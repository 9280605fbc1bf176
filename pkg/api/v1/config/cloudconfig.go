package config

import (
	"github.com/nergy-se/hourcontroller/pkg/api/v1/types"
	"github.com/nergy-se/hourcontroller/pkg/hourselection"
)

// DefaultMinimumLoadKW is the smallest load worth running in a caution hour.
const DefaultMinimumLoadKW = 1.4

type CloudConfig struct {
	ControllerId string `json:"controllerId"`

	GateType types.GateType `json:"gateType"`
	Address  string         `json:"address"`

	CautionHourType  string   `json:"cautionhourType"`
	AbsoluteTopPrice *float64 `json:"absoluteTopPrice,omitempty"`
	MinPrice         *float64 `json:"minPrice,omitempty"`
	BlockNocturnal   bool     `json:"blockNocturnal"`
	AdjustedAverage  *float64 `json:"adjustedAverage,omitempty"`
	MinimumLoadKW    *float64 `json:"minimumLoadKW,omitempty"`

	Meters []Meter `json:"meters,omitempty"`
}

type Meter struct {
	InterfaceType string `json:"interfaceType"`
	Model         string `json:"model"`
	PrimaryID     string `json:"primaryId"`
}

// Options converts the scheduling policy to hour selection options. The current peak is filled in
// by the caller.
func (c *CloudConfig) Options() (hourselection.Options, error) {
	ct, err := hourselection.ParseCautionType(c.CautionHourType)
	if err != nil {
		return hourselection.Options{}, err
	}
	opts := hourselection.Options{
		CautionHourType:  ct,
		AbsoluteTopPrice: c.AbsoluteTopPrice,
		MinPrice:         c.MinPrice,
		BlockNocturnal:   c.BlockNocturnal,
		AdjustedAverage:  c.AdjustedAverage,
		MinimumLoadKW:    DefaultMinimumLoadKW,
	}
	if c.MinimumLoadKW != nil {
		opts.MinimumLoadKW = *c.MinimumLoadKW
	}
	return opts, opts.Validate()
}

func CloudConfigNeedsGateSetup(old *CloudConfig, new *CloudConfig) bool {
	if old == nil {
		return true
	}
	if old.GateType != new.GateType {
		return true
	}
	if old.Address != new.Address {
		return true
	}
	return false
}

package state

import "time"

// State is the controller state for the current hour.
type State struct {
	Time      time.Time `json:"time"`
	Hour      int       `json:"hour"`
	Price     *float64  `json:"price,omitempty"`
	Caution   bool      `json:"caution"`
	Allowance float64   `json:"allowance"`

	// Peak is the monthly peak load in kW.
	Peak      *float64 `json:"peak,omitempty"`
	CurrentKW *float64 `json:"currentKW,omitempty"`

	// set by the gate
	LoadAllowed      *bool    `json:"loadAllowed,omitempty"`
	AllowancePercent *float64 `json:"allowancePercent,omitempty"`
	Alarm            *bool    `json:"alarm,omitempty"`

	PreserveInterim bool `json:"preserveInterim"`
}

func (s State) Map() map[string]interface{} {
	m := make(map[string]interface{})
	m["hour"] = s.Hour
	m["caution"] = boolToInt(s.Caution)
	m["allowance"] = s.Allowance
	m["preserveInterim"] = boolToInt(s.PreserveInterim)
	if s.Price != nil {
		m["price"] = *s.Price
	}
	if s.Peak != nil {
		m["peak"] = *s.Peak
	}
	if s.CurrentKW != nil {
		m["currentKW"] = *s.CurrentKW
	}
	if s.LoadAllowed != nil {
		m["loadAllowed"] = boolToInt(*s.LoadAllowed)
	}
	if s.AllowancePercent != nil {
		m["allowancePercent"] = *s.AllowancePercent
	}
	if s.Alarm != nil {
		m["alarm"] = boolToInt(*s.Alarm)
	}

	return m
}

// Merge copies the fields a gate reports into s.
func (s *State) Merge(gate *State) {
	if gate == nil {
		return
	}
	if gate.LoadAllowed != nil {
		s.LoadAllowed = gate.LoadAllowed
	}
	if gate.AllowancePercent != nil {
		s.AllowancePercent = gate.AllowancePercent
	}
	if gate.Alarm != nil {
		s.Alarm = gate.Alarm
	}
}

func Pointer[K any](val K) *K {
	return &val
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

package types

// GateType selects the device that switches the controlled load.
type GateType string

var GateTypeModbus = GateType("modbus")
var GateTypeDummy = GateType("dummy")

// Day names used for stored hour objects and API paths.
const (
	DayToday    = "today"
	DayTomorrow = "tomorrow"
)

package modbusgate

import (
	"fmt"
	"sort"

	"github.com/nergy-se/hourcontroller/pkg/controller"
	"github.com/nergy-se/hourcontroller/pkg/modbusclient"
	"github.com/nergy-se/hourcontroller/pkg/state"
	"github.com/sirupsen/logrus"
)

const (
	coilAllowLoad            uint16 = 0 // relay output enabling the load
	registerAllowancePercent uint16 = 1 // allowed share of the load in percent
	alarmInputCount          uint16 = 4
)

var alarmsMap = map[int]string{
	0: "Relay output fault",
	1: "Contactor feedback mismatch",
	2: "Overcurrent trip",
	3: "External stop active",
}

// Gate drives a modbus relay module with one coil enabling the load and one holding register
// with the allowed share of the load.
type Gate struct {
	client   modbusclient.Client
	readonly bool

	written   bool
	allowLoad bool
	percent   uint16
}

func New(client modbusclient.Client, readonly bool) *Gate {
	return &Gate{
		client:   client,
		readonly: readonly,
	}
}

func (g *Gate) AllowLoad(allowance float64) error {
	percent := controller.Percent(allowance)
	allow := percent > 0
	logger := logrus.WithFields(logrus.Fields{"allowance": allowance, "percent": percent, "allow": allow})
	if g.written && allow == g.allowLoad && percent == g.percent {
		logger.Trace("modbusgate: AllowLoad unchanged")
		return nil
	}
	logger.Debugf("modbusgate: AllowLoad")
	if g.readonly {
		g.set(allow, percent)
		return nil
	}

	_, err := g.client.WriteSingleRegister(registerAllowancePercent, percent)
	if err != nil {
		return fmt.Errorf("error writing allowance %d: %w", registerAllowancePercent, err)
	}
	_, err = g.client.WriteSingleCoil(coilAllowLoad, modbusclient.CoilValue(allow))
	if err != nil {
		return fmt.Errorf("error writing coil %d: %w", coilAllowLoad, err)
	}
	g.set(allow, percent)
	return nil
}

func (g *Gate) set(allow bool, percent uint16) {
	g.written = true
	g.allowLoad = allow
	g.percent = percent
}

func (g *Gate) State() (*state.State, error) {
	s := &state.State{}
	if g.readonly {
		s.LoadAllowed = state.Pointer(g.allowLoad)
		s.AllowancePercent = state.Pointer(float64(g.percent))
		return s, nil
	}

	allowed, err := g.client.ReadCoil(coilAllowLoad)
	if err != nil {
		return s, err
	}
	s.LoadAllowed = &allowed

	percent, err := g.client.ReadHoldingRegister16(registerAllowancePercent)
	if err != nil {
		return s, err
	}
	s.AllowancePercent = state.Pointer(float64(percent))

	alarms, err := g.Alarms()
	if err != nil {
		return s, err
	}
	s.Alarm = state.Pointer(len(alarms) > 0)
	return s, nil
}

func (g *Gate) Alarms() ([]string, error) {
	if g.readonly {
		return nil, nil
	}
	inputs, err := g.client.ReadDiscreteInputs(0, alarmInputCount)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(alarmsMap))
	for i := range alarmsMap {
		if i < len(inputs) && inputs[i] {
			ids = append(ids, i)
		}
	}
	sort.Ints(ids)

	errs := make([]string, 0, len(ids))
	for _, i := range ids {
		errs = append(errs, alarmsMap[i])
	}
	return errs, nil
}

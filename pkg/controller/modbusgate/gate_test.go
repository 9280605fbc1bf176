package modbusgate

import (
	"errors"
	"testing"

	"github.com/nergy-se/hourcontroller/pkg/modbusclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type write struct {
	address uint16
	value   uint16
}

type fakeClient struct {
	registers map[uint16]uint16
	coils     map[uint16]bool
	inputs    []bool
	writes    []write
	err       error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		registers: map[uint16]uint16{},
		coils:     map[uint16]bool{},
	}
}

func (f *fakeClient) ReadHoldingRegister16(address uint16) (int, error) {
	return int(f.registers[address]), f.err
}

func (f *fakeClient) ReadCoil(address uint16) (bool, error) {
	return f.coils[address], f.err
}

func (f *fakeClient) ReadDiscreteInputs(address, quantity uint16) ([]bool, error) {
	return f.inputs, f.err
}

func (f *fakeClient) WriteSingleRegister(address, value uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.writes = append(f.writes, write{address, value})
	f.registers[address] = value
	return nil, nil
}

func (f *fakeClient) Close() error { return nil }

var _ modbusclient.Client = &fakeClient{}

func (f *fakeClient) WriteSingleCoil(address, value uint16) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.writes = append(f.writes, write{address, value})
	f.coils[address] = value == modbusclient.WriteCoilValueOn
	return 0, nil
}

func TestAllowLoad(t *testing.T) {
	client := newFakeClient()
	gate := New(client, false)

	err := gate.AllowLoad(0.17)
	assert.NoError(t, err)
	assert.Equal(t, []write{
		{registerAllowancePercent, 17},
		{coilAllowLoad, modbusclient.WriteCoilValueOn},
	}, client.writes)

	// unchanged allowance is not written again
	err = gate.AllowLoad(0.17)
	assert.NoError(t, err)
	assert.Len(t, client.writes, 2)

	err = gate.AllowLoad(0)
	assert.NoError(t, err)
	assert.Equal(t, write{coilAllowLoad, modbusclient.WriteCoilValueOff}, client.writes[3])

	s, err := gate.State()
	require.NoError(t, err)
	assert.False(t, *s.LoadAllowed)
	assert.Equal(t, 0.0, *s.AllowancePercent)
	assert.False(t, *s.Alarm)

	err = gate.AllowLoad(1)
	assert.NoError(t, err)
	s, err = gate.State()
	require.NoError(t, err)
	assert.True(t, *s.LoadAllowed)
	assert.Equal(t, 100.0, *s.AllowancePercent)
}

func TestAllowLoadError(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("broken pipe")
	gate := New(client, false)

	assert.Error(t, gate.AllowLoad(1))
	_, err := gate.State()
	assert.Error(t, err)

	// a failed write is retried next time
	client.err = nil
	assert.NoError(t, gate.AllowLoad(1))
	assert.Len(t, client.writes, 2)
}

func TestReadonly(t *testing.T) {
	client := newFakeClient()
	gate := New(client, true)

	assert.NoError(t, gate.AllowLoad(0.5))
	assert.Empty(t, client.writes)

	s, err := gate.State()
	require.NoError(t, err)
	assert.True(t, *s.LoadAllowed)
	assert.Equal(t, 50.0, *s.AllowancePercent)

	alarms, err := gate.Alarms()
	assert.NoError(t, err)
	assert.Empty(t, alarms)
}

func TestAlarms(t *testing.T) {
	client := newFakeClient()
	client.inputs = []bool{false, true, false, true}
	gate := New(client, false)

	alarms, err := gate.Alarms()
	assert.NoError(t, err)
	assert.Equal(t, []string{"Contactor feedback mismatch", "External stop active"}, alarms)

	s, err := gate.State()
	require.NoError(t, err)
	assert.True(t, *s.Alarm)
}

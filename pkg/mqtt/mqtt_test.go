package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nergy-se/hourcontroller/pkg/hourselection"
	"github.com/nergy-se/hourcontroller/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	payload []byte
	retain  bool
}

type fakeServer struct {
	messages map[string]message
}

func (f *fakeServer) Publish(topic string, payload []byte, retain bool, qos byte) error {
	if f.messages == nil {
		f.messages = map[string]message{}
	}
	f.messages[topic] = message{payload: payload, retain: retain}
	return nil
}

func TestDecodeP1ib(t *testing.T) {
	payload := `{
  "p1ib_hourly_active_import_q1_q4": 76215.335,
  "p1ib_active_power_plus_q1_q4": 4.396,
  "p1ib_active_power_minus_q2_q3": 0,
  "p1ib_voltage_l1": 233.6,
  "p1ib_voltage_l2": 234,
  "p1ib_voltage_l3": 232.3,
  "p1ib_current_l1": 3.5,
  "p1ib_current_l2": 4.2,
  "p1ib_current_l3": 11.8,
  "p1ib_firmware": "54aa555",
  "p1ib_rssi": "-58",
  "p1ib_meter": "Aidon",
  "p1ib_wifi_mac": "b0b21ca00a68"
}`
	ts := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)
	data, err := decodeP1ib([]byte(payload), ts)
	require.NoError(t, err)
	assert.Equal(t, "b0b21ca00a68", data.Id)
	assert.Equal(t, "p1ib", data.Model)
	assert.Equal(t, ts, data.Time)
	assert.InDelta(t, 4396.0, data.Current_W, 1e-9)
	assert.Equal(t, 234.0, data.L2_V)
	assert.Equal(t, 11.8, data.L3_A)

	_, err = decodeP1ib([]byte("{"), ts)
	assert.Error(t, err)

	data, err = decodeP1ib([]byte(`{}`), ts)
	assert.NoError(t, err)
	assert.Equal(t, "p1ib", data.Id)
}

func TestPublisher(t *testing.T) {
	server := &fakeServer{}
	p := NewPublisher(server)

	today := hourselection.NewHourObject().AddExpensiveHours([]int{17, 18})
	today.NonHours = []int{0, 1}
	tomorrow := hourselection.NewHourObject()

	p.Publish(today, tomorrow)
	require.Contains(t, server.messages, "hourselection/today")
	assert.True(t, server.messages["hourselection/today"].retain)
	decoded := hourselection.HourObject{}
	err := json.Unmarshal(server.messages["hourselection/today"].payload, &decoded)
	assert.NoError(t, err)
	assert.Equal(t, []int{17, 18}, decoded.CautionHours)

	p.Notify(hourselection.Notification{Type: hourselection.ListAll, Hour: 17, Today: today, Tomorrow: tomorrow})
	assert.Contains(t, server.messages, "hourselection/non")
	assert.Contains(t, server.messages, "hourselection/dynamic-caution")
	assert.JSONEq(t, `{"hour":17,"today":[17,18],"tomorrow":[]}`, string(server.messages["hourselection/caution"].payload))
	assert.JSONEq(t, `{"hour":17,"today":{"17":0,"18":0},"tomorrow":{}}`, string(server.messages["hourselection/dynamic-caution"].payload))

	p.PublishState(state.State{Hour: 17, Caution: true})
	assert.JSONEq(t, `{"hour":17,"caution":1,"allowance":0,"preserveInterim":0}`, string(server.messages["hourselection/state"].payload))
}

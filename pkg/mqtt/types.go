package mqtt

import (
	"time"

	"github.com/nergy-se/hourcontroller/pkg/api/v1/meter"
)

const P1ibTopic = "p1ib/sensor_state"

// P1ib is the sensor state published by a p1ib reader on the han port of the electricity meter.
// Powers are in kW and energies in kWh.
type P1ib struct {
	P1IbHourlyActiveImportQ1Q4 float64 `json:"p1ib_hourly_active_import_q1_q4"`
	P1IbHourlyActiveExportQ2Q3 float64 `json:"p1ib_hourly_active_export_q2_q3"`
	P1IbActivePowerPlusQ1Q4    float64 `json:"p1ib_active_power_plus_q1_q4"`
	P1IbActivePowerMinusQ2Q3   float64 `json:"p1ib_active_power_minus_q2_q3"`
	P1IbVoltageL1              float64 `json:"p1ib_voltage_l1"`
	P1IbVoltageL2              float64 `json:"p1ib_voltage_l2"`
	P1IbVoltageL3              float64 `json:"p1ib_voltage_l3"`
	P1IbCurrentL1              float64 `json:"p1ib_current_l1"`
	P1IbCurrentL2              float64 `json:"p1ib_current_l2"`
	P1IbCurrentL3              float64 `json:"p1ib_current_l3"`
	P1IbFirmware               string  `json:"p1ib_firmware"`
	P1IbRssi                   string  `json:"p1ib_rssi"`
	P1IbMeter                  string  `json:"p1ib_meter"`
	P1IbWifiMac                string  `json:"p1ib_wifi_mac"`
}

func (p P1ib) AsMeterData(id string, ts time.Time) meter.Data {
	return meter.Data{
		Id:        id,
		Model:     "p1ib",
		Time:      ts,
		Current_W: (p.P1IbActivePowerPlusQ1Q4 - p.P1IbActivePowerMinusQ2Q3) * 1000,
		Total_WH:  p.P1IbHourlyActiveImportQ1Q4 * 1000,
		L1_A:      p.P1IbCurrentL1,
		L2_A:      p.P1IbCurrentL2,
		L3_A:      p.P1IbCurrentL3,
		L1_V:      p.P1IbVoltageL1,
		L2_V:      p.P1IbVoltageL2,
		L3_V:      p.P1IbVoltageL3,
	}
}

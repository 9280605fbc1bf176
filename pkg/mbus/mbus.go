package mbus

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jonaz/gombus"
	"github.com/nergy-se/hourcontroller/pkg/api/v1/meter"
)

const ModelGaroGNM3D = "garo-GNM3D-MBUS"

type Mbus struct {
	device string
	conn   gombus.Conn
	mutex  *sync.Mutex
}

func New(device string) *Mbus {
	return &Mbus{
		device: device,
		mutex:  &sync.Mutex{},
	}
}

func (m *Mbus) init() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.conn != nil {
		return nil
	}
	c, err := gombus.DialSerial(m.device)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", m.device, err)
	}
	m.conn = c
	return nil
}

func (m *Mbus) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		return err
	}
	return nil
}

// ReadValues reads the meter with primary address idStr. The connection is closed on read errors
// so the next read reopens it.
func (m *Mbus) ReadValues(model, idStr string) (*meter.Data, error) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid primary address %q: %w", idStr, err)
	}
	err = m.init()
	if err != nil {
		return nil, err
	}

	frame, err := m.read(id)
	if err != nil {
		m.Close()
		return nil, err
	}

	values := make([]float64, len(frame.DataRecords))
	for i, rec := range frame.DataRecords {
		values[i] = rec.Value
	}

	data := &meter.Data{
		Id:    idStr,
		Model: model,
		Time:  time.Now(),
	}
	return data, decode(model, values, data)
}

// decode maps data record values of a model into data.
func decode(model string, values []float64, data *meter.Data) error {
	switch model {
	case ModelGaroGNM3D:
		if len(values) < 11 {
			return fmt.Errorf("%s: expected 11 data records got %d", model, len(values))
		}
		data.Total_WH = values[0]
		data.Current_W = values[2]
		data.Current_VLL = values[6]
		data.Current_VLN = values[7]
		data.L1_A = values[8]
		data.L2_A = values[9]
		data.L3_A = values[10]
		return nil
	}
	return fmt.Errorf("unsupported meter model %q", model)
}

func (m *Mbus) read(primaryAddr int) (*gombus.DecodedFrame, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, err := m.conn.Write(gombus.SndNKE(uint8(primaryAddr)))
	if err != nil {
		return nil, err
	}

	err = m.conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	if err != nil {
		return nil, err
	}

	_, err = gombus.ReadSingleCharFrame(m.conn)
	if err != nil {
		return nil, err
	}

	return gombus.ReadSingleFrame(m.conn, primaryAddr)
}

package modbusclient

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sirupsen/logrus"
)

type Client interface {
	ReadHoldingRegister16(address uint16) (int, error)
	ReadCoil(address uint16) (bool, error)
	ReadDiscreteInputs(address, quantity uint16) ([]bool, error)
	WriteSingleRegister(address, value uint16) (results []byte, err error)
	WriteSingleCoil(address, value uint16) (int, error)
	Close() error
}

type client struct {
	client modbus.Client
	close  func() error
}

func New(c modbus.Client, close func() error) Client {
	return &client{
		client: c,
		close:  close,
	}
}

// Dial returns a client for a modbus TCP device. The connection is opened on first use and
// reopened after broken pipes and timeouts.
func Dial(address string, slaveID byte) (Client, error) {
	if address == "" {
		return nil, fmt.Errorf("modbus address not configured")
	}
	handler := modbus.NewTCPClientHandler(address)
	handler.SlaveId = slaveID
	handler.Timeout = 5 * time.Second
	return New(modbus.NewClient(handler), handler.Close), nil
}

func (c *client) Close() error {
	return c.close()
}

func (c *client) closeIfNeeded(e error) {
	if e == nil {
		return
	}

	if errors.Is(e, syscall.EPIPE) {
		logrus.Warn("reconnect due to broken pipe")
		c.reconnect()
	}

	if errors.Is(e, os.ErrDeadlineExceeded) {
		logrus.Warn("reconnect due to i/o timeout")
		c.reconnect()
	}
}

func (c *client) reconnect() {
	err := c.close()
	if err != nil {
		logrus.Errorf("error closing client: %s", err)
	}
}

func (c *client) ReadHoldingRegister16(address uint16) (int, error) {
	b, err := c.client.ReadHoldingRegisters(address, 1)
	if err != nil {
		c.closeIfNeeded(err)
		err = fmt.Errorf("error reading address %d: %w", address, err)
	}
	return Decode(b), err
}

func (c *client) ReadCoil(address uint16) (bool, error) {
	b, err := c.client.ReadCoils(address, 1)
	if err != nil {
		c.closeIfNeeded(err)
		return false, fmt.Errorf("error reading coil %d: %w", address, err)
	}
	bits := Bits(b, 1)
	return len(bits) == 1 && bits[0], nil
}

func (c *client) ReadDiscreteInputs(address, quantity uint16) ([]bool, error) {
	b, err := c.client.ReadDiscreteInputs(address, quantity)
	if err != nil {
		c.closeIfNeeded(err)
		return nil, fmt.Errorf("error reading address %d: %w", address, err)
	}
	return Bits(b, int(quantity)), nil
}

func (c *client) WriteSingleRegister(address, value uint16) ([]byte, error) {
	b, err := c.client.WriteSingleRegister(address, value)
	if err != nil {
		c.closeIfNeeded(err)
		err = fmt.Errorf("error writing address %d value %d error: %w", address, value, err)
	}
	return b, err
}

func (c *client) WriteSingleCoil(address, value uint16) (int, error) {
	b, err := c.client.WriteSingleCoil(address, value)
	if err != nil {
		c.closeIfNeeded(err)
		err = fmt.Errorf("error writing address %d value %d error: %w", address, value, err)
	}
	return Decode(b), err
}

// Decode High byte first high word first (big endian)
func Decode(data []byte) int {

	switch len(data) {
	case 1:
		var i int8
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	case 2:
		var i int16
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	case 4:
		var i int32
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	case 8:
		var i int64
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	}

	return 0
}

// Bits unpacks n coil or discrete input values. The first value is the least significant bit of
// the first byte.
func Bits(data []byte, n int) []bool {
	ret := make([]bool, 0, n)
	for i := 0; i < n && i/8 < len(data); i++ {
		ret = append(ret, data[i/8]&(1<<(uint(i)%8)) != 0)
	}
	return ret
}

func CoilValue(b bool) uint16 {
	if b {
		return WriteCoilValueOn
	}
	return WriteCoilValueOff
}

const (
	WriteCoilValueOn  uint16 = 0xff00
	WriteCoilValueOff uint16 = 0
)

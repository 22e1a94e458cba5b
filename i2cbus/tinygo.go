package i2cbus

import (
	"encoding/binary"

	"tinygo.org/x/drivers"
)

// TinyGo drives a tinygo.org/x/drivers I2C peripheral, e.g. machine.I2C0.
type TinyGo struct {
	bus  drivers.I2C
	addr uint16
	set  bool
}

func NewTinyGo(b drivers.I2C) *TinyGo {
	return &TinyGo{bus: b}
}

func (t *TinyGo) SetAddress(addr uint16) error {
	t.addr = addr
	t.set = true
	return nil
}

func (t *TinyGo) ReadReg(cmd byte) (byte, error) {
	if !t.set {
		return 0, ErrNoAddress
	}
	r := make([]byte, 1)
	if err := t.bus.Tx(t.addr, []byte{cmd}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (t *TinyGo) WriteReg(cmd, value byte) error {
	if !t.set {
		return ErrNoAddress
	}
	return t.bus.Tx(t.addr, []byte{cmd, value}, nil)
}

func (t *TinyGo) ReadWordLE(cmd byte) (uint16, error) {
	if !t.set {
		return 0, ErrNoAddress
	}
	r := make([]byte, 2)
	if err := t.bus.Tx(t.addr, []byte{cmd}, r); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r), nil
}

// Close is a no-op; the peripheral belongs to the caller.
func (t *TinyGo) Close() error {
	return nil
}

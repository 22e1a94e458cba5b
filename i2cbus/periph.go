package i2cbus

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Periph drives a periph.io I2C bus.
type Periph struct {
	bus    i2c.Bus
	dev    *i2c.Dev
	closer i2c.BusCloser
}

// NewPeriph wraps an already open bus. Closing the returned value does not close b.
func NewPeriph(b i2c.Bus) *Periph {
	return &Periph{bus: b}
}

// OpenPeriph initializes the host drivers and opens the named bus.
func OpenPeriph(name string) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("Failed to initialize periph host: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("Failed to open I2C bus %q: %w", name, err)
	}
	return &Periph{bus: b, closer: b}, nil
}

func (p *Periph) SetAddress(addr uint16) error {
	p.dev = &i2c.Dev{Bus: p.bus, Addr: addr}
	return nil
}

func (p *Periph) ReadReg(cmd byte) (byte, error) {
	if p.dev == nil {
		return 0, ErrNoAddress
	}
	r := make([]byte, 1)
	if err := p.dev.Tx([]byte{cmd}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (p *Periph) WriteReg(cmd, value byte) error {
	if p.dev == nil {
		return ErrNoAddress
	}
	return p.dev.Tx([]byte{cmd, value}, nil)
}

func (p *Periph) ReadWordLE(cmd byte) (uint16, error) {
	if p.dev == nil {
		return 0, ErrNoAddress
	}
	r := make([]byte, 2)
	if err := p.dev.Tx([]byte{cmd}, r); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r), nil
}

func (p *Periph) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

func (p *Periph) String() string {
	return p.bus.String()
}

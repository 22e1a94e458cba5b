package i2cbus

import (
	"errors"
	"fmt"
	"io"
)

// ErrNoAddress is returned when a transaction is attempted before SetAddress.
var ErrNoAddress = errors.New("i2cbus: no device address selected")

// Conn is the register access every transport in this package provides.
type Conn interface {
	SetAddress(addr uint16) error
	ReadReg(cmd byte) (byte, error)
	WriteReg(cmd, value byte) error
	ReadWordLE(cmd byte) (uint16, error)
	io.Closer
}

var (
	_ Conn = (*Devfs)(nil)
	_ Conn = (*Periph)(nil)
	_ Conn = (*TinyGo)(nil)
)

// Open returns a transport by driver name. For "devfs" name is the character
// device path, for "periph" it is the periph bus name ("" picks the first bus).
func Open(driver, name string) (Conn, error) {
	switch driver {
	case "", "devfs":
		if name == "" {
			name = "/dev/i2c-1"
		}
		return NewDevfs(name), nil
	case "periph":
		return OpenPeriph(name)
	default:
		return nil, fmt.Errorf("i2cbus: unknown driver %q", driver)
	}
}

package i2cbus

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/io/i2c"
)

// devfsDevice is the part of *i2c.Device used here.
type devfsDevice interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
	Close() error
}

func openDevfs(path string, addr int) (devfsDevice, error) {
	return i2c.Open(&i2c.Devfs{Dev: path}, addr)
}

// Devfs talks to a Linux I2C character device such as /dev/i2c-1.
// The device file is opened by SetAddress, once per selected address.
type Devfs struct {
	path string
	dev  devfsDevice
	open func(path string, addr int) (devfsDevice, error)
}

func NewDevfs(path string) *Devfs {
	return &Devfs{path: path, open: openDevfs}
}

func (d *Devfs) SetAddress(addr uint16) error {
	if d.dev != nil {
		if err := d.dev.Close(); err != nil {
			logrus.Warnf("Failed to close %s before selecting 0x%02X: %v", d.path, addr, err)
		}
		d.dev = nil
	}
	dev, err := d.open(d.path, int(addr))
	if err != nil {
		return fmt.Errorf("Failed to open %s: %w", d.path, err)
	}
	d.dev = dev
	return nil
}

func (d *Devfs) ReadReg(cmd byte) (byte, error) {
	if d.dev == nil {
		return 0, ErrNoAddress
	}
	buf := make([]byte, 1)
	if err := d.dev.ReadReg(cmd, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *Devfs) WriteReg(cmd, value byte) error {
	if d.dev == nil {
		return ErrNoAddress
	}
	return d.dev.WriteReg(cmd, []byte{value})
}

func (d *Devfs) ReadWordLE(cmd byte) (uint16, error) {
	if d.dev == nil {
		return 0, ErrNoAddress
	}
	buf := make([]byte, 2)
	if err := d.dev.ReadReg(cmd, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (d *Devfs) Close() error {
	if d.dev == nil {
		return nil
	}
	err := d.dev.Close()
	d.dev = nil
	return err
}

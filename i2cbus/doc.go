// Package i2cbus adapts I2C transports to the register access used by the
// sensor drivers in this module: select a device address, read or write one
// byte at a command, and read a little-endian word at a command.
//
// Three transports are available:
//
//	Devfs   Linux /dev/i2c-N through golang.org/x/exp/io/i2c
//	Periph  any periph.io i2c.Bus, including i2ctest playback
//	TinyGo  a tinygo.org/x/drivers I2C peripheral
package i2cbus

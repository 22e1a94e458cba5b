package tsl2591

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceNotFound is returned by New when the device ID register does not hold 0x50.
	ErrDeviceNotFound = errors.New("Can't find a TSL2591 on the I2C bus")
	// ErrOverflow means a channel reached saturation for the current integration time.
	// Lower the gain or integration time and read again.
	ErrOverflow = errors.New("Overflow reading light channels")
	// ErrSaturated is returned by SetOptimalGain when no configuration gives a usable reading.
	ErrSaturated = errors.New("All gain options are saturated")

	ErrInvalidGain            = errors.New("invalid gain")
	ErrInvalidIntegrationTime = errors.New("invalid integration time")
)

const (
	opSelect = "select"
	opRead   = "read"
	opWrite  = "write"
)

// BusError wraps a failed bus transaction.
type BusError struct {
	Op  string
	Reg byte
	Err error
}

func (e *BusError) Error() string {
	if e.Op == opSelect {
		return fmt.Sprintf("Failed to select device address: %v", e.Err)
	}
	return fmt.Sprintf("Failed to %s register 0x%02X: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// RegisterError reports a register field holding a value this driver never writes.
type RegisterError struct {
	Register byte
	Field    string
	Value    byte
}

func (e *RegisterError) Error() string {
	return fmt.Sprintf("Unknown %s 0x%02X in register 0x%02X", e.Field, e.Value, e.Register)
}

package tsl2591

/*
 * tsl2591 - Package for interacting with TSL2591 lux sensors.
 *
 * Ref:
 * https://github.com/adafruit/Adafruit_TSL2591_Library
 * https://github.com/adafruit/Adafruit_CircuitPython_TSL2591
 *
 */

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ztkent/lux-meter/i2cbus"
)

var l *logrus.Logger

func init() {
	l = logrus.New()
	// Setup the logger, so it can be parsed by datadog
	l.Formatter = &logrus.JSONFormatter{}
	l.SetOutput(os.Stdout)
	// Set the log level
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch logLevel {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
}

// SetLogger replaces the package logger. A nil logger discards all output.
func SetLogger(logger *logrus.Logger) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	l = logger
}

// Bus is the register access the driver needs from an I2C transport.
// cmd is the framed command byte, not the bare register address.
type Bus interface {
	SetAddress(addr uint16) error
	ReadReg(cmd byte) (byte, error)
	WriteReg(cmd, value byte) error
	// ReadWordLE reads two bytes, low byte first.
	ReadWordLE(cmd byte) (uint16, error)
}

// Opts holds the configuration written to the device by New.
type Opts struct {
	// Address defaults to 0x29 if zero.
	Address         uint16
	Gain            Gain
	IntegrationTime IntegrationTime
}

// DefaultOpts is used when New is called with nil options.
var DefaultOpts = Opts{
	Address:         TSL2591_ADDR,
	Gain:            TSL2591_GAIN_MED,
	IntegrationTime: TSL2591_INTEGRATIONTIME_100MS,
}

// TSL2591 is a connected sensor. It is not safe for concurrent use; callers
// sharing one must serialize access themselves.
type TSL2591 struct {
	bus    Bus
	addr   uint16
	gain   Gain
	timing IntegrationTime

	// after is time.After, replaced in tests.
	after func(time.Duration) <-chan time.Time
}

// RawCounts is one reading of both photodiode channels.
type RawCounts struct {
	Channel0 uint16 // visible + infrared
	Channel1 uint16 // infrared only
}

// FullSpectrum packs both channels into one value, channel 1 in the high word.
func (c RawCounts) FullSpectrum() uint32 {
	return uint32(c.Channel1)<<16 | uint32(c.Channel0)
}

func (c RawCounts) Infrared() uint16 {
	return c.Channel1
}

// Visible is FullSpectrum minus the infrared channel.
func (c RawCounts) Visible() uint32 {
	return c.FullSpectrum() - uint32(c.Channel1)
}

// New verifies the device identity, writes the gain and integration time from
// opts and powers the device on. On error no sensor is returned.
func New(bus Bus, opts *Opts) (*TSL2591, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if !opts.Gain.Valid() {
		return nil, ErrInvalidGain
	}
	if !opts.IntegrationTime.Valid() {
		return nil, ErrInvalidIntegrationTime
	}
	addr := opts.Address
	if addr == 0 {
		addr = TSL2591_ADDR
	}
	if err := bus.SetAddress(addr); err != nil {
		return nil, &BusError{Op: opSelect, Err: err}
	}
	tsl := &TSL2591{
		bus:   bus,
		addr:  addr,
		after: time.After,
	}

	// Read the device ID from the TSL2591
	id, err := tsl.readU8(TSL2591_REGISTER_DEVICE_ID)
	if err != nil {
		return nil, err
	}
	if id != TSL2591_DEVICE_ID {
		return nil, fmt.Errorf("%w at 0x%02X: device ID 0x%02X", ErrDeviceNotFound, addr, id)
	}

	if err := tsl.SetGain(opts.Gain); err != nil {
		return nil, err
	}
	if err := tsl.SetIntegrationTime(opts.IntegrationTime); err != nil {
		return nil, err
	}
	if err := tsl.Enable(); err != nil {
		return nil, err
	}
	l.Debugf("TSL2591 ready at 0x%02X - Gain: %v, Integration Time: %v", addr, tsl.gain, tsl.timing)
	return tsl, nil
}

// Connect to a TSL2591 on a Linux I2C character device & set gain/timing
func NewTSL2591(path string, opts *Opts) (*TSL2591, error) {
	if path == "" {
		// i2c-1 is the default I2C bus for the Raspberry Pi
		path = "/dev/i2c-1"
	}
	bus := i2cbus.NewDevfs(path)
	tsl, err := New(bus, opts)
	if err != nil {
		bus.Close()
		return nil, err
	}
	return tsl, nil
}

// Close releases the bus if the transport holds an open handle.
// It does not power the device down; call Disable first.
func (tsl *TSL2591) Close() error {
	if c, ok := tsl.bus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (tsl *TSL2591) Address() uint16 {
	return tsl.addr
}

func (tsl *TSL2591) readU8(reg byte) (byte, error) {
	v, err := tsl.bus.ReadReg(command(reg))
	if err != nil {
		return 0, &BusError{Op: opRead, Reg: reg, Err: err}
	}
	return v, nil
}

func (tsl *TSL2591) writeU8(reg, val byte) error {
	if err := tsl.bus.WriteReg(command(reg), val); err != nil {
		return &BusError{Op: opWrite, Reg: reg, Err: err}
	}
	return nil
}

// readU16 reads the word starting at the low byte register; the device
// auto-increments to the high byte.
func (tsl *TSL2591) readU16(reg byte) (uint16, error) {
	v, err := tsl.bus.ReadWordLE(command(reg))
	if err != nil {
		return 0, &BusError{Op: opRead, Reg: reg, Err: err}
	}
	return v, nil
}

// Set the gain for the sensor
func (tsl *TSL2591) SetGain(gain Gain) error {
	if !gain.Valid() {
		return ErrInvalidGain
	}
	control, err := tsl.readU8(TSL2591_REGISTER_CONTROL)
	if err != nil {
		return err
	}
	if err := tsl.writeU8(TSL2591_REGISTER_CONTROL, encodeGain(control, gain)); err != nil {
		return err
	}
	tsl.gain = gain
	return nil
}

// Gain reads the gain currently latched in the control register.
func (tsl *TSL2591) Gain() (Gain, error) {
	control, err := tsl.readU8(TSL2591_REGISTER_CONTROL)
	if err != nil {
		return 0, err
	}
	return decodeGain(control)
}

// Set the integration timing for the sensor
func (tsl *TSL2591) SetIntegrationTime(timing IntegrationTime) error {
	if !timing.Valid() {
		return ErrInvalidIntegrationTime
	}
	control, err := tsl.readU8(TSL2591_REGISTER_CONTROL)
	if err != nil {
		return err
	}
	if err := tsl.writeU8(TSL2591_REGISTER_CONTROL, encodeIntegrationTime(control, timing)); err != nil {
		return err
	}
	tsl.timing = timing
	return nil
}

// IntegrationTime reads the integration time currently latched in the control register.
func (tsl *TSL2591) IntegrationTime() (IntegrationTime, error) {
	control, err := tsl.readU8(TSL2591_REGISTER_CONTROL)
	if err != nil {
		return 0, err
	}
	return decodeIntegrationTime(control)
}

// Settings returns the gain and integration time last written successfully.
// It does not touch the bus.
func (tsl *TSL2591) Settings() (Gain, IntegrationTime) {
	return tsl.gain, tsl.timing
}

// Enable the sensor
func (tsl *TSL2591) Enable() error {
	return tsl.writeU8(
		TSL2591_REGISTER_ENABLE,
		TSL2591_ENABLE_POWERON|TSL2591_ENABLE_AEN|TSL2591_ENABLE_AIEN|TSL2591_ENABLE_NPIEN,
	)
}

// Disable the sensor. Measurements are not blocked afterwards; they still hit
// the bus and return whatever the powered down device reports.
func (tsl *TSL2591) Disable() error {
	return tsl.writeU8(TSL2591_REGISTER_ENABLE, TSL2591_ENABLE_POWEROFF)
}

// Read from the light sensor's channels.
// The two channels are separate transactions, so a light change between them is not corrected.
func (tsl *TSL2591) GetFullLuminosity() (RawCounts, error) {
	channel0, err := tsl.readU16(TSL2591_REGISTER_CHAN0_LOW)
	if err != nil {
		return RawCounts{}, err
	}
	channel1, err := tsl.readU16(TSL2591_REGISTER_CHAN1_LOW)
	if err != nil {
		return RawCounts{}, err
	}
	l.Debugf("Channel 0: %v, Channel 1: %v", channel0, channel1)
	return RawCounts{Channel0: channel0, Channel1: channel1}, nil
}

// Read the full spectrum (IR+Visible)
func (tsl *TSL2591) FullSpectrum() (uint32, error) {
	counts, err := tsl.GetFullLuminosity()
	if err != nil {
		return 0, err
	}
	return counts.FullSpectrum(), nil
}

// Read the infrared light
func (tsl *TSL2591) Infrared() (uint16, error) {
	counts, err := tsl.GetFullLuminosity()
	if err != nil {
		return 0, err
	}
	return counts.Infrared(), nil
}

// Read the visible light
func (tsl *TSL2591) Visible() (uint32, error) {
	counts, err := tsl.GetFullLuminosity()
	if err != nil {
		return 0, err
	}
	return counts.Visible(), nil
}

// Lux reads both channels and converts them with the current settings.
// ErrOverflow is returned when either channel is saturated.
func (tsl *TSL2591) Lux() (float64, error) {
	counts, err := tsl.GetFullLuminosity()
	if err != nil {
		return 0, err
	}
	return tsl.CalculateLux(counts)
}

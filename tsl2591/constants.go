package tsl2591

import "time"

// Spectrum selects which part of a reading GetNormalizedOutput reports.
type Spectrum byte

const (
	TSL2591_VISIBLE      Spectrum = 2 ///< channel 0 - channel 1
	TSL2591_INFRARED     Spectrum = 1 ///< channel 1
	TSL2591_FULLSPECTRUM Spectrum = 0 ///< channel 0
)

const (
	TSL2591_ADDR        uint16 = 0x29 ///< Default I2C address
	TSL2591_DEVICE_ID   byte   = 0x50 ///< Expected contents of the device ID register
	TSL2591_COMMAND_BIT byte   = 0xA0 ///< 1010 0000: bits 7 and 5 for 'command normal'

	TSL2591_WORD_BIT  byte = 0x20 ///< 1 = read/write word rather than byte
	TSL2591_BLOCK_BIT byte = 0x10 ///< 1 = using block read/write

	TSL2591_ENABLE_POWEROFF byte = 0x00 ///< Flag for ENABLE register to disable
	TSL2591_ENABLE_POWERON  byte = 0x01 ///< Flag for ENABLE register to enable
	TSL2591_ENABLE_AEN      byte = 0x02 ///< ALS Enable. This field activates ALS function. Writing a one activates the ALS. Writing a zero disables the ALS.
	TSL2591_ENABLE_AIEN     byte = 0x10 ///< ALS Interrupt Enable. When asserted permits ALS interrupts to be generated, subject to the persist filter.
	TSL2591_ENABLE_NPIEN    byte = 0x80 ///< No Persist Interrupt Enable. When asserted NP Threshold conditions will generate an interrupt, bypassing the persist filter

	TSL2591_LUX_DF    float64 = 408.0 ///< Lux cooefficient
	TSL2591_LUX_COEFB float64 = 1.64  ///< CH0 coefficient
	TSL2591_LUX_COEFC float64 = 0.59  ///< CH1 coefficient A
	TSL2591_LUX_COEFD float64 = 0.86  ///< CH2 coefficient B

	TSL2591_MAX_COUNT_100MS uint16 = 0x8FFF ///< ADC saturation at 100ms integration
	TSL2591_MAX_COUNT       uint16 = 0xFFFF ///< ADC saturation for every other integration time
)

// TSL2591 Register map
const (
	TSL2591_REGISTER_ENABLE            byte = 0x00 // Enable register
	TSL2591_REGISTER_CONTROL           byte = 0x01 // Control register
	TSL2591_REGISTER_THRESHOLD_AILTL   byte = 0x04 // ALS low threshold lower byte
	TSL2591_REGISTER_THRESHOLD_AILTH   byte = 0x05 // ALS low threshold upper byte
	TSL2591_REGISTER_THRESHOLD_AIHTL   byte = 0x06 // ALS high threshold lower byte
	TSL2591_REGISTER_THRESHOLD_AIHTH   byte = 0x07 // ALS high threshold upper byte
	TSL2591_REGISTER_THRESHOLD_NPAILTL byte = 0x08 // No Persist ALS low threshold lower byte
	TSL2591_REGISTER_THRESHOLD_NPAILTH byte = 0x09 // No Persist ALS low threshold higher byte
	TSL2591_REGISTER_THRESHOLD_NPAIHTL byte = 0x0A // No Persist ALS high threshold lower byte
	TSL2591_REGISTER_THRESHOLD_NPAIHTH byte = 0x0B // No Persist ALS high threshold higher byte
	TSL2591_REGISTER_PERSIST_FILTER    byte = 0x0C // Interrupt persistence filter
	TSL2591_REGISTER_PACKAGE_PID       byte = 0x11 // Package Identification
	TSL2591_REGISTER_DEVICE_ID         byte = 0x12 // Device Identification
	TSL2591_REGISTER_DEVICE_STATUS     byte = 0x13 // Internal Status
	TSL2591_REGISTER_CHAN0_LOW         byte = 0x14 // Channel 0 data, low byte
	TSL2591_REGISTER_CHAN0_HIGH        byte = 0x15 // Channel 0 data, high byte
	TSL2591_REGISTER_CHAN1_LOW         byte = 0x16 // Channel 1 data, low byte
	TSL2591_REGISTER_CHAN1_HIGH        byte = 0x17 // Channel 1 data, high byte
)

// Control register fields. Bits 3, 6 and 7 are reserved and preserved on write.
const (
	controlGainMask       byte = 0b00110000
	controlIntegTimeMask  byte = 0b00000111
	controlClearGain      byte = 0b11001111
	controlClearIntegTime byte = 0b11111000
)

// IntegrationTime is the ADC exposure, stored in bits 2:0 of the control register.
type IntegrationTime byte

// Constants for adjusting the sensor integration timing
const (
	TSL2591_INTEGRATIONTIME_100MS IntegrationTime = 0x00 // 100 millis
	TSL2591_INTEGRATIONTIME_200MS IntegrationTime = 0x01 // 200 millis
	TSL2591_INTEGRATIONTIME_300MS IntegrationTime = 0x02 // 300 millis
	TSL2591_INTEGRATIONTIME_400MS IntegrationTime = 0x03 // 400 millis
	TSL2591_INTEGRATIONTIME_500MS IntegrationTime = 0x04 // 500 millis
	TSL2591_INTEGRATIONTIME_600MS IntegrationTime = 0x05 // 600 millis
)

// IntegrationTimes lists every supported integration time, shortest first.
var IntegrationTimes = []IntegrationTime{
	TSL2591_INTEGRATIONTIME_100MS,
	TSL2591_INTEGRATIONTIME_200MS,
	TSL2591_INTEGRATIONTIME_300MS,
	TSL2591_INTEGRATIONTIME_400MS,
	TSL2591_INTEGRATIONTIME_500MS,
	TSL2591_INTEGRATIONTIME_600MS,
}

// Valid reports whether t is one of the six codes the device accepts.
func (t IntegrationTime) Valid() bool {
	return t <= TSL2591_INTEGRATIONTIME_600MS
}

// Millis is the integration period used by the lux calculation.
func (t IntegrationTime) Millis() float64 {
	return 100.0*float64(t) + 100.0
}

func (t IntegrationTime) Duration() time.Duration {
	return time.Duration(t.Millis()) * time.Millisecond
}

// MaxCount is the channel count at which the ADC is considered saturated.
func (t IntegrationTime) MaxCount() uint16 {
	if t == TSL2591_INTEGRATIONTIME_100MS {
		return TSL2591_MAX_COUNT_100MS
	}
	return TSL2591_MAX_COUNT
}

func (t IntegrationTime) String() string {
	switch t {
	case TSL2591_INTEGRATIONTIME_100MS:
		return "100ms"
	case TSL2591_INTEGRATIONTIME_200MS:
		return "200ms"
	case TSL2591_INTEGRATIONTIME_300MS:
		return "300ms"
	case TSL2591_INTEGRATIONTIME_400MS:
		return "400ms"
	case TSL2591_INTEGRATIONTIME_500MS:
		return "500ms"
	case TSL2591_INTEGRATIONTIME_600MS:
		return "600ms"
	default:
		return "Unknown"
	}
}

// Gain is the sensor amplification, stored in bits 5:4 of the control register.
type Gain byte

// Constants for adjusting the sensor gain
const (
	TSL2591_GAIN_LOW  Gain = 0x00 /// low gain (1x)
	TSL2591_GAIN_MED  Gain = 0x10 /// medium gain (25x)
	TSL2591_GAIN_HIGH Gain = 0x20 /// high gain (428x)
	TSL2591_GAIN_MAX  Gain = 0x30 /// max gain (9876x)
)

// Gains lists every supported gain, least sensitive first.
var Gains = []Gain{
	TSL2591_GAIN_LOW,
	TSL2591_GAIN_MED,
	TSL2591_GAIN_HIGH,
	TSL2591_GAIN_MAX,
}

func (g Gain) Valid() bool {
	return byte(g)&^controlGainMask == 0
}

// Multiplier is the amplification factor applied in the lux calculation.
func (g Gain) Multiplier() float64 {
	switch g {
	case TSL2591_GAIN_MED:
		return 25.0
	case TSL2591_GAIN_HIGH:
		return 428.0
	case TSL2591_GAIN_MAX:
		return 9876.0
	default:
		return 1.0
	}
}

func (g Gain) String() string {
	switch g {
	case TSL2591_GAIN_LOW:
		return "Low gain (1x)"
	case TSL2591_GAIN_MED:
		return "Medium gain (25x)"
	case TSL2591_GAIN_HIGH:
		return "High gain (428x)"
	case TSL2591_GAIN_MAX:
		return "Max gain (9876x)"
	default:
		return "Unknown"
	}
}

// ParseGain accepts the short names used in configuration: low, med, high, max.
func ParseGain(s string) (Gain, error) {
	switch s {
	case "low", "LOW", "1x":
		return TSL2591_GAIN_LOW, nil
	case "med", "MED", "medium", "25x":
		return TSL2591_GAIN_MED, nil
	case "high", "HIGH", "428x":
		return TSL2591_GAIN_HIGH, nil
	case "max", "MAX", "9876x":
		return TSL2591_GAIN_MAX, nil
	}
	return 0, ErrInvalidGain
}

// ParseIntegrationTime accepts the String form of an integration time, e.g. "300ms".
func ParseIntegrationTime(s string) (IntegrationTime, error) {
	for _, t := range IntegrationTimes {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, ErrInvalidIntegrationTime
}

// encodeGain replaces the gain field of control, leaving every other bit alone.
// g must be valid.
func encodeGain(control byte, g Gain) byte {
	return (control & controlClearGain) | byte(g)
}

// decodeGain extracts the gain field from a control register value.
func decodeGain(control byte) (Gain, error) {
	g := Gain(control & controlGainMask)
	if !g.Valid() {
		return 0, &RegisterError{Register: TSL2591_REGISTER_CONTROL, Field: "gain", Value: byte(g)}
	}
	return g, nil
}

// encodeIntegrationTime replaces the integration time field of control, leaving every other bit alone.
// t must be valid.
func encodeIntegrationTime(control byte, t IntegrationTime) byte {
	return (control & controlClearIntegTime) | byte(t)
}

// decodeIntegrationTime extracts the integration time field from a control register value.
// Codes 6 and 7 fit the field but are never written by this driver.
func decodeIntegrationTime(control byte) (IntegrationTime, error) {
	t := IntegrationTime(control & controlIntegTimeMask)
	if !t.Valid() {
		return 0, &RegisterError{Register: TSL2591_REGISTER_CONTROL, Field: "integration time", Value: byte(t)}
	}
	return t, nil
}

// command frames a register address for a normal transaction.
func command(reg byte) byte {
	return (TSL2591_COMMAND_BIT | reg) & 0xFF
}

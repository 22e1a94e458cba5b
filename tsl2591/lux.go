package tsl2591

import (
	"context"
	"math"
	"time"
)

// settleTime is added to the integration period before reading after a configuration change.
const settleTime = 20 * time.Millisecond

// CalculateLux converts raw counts with the given configuration.
//
// The formula matches the reference driver exactly. Note that lux1 reduces to
// -0.64*ch0/cpl, so it is never positive and the result is driven by lux2.
func CalculateLux(counts RawCounts, gain Gain, timing IntegrationTime) (float64, error) {
	// Check for channel overflow
	maxCount := timing.MaxCount()
	if counts.Channel0 >= maxCount || counts.Channel1 >= maxCount {
		return 0, ErrOverflow
	}

	atime := timing.Millis()
	again := gain.Multiplier()
	ch0 := float64(counts.Channel0)
	ch1 := float64(counts.Channel1)

	cpl := (atime * again) / TSL2591_LUX_DF
	lux1 := (ch0 - (TSL2591_LUX_COEFB * ch0)) / cpl
	lux2 := ((TSL2591_LUX_COEFC * ch0) - (TSL2591_LUX_COEFD * ch1)) / cpl
	return math.Max(lux1, lux2), nil
}

// CalculateLux converts counts using the sensor's current gain and integration time.
func (tsl *TSL2591) CalculateLux(counts RawCounts) (float64, error) {
	return CalculateLux(counts, tsl.gain, tsl.timing)
}

// SetOptimalGain walks every gain, least sensitive first, and for each one the
// integration times from longest to shortest, keeping the first configuration
// that gives a positive lux without overflowing. Each attempt waits one
// integration period so the reading reflects the new configuration.
//
// If nothing works the sensor is left at low gain / 600ms and ErrSaturated is
// returned. Bus errors and ctx cancellation abort the search immediately.
func (tsl *TSL2591) SetOptimalGain(ctx context.Context) error {
	integrationOptions := make([]IntegrationTime, 0, len(IntegrationTimes))
	for i := len(IntegrationTimes) - 1; i >= 0; i-- {
		integrationOptions = append(integrationOptions, IntegrationTimes[i])
	}

	for _, gain := range Gains {
		if err := tsl.SetGain(gain); err != nil {
			return err
		}
		for _, timing := range integrationOptions {
			if err := tsl.SetIntegrationTime(timing); err != nil {
				return err
			}
			l.Debugf("Attempting - Gain: %v, Integration Time: %v", gain, timing)
			if err := tsl.wait(ctx, timing.Duration()+settleTime); err != nil {
				return err
			}
			counts, err := tsl.GetFullLuminosity()
			if err != nil {
				return err
			}
			lux, err := tsl.CalculateLux(counts)
			if err != nil || lux <= 0 {
				continue
			}
			l.Debugf("Set - Gain: %v, Integration Time: %v", gain, timing)
			return nil
		}
	}

	// Use default options
	if err := tsl.SetGain(TSL2591_GAIN_LOW); err != nil {
		return err
	}
	if err := tsl.SetIntegrationTime(TSL2591_INTEGRATIONTIME_600MS); err != nil {
		return err
	}
	return ErrSaturated
}

func (tsl *TSL2591) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tsl.after(d):
		return nil
	}
}

// Returns the normalized output for a given spectrum type
func GetNormalizedOutput(spectrumType Spectrum, counts RawCounts) float64 {
	switch spectrumType {
	case TSL2591_VISIBLE:
		visible := float64(counts.Channel0) - float64(counts.Channel1)
		if visible < 0 {
			visible = 0
		}
		return visible / 0xFFFF
	case TSL2591_INFRARED:
		return float64(counts.Channel1) / 0xFFFF
	case TSL2591_FULLSPECTRUM:
		return float64(counts.Channel0) / 0xFFFF
	default:
		return 0
	}
}

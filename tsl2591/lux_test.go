package tsl2591

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLuxOverflow(t *testing.T) {
	tests := []struct {
		name     string
		counts   RawCounts
		timing   IntegrationTime
		overflow bool
	}{
		{"100ms below limit", RawCounts{0x8FFE, 0x8FFE}, TSL2591_INTEGRATIONTIME_100MS, false},
		{"100ms channel 0 at limit", RawCounts{0x8FFF, 0}, TSL2591_INTEGRATIONTIME_100MS, true},
		{"100ms channel 1 at limit", RawCounts{0, 0x8FFF}, TSL2591_INTEGRATIONTIME_100MS, true},
		{"200ms above 100ms limit", RawCounts{0x9000, 0x10}, TSL2591_INTEGRATIONTIME_200MS, false},
		{"200ms below limit", RawCounts{0xFFFE, 0xFFFE}, TSL2591_INTEGRATIONTIME_200MS, false},
		{"600ms channel 0 at limit", RawCounts{0xFFFF, 0}, TSL2591_INTEGRATIONTIME_600MS, true},
		{"600ms channel 1 at limit", RawCounts{0, 0xFFFF}, TSL2591_INTEGRATIONTIME_600MS, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			lux, err := CalculateLux(test.counts, TSL2591_GAIN_MED, test.timing)
			if test.overflow {
				assert.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			assert.False(t, math.IsNaN(lux) || math.IsInf(lux, 0))
		})
	}
}

func TestCalculateLuxFormula(t *testing.T) {
	samples := []RawCounts{{1, 0}, {100, 10}, {10, 100}, {5000, 1200}, {30000, 29000}, {0x8FFE, 1}}
	for _, gain := range Gains {
		for _, timing := range IntegrationTimes {
			for _, c := range samples {
				got, err := CalculateLux(c, gain, timing)
				require.NoError(t, err)

				ch0, ch1 := float64(c.Channel0), float64(c.Channel1)
				cpl := (timing.Millis() * gain.Multiplier()) / 408.0
				lux1 := (ch0 - 1.64*ch0) / cpl
				lux2 := (0.59*ch0 - 0.86*ch1) / cpl
				assert.Equal(t, math.Max(lux1, lux2), got, "%v %v %v", gain, timing, c)
			}
		}
	}
}

func TestCalculateLuxLiteral(t *testing.T) {
	lux, err := CalculateLux(RawCounts{100, 10}, TSL2591_GAIN_MED, TSL2591_INTEGRATIONTIME_100MS)
	require.NoError(t, err)
	assert.InDelta(t, 8.22528, lux, 1e-9)

	// lux1 is negative for any positive channel 0, so a dominant infrared
	// channel produces a negative result rather than zero.
	lux, err = CalculateLux(RawCounts{10, 100}, TSL2591_GAIN_MED, TSL2591_INTEGRATIONTIME_100MS)
	require.NoError(t, err)
	assert.Less(t, lux, 0.0)
}

func instantAfter(waits *[]time.Duration) func(time.Duration) <-chan time.Time {
	return func(d time.Duration) <-chan time.Time {
		*waits = append(*waits, d)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
}

func TestSetOptimalGainFirstUsable(t *testing.T) {
	bus := newFakeBus()
	tsl := newTestSensor(t, bus)
	var waits []time.Duration
	tsl.after = instantAfter(&waits)
	bus.setChannels(0x9000, 0x0100)

	require.NoError(t, tsl.SetOptimalGain(context.Background()))

	gain, timing := tsl.Settings()
	assert.Equal(t, TSL2591_GAIN_LOW, gain)
	assert.Equal(t, TSL2591_INTEGRATIONTIME_600MS, timing)
	assert.Equal(t, []time.Duration{620 * time.Millisecond}, waits)
	assert.Equal(t, byte(0x05), bus.regs[TSL2591_REGISTER_CONTROL])
}

func TestSetOptimalGainSaturated(t *testing.T) {
	bus := newFakeBus()
	tsl := newTestSensor(t, bus)
	var waits []time.Duration
	tsl.after = instantAfter(&waits)
	bus.setChannels(0xFFFF, 0xFFFF)

	err := tsl.SetOptimalGain(context.Background())
	assert.ErrorIs(t, err, ErrSaturated)
	assert.Len(t, waits, len(Gains)*len(IntegrationTimes))

	gain, timing := tsl.Settings()
	assert.Equal(t, TSL2591_GAIN_LOW, gain)
	assert.Equal(t, TSL2591_INTEGRATIONTIME_600MS, timing)
	assert.Equal(t, byte(0x05), bus.regs[TSL2591_REGISTER_CONTROL])
}

func TestSetOptimalGainCancelled(t *testing.T) {
	bus := newFakeBus()
	tsl := newTestSensor(t, bus)
	tsl.after = func(time.Duration) <-chan time.Time { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tsl.SetOptimalGain(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, bus.words())
}

func TestGetNormalizedOutput(t *testing.T) {
	c := RawCounts{Channel0: 0xFFFF, Channel1: 0x0000}
	assert.Equal(t, 1.0, GetNormalizedOutput(TSL2591_FULLSPECTRUM, c))
	assert.Equal(t, 1.0, GetNormalizedOutput(TSL2591_VISIBLE, c))
	assert.Equal(t, 0.0, GetNormalizedOutput(TSL2591_INFRARED, c))

	// Visible is clamped at zero when infrared exceeds channel 0.
	c = RawCounts{Channel0: 10, Channel1: 20}
	assert.Equal(t, 0.0, GetNormalizedOutput(TSL2591_VISIBLE, c))
	assert.Equal(t, 0.0, GetNormalizedOutput(Spectrum(9), c))
}

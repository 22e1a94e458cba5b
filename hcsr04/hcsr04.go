// Package hcsr04 measures distance with an HC-SR04 style ultrasonic ranger:
// a short pulse on the trigger pin starts a ping and the echo pin stays high
// for as long as the sound took to travel out and back.
package hcsr04

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// ErrTimeout is returned when the echo does not start or end within Opts.Timeout.
var ErrTimeout = errors.New("hcsr04: timeout waiting for echo")

// Half the speed of sound, in metres per second; the echo covers the distance twice.
const halfSpeedOfSound = 170

// Opts configures a Dev. Zero fields take their defaults.
type Opts struct {
	// Timeout bounds the whole wait for the echo, 100ms by default.
	Timeout time.Duration
	// Pulse is the trigger pulse width, 10µs by default.
	Pulse time.Duration
	// Logger receives debug output, logrus.StandardLogger() by default.
	Logger *logrus.Logger
}

// Measurement is the result of one ping.
type Measurement struct {
	Echo     time.Duration
	Distance physic.Distance
}

func (m Measurement) String() string {
	return fmt.Sprintf("%s (echo %s)", m.Distance, m.Echo)
}

// Dev is one ranger. It is not safe for concurrent use.
type Dev struct {
	trigger gpio.PinOut
	echo    gpio.PinIn
	timeout time.Duration
	pulse   time.Duration
	log     *logrus.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// New drives the trigger low and configures echo as an input.
func New(trigger gpio.PinOut, echo gpio.PinIn, opts *Opts) (*Dev, error) {
	d := &Dev{
		trigger: trigger,
		echo:    echo,
		timeout: 100 * time.Millisecond,
		pulse:   10 * time.Microsecond,
		log:     logrus.StandardLogger(),
		now:     time.Now,
		sleep:   time.Sleep,
	}
	if opts != nil {
		if opts.Timeout > 0 {
			d.timeout = opts.Timeout
		}
		if opts.Pulse > 0 {
			d.pulse = opts.Pulse
		}
		if opts.Logger != nil {
			d.log = opts.Logger
		}
	}
	if err := trigger.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("hcsr04: trigger %s: %w", trigger, err)
	}
	if err := echo.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("hcsr04: echo %s: %w", echo, err)
	}
	return d, nil
}

// Measure sends one ping and times the echo. The echo wait busy-polls the
// pin, so it returns ctx.Err() only between polls.
func (d *Dev) Measure(ctx context.Context) (Measurement, error) {
	if err := d.trigger.Out(gpio.Low); err != nil {
		return Measurement{}, err
	}
	d.sleep(d.pulse)
	if err := d.trigger.Out(gpio.High); err != nil {
		return Measurement{}, err
	}
	d.sleep(d.pulse)
	if err := d.trigger.Out(gpio.Low); err != nil {
		return Measurement{}, err
	}

	start := d.now()
	// Hang out while the echo pin is low
	for d.echo.Read() == gpio.Low {
		if err := d.expired(ctx, start); err != nil {
			return Measurement{}, err
		}
	}
	// Track how long the pin is high
	rise := d.now()
	for d.echo.Read() == gpio.High {
		if err := d.expired(ctx, start); err != nil {
			return Measurement{}, err
		}
	}
	echo := d.now().Sub(rise)

	m := Measurement{
		Echo:     echo,
		Distance: physic.Distance(echo.Nanoseconds()*halfSpeedOfSound) * physic.NanoMetre,
	}
	d.log.Debugf("Echo: %v, Distance: %v", m.Echo, m.Distance)
	return m, nil
}

func (d *Dev) expired(ctx context.Context, start time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.now().Sub(start) > d.timeout {
		return ErrTimeout
	}
	return nil
}

// Halt leaves the trigger low.
func (d *Dev) Halt() error {
	return d.trigger.Out(gpio.Low)
}

func (d *Dev) String() string {
	return fmt.Sprintf("hcsr04{%s, %s}", d.trigger, d.echo)
}

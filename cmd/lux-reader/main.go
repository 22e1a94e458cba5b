// Command lux-reader prints TSL2591 readings once per interval until
// interrupted, then powers the sensor down.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/ztkent/lux-meter/i2cbus"
	"github.com/ztkent/lux-meter/internal/poll"
	"github.com/ztkent/lux-meter/tsl2591"
)

func main() {
	driver := flag.String("driver", "devfs", "I2C transport: devfs or periph")
	bus := flag.String("bus", "/dev/i2c-1", "I2C device path (devfs) or bus name (periph)")
	gainFlag := flag.String("gain", "med", "gain: low, med, high or max")
	timingFlag := flag.String("integration", "100ms", "integration time: 100ms to 600ms")
	interval := flag.Duration("interval", time.Second, "time between readings")
	auto := flag.Bool("auto", false, "search for a new gain when a reading overflows")
	ledName := flag.String("led", "", "GPIO pin toggled on every reading, e.g. GPIO26")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if err := run(*driver, *bus, *gainFlag, *timingFlag, *interval, *auto, *ledName); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(driver, busName, gainFlag, timingFlag string, interval time.Duration, auto bool, ledName string) error {
	gain, err := tsl2591.ParseGain(gainFlag)
	if err != nil {
		return fmt.Errorf("-gain %q: %w", gainFlag, err)
	}
	timing, err := tsl2591.ParseIntegrationTime(timingFlag)
	if err != nil {
		return fmt.Errorf("-integration %q: %w", timingFlag, err)
	}

	var led gpio.PinIO
	if ledName != "" {
		if _, err := host.Init(); err != nil {
			return err
		}
		if led = gpioreg.ByName(ledName); led == nil {
			return fmt.Errorf("unknown GPIO pin %q", ledName)
		}
	}

	conn, err := i2cbus.Open(driver, busName)
	if err != nil {
		return err
	}
	dev, err := tsl2591.New(conn, &tsl2591.Opts{Gain: gain, IntegrationTime: timing})
	if err != nil {
		conn.Close()
		return err
	}
	defer dev.Close()

	if g, err := dev.Gain(); err == nil {
		fmt.Println("Gain is:", g)
	}
	if t, err := dev.IntegrationTime(); err == nil {
		fmt.Println("Integration time is:", t)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := gpio.Low
	err = poll.Run(ctx, interval, func(ctx context.Context) {
		if led != nil {
			level = !level
			setLED(led, level)
		}
		if err := printReading(ctx, dev, auto); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	})
	logrus.Debugf("Polling stopped: %v", err)

	fmt.Println("Shutting down")
	if led != nil {
		setLED(led, gpio.Low)
	}
	return dev.Disable()
}

// setLED drives the activity LED. A failure is logged and the readings go on.
func setLED(led gpio.PinOut, level gpio.Level) {
	if err := led.Out(level); err != nil {
		logrus.Warnf("Failed to set LED %s %s: %v", led, level, err)
	}
}

func printReading(ctx context.Context, dev *tsl2591.TSL2591, auto bool) error {
	counts, err := dev.GetFullLuminosity()
	if err != nil {
		return err
	}
	fmt.Println("Visible:", counts.Visible())
	fmt.Println("Infrared:", counts.Infrared())
	fmt.Println("Full Spectrum:", counts.FullSpectrum())

	lux, err := dev.CalculateLux(counts)
	if errors.Is(err, tsl2591.ErrOverflow) && auto {
		fmt.Println("Lux: overflow, searching for a new gain")
		if err := dev.SetOptimalGain(ctx); err != nil {
			return err
		}
		g, t := dev.Settings()
		fmt.Printf("Gain is: %v, Integration time is: %v\n\n", g, t)
		return nil
	} else if err != nil {
		return err
	}
	fmt.Printf("Lux: %.4f\n\n", lux)
	return nil
}

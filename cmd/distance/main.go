// Command distance takes a single HC-SR04 reading and prints the distance.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/ztkent/lux-meter/hcsr04"
)

func main() {
	triggerName := flag.String("trigger", "GPIO4", "trigger pin")
	echoName := flag.String("echo", "GPIO17", "echo pin")
	timeout := flag.Duration("timeout", 100*time.Millisecond, "maximum wait for the echo")
	flag.Parse()

	m, err := measure(*triggerName, *echoName, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Duration is : %d nano seconds\n", m.Echo.Nanoseconds())
	fmt.Printf("Distance is : %.1fcm\n", centimetres(m.Distance))
}

func centimetres(d physic.Distance) float64 {
	return float64(d) / float64(10*physic.MilliMetre)
}

func measure(triggerName, echoName string, timeout time.Duration) (hcsr04.Measurement, error) {
	if _, err := host.Init(); err != nil {
		return hcsr04.Measurement{}, err
	}
	trigger := gpioreg.ByName(triggerName)
	if trigger == nil {
		return hcsr04.Measurement{}, fmt.Errorf("unknown trigger pin %q", triggerName)
	}
	echo := gpioreg.ByName(echoName)
	if echo == nil {
		return hcsr04.Measurement{}, fmt.Errorf("unknown echo pin %q", echoName)
	}

	dev, err := hcsr04.New(trigger, echo, &hcsr04.Opts{Timeout: timeout})
	if err != nil {
		return hcsr04.Measurement{}, err
	}
	defer dev.Halt()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return dev.Measure(ctx)
}

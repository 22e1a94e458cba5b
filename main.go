package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ztkent/lux-meter/i2cbus"
	"github.com/ztkent/lux-meter/internal/config"
	slm "github.com/ztkent/lux-meter/internal/sunlightmeter"
	"github.com/ztkent/lux-meter/internal/tools"
	"github.com/ztkent/lux-meter/tsl2591"
)

/*
	This is the primary entry point for the Sunlight Meter application.
	It should be running at startup, on a Raspberry Pi, with the TSL2591 sensor connected.
*/

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	l, closeLog, err := tools.SetupLogging(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logrus.Fatalf("Failed to open log file: %v", err)
	}
	defer closeLog()
	tsl2591.SetLogger(l)

	pid := os.Getpid()
	l.Infof("SunlightMeter [%d]", pid)

	// connect to the lux sensor, the dashboard still serves history without one
	var sensor slm.LightSensor
	device, err := connectSensor(cfg)
	if err != nil {
		l.Errorf("Failed to connect to the TSL2591 sensor: %v", err)
	} else {
		defer device.Close()
		sensor = device
	}

	// connect to the sqlite database
	slmDB, err := tools.ConnectSqlite(cfg.DBPath)
	if err != nil {
		// Unlike connecting to the sensor, this should always work.
		l.Fatalf("Failed to connect to the sqlite database: %v", err)
	}
	defer slmDB.Close()

	meter := slm.NewSLMeter(sensor, slmDB, slm.Options{
		RecordInterval: cfg.RecordInterval,
		MaxJobDuration: cfg.MaxJobDuration,
		DBPath:         cfg.DBPath,
		Location:       cfg.Location,
	})
	meter.Pid = pid

	if cfg.MQTTBroker != "" {
		client, err := tools.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID, 10*time.Second)
		if err != nil {
			l.Errorf("Readings will not be published: %v", err)
		} else {
			defer client.Disconnect(250)
			meter.Publisher = &slm.MQTTPublisher{Client: client, Topic: cfg.MQTTTopic, QoS: 1}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Listen for any result messages from our jobs, record them in sqlite
	go meter.MonitorAndRecordResults(ctx)

	// Initialize router
	r := chi.NewRouter()
	// Log requests and recover from panics
	r.Use(middleware.Logger)
	r.Use(handleServerPanic)
	meter.Routes(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		l.Info("Shutting down")
		meter.StopJob()
		shutdownServer(srv, 5*time.Second)
	}()

	if cfg.SSL {
		// Generate a self-signed certificate if one doesn't exist
		if err := tools.EnsureCertificate(cfg.CertPath, cfg.KeyPath); err != nil {
			l.Fatalf("Failed to create certificate: %v", err)
		}
		l.Infof("Starting HTTPS server on port %s", cfg.Port)
		err = srv.ListenAndServeTLS(cfg.CertPath, cfg.KeyPath)
	} else {
		l.Infof("Starting HTTP server on port %s", cfg.Port)
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Fatalf("Failed to start server: %v", err)
	}
}

// shutdownServer drains srv, waiting at most timeout for open requests.
func shutdownServer(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Failed to shut down the server cleanly: %v", err)
	}
}

func connectSensor(cfg config.Config) (*tsl2591.TSL2591, error) {
	bus, err := i2cbus.Open(cfg.I2CDriver, cfg.I2CBus)
	if err != nil {
		return nil, err
	}
	device, err := tsl2591.New(bus, cfg.SensorOpts())
	if err != nil {
		bus.Close()
		return nil, err
	}
	return device, nil
}

func handleServerPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logrus.Errorf("Recovered from panic serving %s: %v", r.URL.Path, err)
				slm.ServeResponse(w, r, fmt.Sprintf("%v", err), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

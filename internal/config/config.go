package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ztkent/lux-meter/tsl2591"
)

// Config holds the sunlight meter configuration, read from the environment.
type Config struct {
	Port     string
	SSL      bool
	CertPath string
	KeyPath  string
	DBPath   string
	LogLevel logrus.Level
	LogFile  string

	I2CDriver       string // "devfs" | "periph"
	I2CBus          string // device path for devfs, bus name for periph
	Gain            tsl2591.Gain
	IntegrationTime tsl2591.IntegrationTime

	RecordInterval time.Duration
	MaxJobDuration time.Duration

	MQTTBroker   string // empty disables publishing
	MQTTTopic    string
	MQTTClientID string

	// Location interprets the dates entered on the dashboard.
	Location *time.Location
}

// Load reads the configuration from environment variables, falling back to
// defaults for anything unset. Malformed values are reported, not ignored.
func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", ""),
		SSL:             os.Getenv("SSL") == "true",
		CertPath:        getenv("SSL_CERT", "cert.pem"),
		KeyPath:         getenv("SSL_KEY", "key.pem"),
		DBPath:          getenv("DB_PATH", "sunlightmeter.db"),
		LogLevel:        logrus.InfoLevel,
		LogFile:         getenv("LOG_FILE", "slm.log"),
		I2CDriver:       getenv("I2C_DRIVER", "devfs"),
		I2CBus:          getenv("I2C_BUS", "/dev/i2c-1"),
		Gain:            tsl2591.TSL2591_GAIN_LOW,
		IntegrationTime: tsl2591.TSL2591_INTEGRATIONTIME_300MS,
		RecordInterval:  30 * time.Second,
		MaxJobDuration:  8 * time.Hour,
		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTTopic:       getenv("MQTT_TOPIC", "sunlightmeter/readings"),
		MQTTClientID:    os.Getenv("MQTT_CLIENT_ID"),
		Location:        time.Local,
	}
	if cfg.Port == "" {
		if cfg.SSL {
			cfg.Port = "443"
		} else {
			cfg.Port = "80"
		}
	}

	var err error
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if cfg.LogLevel, err = logrus.ParseLevel(strings.ToLower(v)); err != nil {
			return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if v := os.Getenv("TSL2591_GAIN"); v != "" {
		if cfg.Gain, err = tsl2591.ParseGain(v); err != nil {
			return Config{}, fmt.Errorf("TSL2591_GAIN %q: %w", v, err)
		}
	}
	if v := os.Getenv("TSL2591_INTEGRATION_TIME"); v != "" {
		if cfg.IntegrationTime, err = tsl2591.ParseIntegrationTime(v); err != nil {
			return Config{}, fmt.Errorf("TSL2591_INTEGRATION_TIME %q: %w", v, err)
		}
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		if cfg.Location, err = time.LoadLocation(v); err != nil {
			return Config{}, fmt.Errorf("TIMEZONE: %w", err)
		}
	}
	if cfg.RecordInterval, err = duration("RECORD_INTERVAL", cfg.RecordInterval); err != nil {
		return Config{}, err
	}
	if cfg.MaxJobDuration, err = duration("MAX_JOB_DURATION", cfg.MaxJobDuration); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SensorOpts returns the driver options for the configured gain and integration time.
func (c Config) SensorOpts() *tsl2591.Opts {
	return &tsl2591.Opts{
		Address:         tsl2591.TSL2591_ADDR,
		Gain:            c.Gain,
		IntegrationTime: c.IntegrationTime,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

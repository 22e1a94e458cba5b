package sunlightmeter

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ztkent/lux-meter/tsl2591"
)

//go:embed html/*
var templateFiles embed.FS

// LightSensor is the part of the TSL2591 driver the meter drives.
type LightSensor interface {
	Enable() error
	Disable() error
	GetFullLuminosity() (tsl2591.RawCounts, error)
	CalculateLux(counts tsl2591.RawCounts) (float64, error)
	SetOptimalGain(ctx context.Context) error
	SetGain(gain tsl2591.Gain) error
	SetIntegrationTime(timing tsl2591.IntegrationTime) error
	Settings() (tsl2591.Gain, tsl2591.IntegrationTime)
}

var _ LightSensor = (*tsl2591.TSL2591)(nil)

type Options struct {
	RecordInterval time.Duration
	MaxJobDuration time.Duration
	DBPath         string
	// Location interprets dates entered on the dashboard.
	Location *time.Location
}

const (
	MAX_JOB_DURATION = 8 * time.Hour
	RECORD_INTERVAL  = 30 * time.Second
	DB_PATH          = "sunlightmeter.db"
)

type SLMeter struct {
	LuxResultsChan chan LuxResults
	ResultsDB      *sql.DB
	Publisher      Publisher
	Pid            int

	// sensorMu serializes every transaction with the sensor.
	sensorMu sync.Mutex
	sensor   LightSensor

	jobMu sync.Mutex
	job   *job

	opts Options
	now  func() time.Time
}

type job struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

type LuxResults struct {
	JobID           string    `json:"jobID"`
	Lux             float64   `json:"lux"`
	Infrared        float64   `json:"infrared"`
	Visible         float64   `json:"visible"`
	FullSpectrum    float64   `json:"fullSpectrum"`
	Gain            string    `json:"gain"`
	IntegrationTime string    `json:"integrationTime"`
	RecordedAt      time.Time `json:"recordedAt"`
}

type Conditions struct {
	JobID                 string  `json:"jobID"`
	Lux                   float64 `json:"lux"`
	FullSpectrum          float64 `json:"fullSpectrum"`
	Visible               float64 `json:"visible"`
	Infrared              float64 `json:"infrared"`
	DateRange             string  `json:"dateRange"`
	RecordedHoursInRange  float64 `json:"recordedHoursInRange"`
	FullSunlightInRange   float64 `json:"fullSunlightInRange"`
	LightConditionInRange string  `json:"lightConditionInRange"`
	AverageLuxInRange     float64 `json:"averageLuxInRange"`
}

// SensorSettings is the sensor configuration reported by the settings endpoint.
type SensorSettings struct {
	Gain            string `json:"gain"`
	IntegrationTime string `json:"integrationTime"`
}

// NewSLMeter builds a meter around sensor. A nil sensor is allowed; the
// dashboard still serves recorded history but jobs cannot be started.
func NewSLMeter(sensor LightSensor, db *sql.DB, opts Options) *SLMeter {
	if opts.RecordInterval <= 0 {
		opts.RecordInterval = RECORD_INTERVAL
	}
	if opts.MaxJobDuration <= 0 {
		opts.MaxJobDuration = MAX_JOB_DURATION
	}
	if opts.DBPath == "" {
		opts.DBPath = DB_PATH
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &SLMeter{
		LuxResultsChan: make(chan LuxResults),
		ResultsDB:      db,
		sensor:         sensor,
		opts:           opts,
		now:            time.Now,
	}
}

// Connected reports whether the meter has a sensor.
func (m *SLMeter) Connected() bool {
	return m.sensor != nil
}

// Running reports the ID of the active job, if any.
func (m *SLMeter) Running() (string, bool) {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()
	if m.job == nil {
		return "", false
	}
	return m.job.id, true
}

// Start the sensor, and collect data in a loop
func (m *SLMeter) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("It's going to be a bright day!")
		if !m.Connected() {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		}
		jobID, err := m.StartJob()
		if errors.Is(err, errJobRunning) {
			ServeResponse(w, r, "The sensor is already started", http.StatusBadRequest)
			return
		} else if err != nil {
			logrus.Errorf("Failed to start the sensor: %v", err)
			ServeResponse(w, r, "Failed to start the sensor: "+err.Error(), http.StatusInternalServerError)
			return
		}
		logrus.WithField("jobID", jobID).Info("Sunlight reading started")
		ServeResponse(w, r, "Sunlight Reading Started", http.StatusOK)
	}
}

// Stop the sensor, and cancel the job context
func (m *SLMeter) Stop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.Connected() {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		}
		if !m.StopJob() {
			ServeResponse(w, r, "The sensor is already stopped", http.StatusBadRequest)
			return
		}
		ServeResponse(w, r, "Sunlight Reading Stopped", http.StatusOK)
	}
}

// Serve data about the most recent entry saved to the db
func (m *SLMeter) CurrentConditions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.Connected() {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		} else if _, running := m.Running(); !running {
			ServeResponse(w, r, "The sensor is not enabled", http.StatusBadRequest)
			return
		}
		conditions, err := m.getCurrentConditions()
		if errors.Is(err, sql.ErrNoRows) {
			ServeResponse(w, r, "No readings have been recorded yet", http.StatusNotFound)
			return
		} else if err != nil {
			logrus.Error(err)
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}

		conditionsData, err := json.Marshal(conditions)
		if err != nil {
			logrus.Error(err)
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		ServeResponse(w, r, string(conditionsData), http.StatusOK)
	}
}

// Return the most recent entry saved to the db
func (m *SLMeter) getCurrentConditions() (Conditions, error) {
	if m.ResultsDB == nil {
		return Conditions{}, nil
	}
	conditions := Conditions{}
	row := m.ResultsDB.QueryRow("SELECT job_id, lux, full_spectrum, visible, infrared FROM sunlight ORDER BY id DESC LIMIT 1")
	err := row.Scan(&conditions.JobID, &conditions.Lux, &conditions.FullSpectrum, &conditions.Visible, &conditions.Infrared)
	if err != nil {
		return Conditions{}, err
	}
	return conditions, nil
}

// Settings reports the sensor gain and integration time. A POST with gain
// and/or integration_time form values reconfigures the sensor first.
func (m *SLMeter) Settings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.Connected() {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		}
		if r.Method == http.MethodPost {
			if err := m.applySettings(r.FormValue("gain"), r.FormValue("integration_time")); err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, tsl2591.ErrInvalidGain) || errors.Is(err, tsl2591.ErrInvalidIntegrationTime) {
					status = http.StatusBadRequest
				}
				ServeResponse(w, r, err.Error(), status)
				return
			}
		}

		settingsData, err := json.Marshal(m.sensorSettings())
		if err != nil {
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		ServeResponse(w, r, string(settingsData), http.StatusOK)
	}
}

// applySettings parses both values before writing either one.
func (m *SLMeter) applySettings(gainValue, timingValue string) error {
	var (
		gain   tsl2591.Gain
		timing tsl2591.IntegrationTime
		err    error
	)
	if gainValue != "" {
		if gain, err = tsl2591.ParseGain(gainValue); err != nil {
			return err
		}
	}
	if timingValue != "" {
		if timing, err = tsl2591.ParseIntegrationTime(timingValue); err != nil {
			return err
		}
	}

	m.sensorMu.Lock()
	defer m.sensorMu.Unlock()
	if gainValue != "" {
		if err := m.sensor.SetGain(gain); err != nil {
			return err
		}
	}
	if timingValue != "" {
		if err := m.sensor.SetIntegrationTime(timing); err != nil {
			return err
		}
	}
	return nil
}

func (m *SLMeter) sensorSettings() SensorSettings {
	m.sensorMu.Lock()
	defer m.sensorMu.Unlock()
	gain, timing := m.sensor.Settings()
	return SensorSettings{Gain: gain.String(), IntegrationTime: timing.String()}
}

// Populate the response div with a message, or reply with a JSON message
func ServeResponse(w http.ResponseWriter, r *http.Request, message string, status int) {
	if strings.Contains(r.URL.Path, "/api/v1/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"message": message})
		return
	}

	tmpl, err := parseTemplateFile("html/response.gohtml")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, message); err != nil {
		logrus.Errorf("Failed to render response: %v", err)
	}
}

func parseTemplateFile(path string) (*template.Template, error) {
	content, err := templateFiles.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return template.New(path).Parse(string(content))
}

// Values accepted by the settings form.
var (
	gainNames            = []string{"low", "med", "high", "max"}
	integrationTimeNames = func() []string {
		names := make([]string, 0, len(tsl2591.IntegrationTimes))
		for _, t := range tsl2591.IntegrationTimes {
			names = append(names, t.String())
		}
		return names
	}()
)

func staticFiles() fs.FS {
	sub, err := fs.Sub(templateFiles, "html/static")
	if err != nil {
		panic(err)
	}
	return sub
}

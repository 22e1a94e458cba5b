package sunlightmeter

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ztkent/lux-meter/internal/tools"
	"github.com/ztkent/lux-meter/tsl2591"
)

func TestMain(m *testing.M) {
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// fakeSensor stands in for the TSL2591 driver.
type fakeSensor struct {
	mu sync.Mutex

	enabled      bool
	enableCalls  int
	disableCalls int
	optimalCalls int

	counts tsl2591.RawCounts
	gain   tsl2591.Gain
	timing tsl2591.IntegrationTime

	enableErr  error
	readErr    error
	writeErr   error
	optimalErr error
	// optimalCounts replaces counts after a successful SetOptimalGain.
	optimalCounts tsl2591.RawCounts
}

func newFakeSensor() *fakeSensor {
	return &fakeSensor{
		counts: tsl2591.RawCounts{Channel0: 1000, Channel1: 200},
		gain:   tsl2591.TSL2591_GAIN_LOW,
		timing: tsl2591.TSL2591_INTEGRATIONTIME_300MS,
	}
}

func (f *fakeSensor) Enable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enableCalls++
	if f.enableErr != nil {
		return f.enableErr
	}
	f.enabled = true
	return nil
}

func (f *fakeSensor) Disable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disableCalls++
	f.enabled = false
	return nil
}

func (f *fakeSensor) GetFullLuminosity() (tsl2591.RawCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return tsl2591.RawCounts{}, f.readErr
	}
	return f.counts, nil
}

func (f *fakeSensor) CalculateLux(counts tsl2591.RawCounts) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tsl2591.CalculateLux(counts, f.gain, f.timing)
}

func (f *fakeSensor) SetOptimalGain(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optimalCalls++
	if f.optimalErr != nil {
		return f.optimalErr
	}
	f.gain = tsl2591.TSL2591_GAIN_LOW
	f.timing = tsl2591.TSL2591_INTEGRATIONTIME_100MS
	f.counts = f.optimalCounts
	return nil
}

func (f *fakeSensor) SetGain(gain tsl2591.Gain) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.gain = gain
	return nil
}

func (f *fakeSensor) SetIntegrationTime(timing tsl2591.IntegrationTime) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.timing = timing
	return nil
}

func (f *fakeSensor) Settings() (tsl2591.Gain, tsl2591.IntegrationTime) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gain, f.timing
}

type sensorState struct {
	enabled      bool
	enableCalls  int
	disableCalls int
	optimalCalls int
	gain         tsl2591.Gain
	timing       tsl2591.IntegrationTime
}

func (f *fakeSensor) snapshot() sensorState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sensorState{
		enabled:      f.enabled,
		enableCalls:  f.enableCalls,
		disableCalls: f.disableCalls,
		optimalCalls: f.optimalCalls,
		gain:         f.gain,
		timing:       f.timing,
	}
}

type fakePublisher struct {
	mu      sync.Mutex
	results []LuxResults
	err     error
}

func (p *fakePublisher) Publish(result LuxResults) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, result)
	return p.err
}

func (p *fakePublisher) published() []LuxResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]LuxResults(nil), p.results...)
}

func testDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sunlightmeter.db")
	db, err := tools.ConnectSqlite(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

// newTestMeter returns a meter recording into a temporary database, with the
// recorder running until the test ends.
func newTestMeter(t *testing.T, sensor LightSensor) (*SLMeter, *chi.Mux) {
	t.Helper()
	db, path := testDB(t)
	m := NewSLMeter(sensor, db, Options{
		RecordInterval: 10 * time.Millisecond,
		MaxJobDuration: time.Minute,
		DBPath:         path,
		Location:       time.UTC,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.MonitorAndRecordResults(ctx)
	}()
	t.Cleanup(func() {
		if sensor != nil {
			m.StopJob()
		}
		cancel()
		<-done
	})

	r := chi.NewRouter()
	m.Routes(r)
	return m, r
}

func insertReading(t *testing.T, db *sql.DB, jobID string, lux float64, createdAt time.Time) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO sunlight (job_id, lux, full_spectrum, visible, infrared, created_at) VALUES (?, ?, 0, 0, 0, ?)",
		jobID, lux, createdAt.UTC().Format(tools.LayoutDB),
	)
	require.NoError(t, err)
}

func countReadings(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sunlight").Scan(&n))
	return n
}

func do(r http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.RemoteAddr = "127.0.0.1:50000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newRemoteRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "203.0.113.7:40000"
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

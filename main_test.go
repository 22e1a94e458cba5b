package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ztkent/lux-meter/internal/config"
)

func TestHandleServerPanic(t *testing.T) {
	logrus.SetLevel(logrus.PanicLevel)
	defer logrus.SetLevel(logrus.InfoLevel)

	h := handleServerPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("sensor exploded")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/start", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sensor exploded", body["message"])
}

func TestConnectSensorUnknownDriver(t *testing.T) {
	_, err := connectSensor(config.Config{I2CDriver: "spi"})
	assert.ErrorContains(t, err, `unknown driver "spi"`)
}

func TestShutdownServerLogsTimeout(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	entered := make(chan struct{})
	release := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)

	go http.Get("http://" + ln.Addr().String() + "/")
	<-entered

	// The request is still open, so draining cannot finish in time.
	shutdownServer(srv, 10*time.Millisecond)
	close(release)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Contains(t, entry.Message, "context deadline exceeded")
}

func TestShutdownServerIdle(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	shutdownServer(&http.Server{}, time.Second)
	assert.Empty(t, hook.AllEntries())
}

package sunlightmeter

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ztkent/lux-meter/internal/poll"
	"github.com/ztkent/lux-meter/tsl2591"
)

var errJobRunning = errors.New("a reading job is already running")

// StartJob enables the sensor and starts recording readings until StopJob is
// called or MaxJobDuration passes.
func (m *SLMeter) StartJob() (string, error) {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()
	if m.job != nil {
		return "", errJobRunning
	}

	m.sensorMu.Lock()
	err := m.sensor.Enable()
	m.sensorMu.Unlock()
	if err != nil {
		return "", err
	}

	// Create a new context with a timeout to manage the sensor lifecycle
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.MaxJobDuration)
	j := &job{
		id:     uuid.New().String(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.job = j
	go m.runJob(ctx, j)
	return j.id, nil
}

// StopJob cancels the running job and waits for it to power the sensor down.
// It reports false if no job was running.
func (m *SLMeter) StopJob() bool {
	m.jobMu.Lock()
	j := m.job
	m.jobMu.Unlock()
	if j == nil {
		return false
	}
	j.cancel()
	<-j.done
	return true
}

func (m *SLMeter) runJob(ctx context.Context, j *job) {
	log := logrus.WithField("jobID", j.id)
	defer close(j.done)
	defer func() {
		m.jobMu.Lock()
		if m.job == j {
			m.job = nil
		}
		m.jobMu.Unlock()
	}()
	defer func() {
		m.sensorMu.Lock()
		defer m.sensorMu.Unlock()
		if err := m.sensor.Disable(); err != nil {
			log.Errorf("Failed to disable the sensor: %v", err)
		}
	}()
	defer j.cancel()

	err := poll.Run(ctx, m.opts.RecordInterval, func(ctx context.Context) {
		result, ok := m.sample(ctx, j.id)
		if !ok {
			return
		}
		select {
		case m.LuxResultsChan <- result:
		case <-ctx.Done():
		}
	})
	if errors.Is(err, context.DeadlineExceeded) {
		log.Info("Job reached its maximum duration, stopping sensor")
	} else {
		log.Info("Job Cancelled, stopping sensor")
	}
}

// sample takes one reading. On overflow it searches for a new gain instead and
// reports no result.
func (m *SLMeter) sample(ctx context.Context, jobID string) (LuxResults, bool) {
	log := logrus.WithField("jobID", jobID)
	m.sensorMu.Lock()
	defer m.sensorMu.Unlock()

	counts, err := m.sensor.GetFullLuminosity()
	if err != nil {
		log.Errorf("The sensor failed to get luminosity: %v", err)
		return LuxResults{}, false
	}

	// Calculate the lux value from the sensor readings
	gain, timing := m.sensor.Settings()
	lux, err := m.sensor.CalculateLux(counts)
	if err != nil {
		log.Warnf("The sensor failed to calculate lux: %v", err)
		if !errors.Is(err, tsl2591.ErrOverflow) {
			return LuxResults{}, false
		}
		log.Info("Attempting to set new optimal sensor gain")
		if err := m.sensor.SetOptimalGain(ctx); err != nil {
			log.Errorf("The sensor failed to determine new optimal gain: %v", err)
		} else {
			gain, timing = m.sensor.Settings()
			log.Infof("The sensor has been reconfigured - Gain: %v, Integration Time: %v", gain, timing)
		}
		return LuxResults{}, false
	}

	return LuxResults{
		JobID:           jobID,
		Lux:             lux,
		Visible:         tsl2591.GetNormalizedOutput(tsl2591.TSL2591_VISIBLE, counts),
		Infrared:        tsl2591.GetNormalizedOutput(tsl2591.TSL2591_INFRARED, counts),
		FullSpectrum:    tsl2591.GetNormalizedOutput(tsl2591.TSL2591_FULLSPECTRUM, counts),
		Gain:            gain.String(),
		IntegrationTime: timing.String(),
		RecordedAt:      m.now(),
	}, true
}

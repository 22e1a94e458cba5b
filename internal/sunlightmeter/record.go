package sunlightmeter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/ztkent/lux-meter/internal/tools"
)

// Publisher forwards recorded readings somewhere outside the meter.
type Publisher interface {
	Publish(result LuxResults) error
}

// MQTTPublisher publishes each reading as JSON on Topic.
type MQTTPublisher struct {
	Client  mqtt.Client
	Topic   string
	QoS     byte
	Timeout time.Duration
}

func (p *MQTTPublisher) Publish(result LuxResults) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	token := p.Client.Publish(p.Topic, p.QoS, false, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timed out publishing to %s", p.Topic)
	}
	return token.Error()
}

// Read from LuxResultsChan, write the results to sqlite and hand them to the
// publisher, until ctx is done.
func (m *SLMeter) MonitorAndRecordResults(ctx context.Context) {
	logrus.Info("Monitoring for new Sunlight Messages...")
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-m.LuxResultsChan:
			log := logrus.WithField("jobID", result.JobID)
			log.Infof("Lux: %.5f", result.Lux)
			if math.IsInf(result.Lux, 0) || math.IsNaN(result.Lux) {
				log.Warn("Lux is invalid, skipping record")
				continue
			}
			if err := m.recordResult(result); err != nil {
				log.Errorf("Failed to record result: %v", err)
			}
			if m.Publisher != nil {
				if err := m.Publisher.Publish(result); err != nil {
					log.Errorf("Failed to publish result: %v", err)
				}
			}
		}
	}
}

func (m *SLMeter) recordResult(result LuxResults) error {
	if m.ResultsDB == nil {
		return nil
	}
	_, err := m.ResultsDB.Exec(
		"INSERT INTO sunlight (job_id, lux, full_spectrum, visible, infrared, gain, integration_time, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		result.JobID,
		result.Lux,
		result.FullSpectrum,
		result.Visible,
		result.Infrared,
		result.Gain,
		result.IntegrationTime,
		result.RecordedAt.UTC().Format(tools.LayoutDB),
	)
	return err
}

package tools

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ConnectMQTT connects to broker, waiting at most timeout for the CONNACK.
// An empty clientID gets a random one.
func ConnectMQTT(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	if clientID == "" {
		clientID = "sunlightmeter-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logrus.Warnf("MQTT connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return nil, errors.New("Timed out connecting to MQTT broker " + broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("Failed to connect to MQTT broker %s: %w", broker, err)
	}
	logrus.Infof("Connected to MQTT broker %s as %s", broker, clientID)
	return client, nil
}

// Package mqttclient wraps paho.mqtt.golang connection setup and publish,
// the way owl-common's mqtt package does.
package mqttclient

import (
	"fmt"

	"github.com/numa1979/edge-room-monitor/internal/common/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Client struct {
	client mqtt.Client
	cfg    config.MQTTConfig
}

func NewClient(cfg config.MQTTConfig) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}

	return &Client{client: client, cfg: cfg}, nil
}

func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, c.cfg.QoS, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

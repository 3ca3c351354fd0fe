package transport

import (
	"encoding/json"
	"fmt"

	"github.com/numa1979/edge-room-monitor/internal/common/config"
	"github.com/numa1979/edge-room-monitor/internal/common/mqttclient"
	"github.com/numa1979/edge-room-monitor/internal/models"

	"go.uber.org/zap"
)

// alertPayload is the JSON body published to MQTT for a newly appended
// alert. The websocket hub sends the same fields through its own type.
type alertPayload struct {
	SlotID       int    `json:"slot_id"`
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	TimestampMS  int64  `json:"timestamp_ms"`
	Acknowledged bool   `json:"acknowledged"`
}

func newAlertPayload(a models.Alert) alertPayload {
	return alertPayload{
		SlotID:       a.SlotID,
		Kind:         a.Kind.String(),
		Message:      a.Message,
		TimestampMS:  a.Timestamp.UnixMilli(),
		Acknowledged: a.Acknowledged,
	}
}

// MQTTSink publishes each newly appended alert to
// <topic-prefix>/<slot_id>/alerts. Publish failures are logged and
// otherwise ignored, per the best-effort sink contract.
type MQTTSink struct {
	client *mqttclient.Client
	prefix string
	logger *zap.Logger
}

func NewMQTTSink(client *mqttclient.Client, cfg config.MQTTConfig, logger *zap.Logger) *MQTTSink {
	return &MQTTSink{client: client, prefix: cfg.TopicPrefix, logger: logger}
}

func (s *MQTTSink) Notify(alert models.Alert) {
	payload, err := json.Marshal(newAlertPayload(alert))
	if err != nil {
		s.logger.Warn("failed to marshal alert for mqtt", zap.Error(err))
		return
	}

	topic := fmt.Sprintf("%s/%d/alerts", s.prefix, alert.SlotID)
	if err := s.client.Publish(topic, payload); err != nil {
		s.logger.Warn("failed to publish alert to mqtt", zap.String("topic", topic), zap.Error(err))
	}
}

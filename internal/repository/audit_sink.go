package repository

import (
	"context"
	"time"

	"github.com/numa1979/edge-room-monitor/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditSink implements engine.AlertSink, writing one durable row per
// newly appended alert. Insert failures are logged and swallowed: a
// missed audit row must never block the engine's alert pipeline.
type AuditSink struct {
	repo   *AlertRepository
	logger *zap.Logger
}

func NewAuditSink(repo *AlertRepository, logger *zap.Logger) *AuditSink {
	return &AuditSink{repo: repo, logger: logger}
}

func (s *AuditSink) Notify(alert models.Alert) {
	rec := AlertRecord{
		ID:           uuid.NewString(),
		SlotID:       alert.SlotID,
		Kind:         alert.Kind.String(),
		Message:      alert.Message,
		TriggeredAt:  alert.Timestamp,
		Acknowledged: alert.Acknowledged,
		CreatedAt:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.repo.InsertAlertRecord(ctx, rec); err != nil {
		s.logger.Warn("failed to write alert audit record", zap.Error(err))
	}
}

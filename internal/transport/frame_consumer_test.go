package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/numa1979/edge-room-monitor/internal/common/config"
	"github.com/numa1979/edge-room-monitor/internal/engine"
	"github.com/numa1979/edge-room-monitor/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConsumer(t *testing.T) (*FrameConsumer, *engine.Engine, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.FrameStreamConfig{Key: "roommonitor:frames", ConsumerGroup: "engine", ConsumerName: "test"}
	clock := engine.NewFakeClock(time.Unix(1700000000, 0))
	eng := engine.New(models.DefaultEngineConfig(), clock, zap.NewNop())

	consumer := NewFrameConsumer(client, eng, clock, cfg, zap.NewNop())
	return consumer, eng, client
}

func TestEnsureGroupCreatesStreamAndGroup(t *testing.T) {
	consumer, _, client := newTestConsumer(t)
	ctx := context.Background()

	require.NoError(t, consumer.EnsureGroup(ctx))

	groups, err := client.XInfoGroups(ctx, consumer.cfg.Key).Result()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, consumer.cfg.ConsumerGroup, groups[0].Name)

	require.NoError(t, consumer.EnsureGroup(ctx))
}

func TestHandleMessageIngestsValidFrame(t *testing.T) {
	consumer, eng, client := newTestConsumer(t)
	ctx := context.Background()
	require.NoError(t, consumer.EnsureGroup(ctx))

	frame := models.DetectionFrame{Detections: []models.Detection{
		{TrackerID: 1, ClassID: 0, Confidence: 0.9, BBox: models.BBox{Left: 10, Top: 10, Width: 50, Height: 150}},
	}}
	payload, err := json.Marshal(frame)
	require.NoError(t, err)

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: consumer.cfg.Key,
		Values: map[string]interface{}{"data": payload},
	}).Result()
	require.NoError(t, err)

	streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumer.cfg.ConsumerGroup,
		Consumer: consumer.cfg.ConsumerName,
		Streams:  []string{consumer.cfg.Key, ">"},
		Count:    1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Len(t, streams[0].Messages, 1)
	require.Equal(t, id, streams[0].Messages[0].ID)

	consumer.handleMessage(ctx, streams[0].Messages[0])

	views := eng.ListDetections()
	require.Len(t, views, 1)
	require.Equal(t, uint64(1), views[0].Detection.TrackerID)

	pending, err := client.XPending(ctx, consumer.cfg.Key, consumer.cfg.ConsumerGroup).Result()
	require.NoError(t, err)
	require.Equal(t, int64(0), pending.Count)
}

func TestHandleMessageSkipsMalformedFrame(t *testing.T) {
	consumer, eng, client := newTestConsumer(t)
	ctx := context.Background()
	require.NoError(t, consumer.EnsureGroup(ctx))

	_, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: consumer.cfg.Key,
		Values: map[string]interface{}{"data": "not json"},
	}).Result()
	require.NoError(t, err)

	streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumer.cfg.ConsumerGroup,
		Consumer: consumer.cfg.ConsumerName,
		Streams:  []string{consumer.cfg.Key, ">"},
		Count:    1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, streams[0].Messages, 1)

	consumer.handleMessage(ctx, streams[0].Messages[0])

	require.Empty(t, eng.ListDetections())
}

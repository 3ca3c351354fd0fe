// Package transport carries DetectionFrame messages from the upstream
// video pipeline into the engine, and fans alerts back out. The frame
// side is grounded on owl-common's Redis Streams helpers and adapted
// from wisefido-alarm's CacheConsumer poll loop into a blocking
// XREADGROUP read loop.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/numa1979/edge-room-monitor/internal/common/config"
	"github.com/numa1979/edge-room-monitor/internal/engine"
	"github.com/numa1979/edge-room-monitor/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// FrameConsumer reads DetectionFrame messages from a Redis Stream
// consumer group and ingests each into the engine. It owns the clock
// reading for every frame it hands to Engine.Ingest, since the ingest
// thread is the sole source of "now" per the engine's concurrency model.
type FrameConsumer struct {
	redis  *redis.Client
	engine *engine.Engine
	clock  engine.Clock
	cfg    config.FrameStreamConfig
	logger *zap.Logger
}

func NewFrameConsumer(client *redis.Client, eng *engine.Engine, clock engine.Clock, cfg config.FrameStreamConfig, logger *zap.Logger) *FrameConsumer {
	return &FrameConsumer{redis: client, engine: eng, clock: clock, cfg: cfg, logger: logger}
}

// EnsureGroup creates the consumer group (and the stream itself, since
// redis/v8's XGroupCreate has no MKSTREAM flag) if they don't exist yet.
func (c *FrameConsumer) EnsureGroup(ctx context.Context) error {
	err := c.redis.XGroupCreate(ctx, c.cfg.Key, c.cfg.ConsumerGroup, "0").Err()
	if err == nil || err.Error() == "BUSYGROUP Consumer Group name already exists" {
		return nil
	}

	id, createErr := c.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Key,
		Values: map[string]interface{}{"init": "true"},
	}).Result()
	if createErr != nil {
		return fmt.Errorf("create frame stream: %w", createErr)
	}
	c.redis.XDel(ctx, c.cfg.Key, id)

	err = c.redis.XGroupCreate(ctx, c.cfg.Key, c.cfg.ConsumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

// Run blocks, reading frames until ctx is cancelled.
func (c *FrameConsumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("frame consumer started",
		zap.String("stream", c.cfg.Key),
		zap.String("group", c.cfg.ConsumerGroup),
		zap.String("consumer", c.cfg.ConsumerName),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("frame consumer stopped")
			return nil
		default:
		}

		streams, err := c.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.ConsumerGroup,
			Consumer: c.cfg.ConsumerName,
			Streams:  []string{c.cfg.Key, ">"},
			Count:    16,
			Block:    2 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			c.logger.Warn("frame stream read failed", zap.Error(err))
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.handleMessage(ctx, msg)
			}
		}
	}
}

func (c *FrameConsumer) handleMessage(ctx context.Context, msg redis.XMessage) {
	defer c.redis.XAck(ctx, c.cfg.Key, c.cfg.ConsumerGroup, msg.ID)

	raw, ok := msg.Values["data"].(string)
	if !ok {
		return
	}

	var frame models.DetectionFrame
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		c.logger.Warn("malformed detection frame, skipping", zap.String("message_id", msg.ID), zap.Error(err))
		return
	}

	c.engine.Ingest(frame, c.clock.Now())
}

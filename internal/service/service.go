// Package service wires the engine, its transport, its alert sinks,
// and the HTTP API into one process, grounded on wisefido-alarm's
// AlarmService (construct dependencies, Start(ctx)/Stop() lifecycle).
package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/numa1979/edge-room-monitor/internal/api"
	"github.com/numa1979/edge-room-monitor/internal/common/config"
	"github.com/numa1979/edge-room-monitor/internal/common/database"
	"github.com/numa1979/edge-room-monitor/internal/common/mqttclient"
	"github.com/numa1979/edge-room-monitor/internal/common/redisclient"
	"github.com/numa1979/edge-room-monitor/internal/engine"
	"github.com/numa1979/edge-room-monitor/internal/repository"
	"github.com/numa1979/edge-room-monitor/internal/transport"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const httpShutdownTimeout = 5 * time.Second

type RoomMonitorService struct {
	config *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttclient.Client

	engine        *engine.Engine
	frameConsumer *transport.FrameConsumer
	hub           *api.Hub
	httpServer    *http.Server
}

func NewRoomMonitorService(cfg *config.Config, logger *zap.Logger) (*RoomMonitorService, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient := redisclient.New(cfg.Redis)
	if err := redisclient.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	mqttClient, err := mqttclient.NewClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", err)
	}

	eng := engine.New(cfg.Engine, engine.SystemClock{}, logger)

	alertRepo := repository.NewAlertRepository(db, logger)
	eng.AlertLog().AddSink(repository.NewAuditSink(alertRepo, logger))
	eng.AlertLog().AddSink(transport.NewMQTTSink(mqttClient, cfg.MQTT, logger))

	hub := api.NewHub(logger)
	eng.AlertLog().AddSink(hub)

	frameConsumer := transport.NewFrameConsumer(redisClient, eng, engine.SystemClock{}, cfg.Frame, logger)

	handler := api.NewHandler(eng, hub, logger)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: router,
	}

	return &RoomMonitorService{
		config:        cfg,
		logger:        logger,
		db:            db,
		redisClient:   redisClient,
		mqttClient:    mqttClient,
		engine:        eng,
		frameConsumer: frameConsumer,
		hub:           hub,
		httpServer:    httpServer,
	}, nil
}

// Start runs the websocket hub, the frame consumer, and the HTTP server.
// It returns when ctx is cancelled (after shutting down the HTTP server)
// or when the frame consumer or the HTTP server stops first. It does not
// wait for the frame consumer goroutine, and the hub goroutine keeps
// running after Start returns.
func (s *RoomMonitorService) Start(ctx context.Context) error {
	s.logger.Info("starting room monitor service", zap.String("http_addr", s.httpServer.Addr))

	go s.hub.Run()

	consumerErrChan := make(chan error, 1)
	go func() {
		consumerErrChan <- s.frameConsumer.Run(ctx)
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-consumerErrChan:
		return fmt.Errorf("frame consumer stopped: %w", err)
	case err := <-serverErrChan:
		return fmt.Errorf("http server stopped: %w", err)
	}
}

// Stop releases the service's external connections. Safe to call after
// Start has returned.
func (s *RoomMonitorService) Stop() error {
	s.logger.Info("stopping room monitor service")

	s.mqttClient.Disconnect()

	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("failed to close redis client", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close database", zap.Error(err))
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/numa1979/edge-room-monitor/internal/common/config"
	"github.com/numa1979/edge-room-monitor/internal/common/logger"
	"github.com/numa1979/edge-room-monitor/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "room-monitor")
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer log.Sync()

	svc, err := service.NewRoomMonitorService(cfg, log)
	if err != nil {
		log.Fatal("failed to create room monitor service", zap.Error(err))
	}
	defer svc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceErrChan := make(chan error, 1)
	go func() {
		serviceErrChan <- svc.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		<-serviceErrChan
	case err := <-serviceErrChan:
		if err != nil {
			log.Error("service stopped with error", zap.Error(err))
		}
	}

	log.Info("room monitor service stopped")
}

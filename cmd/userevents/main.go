package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"user-registry-api/config"
	"user-registry-api/internal/infrastructure/logger"
	"user-registry-api/pkg/rmqconsumer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	l, cleanup := logger.New(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	defer cleanup()

	dsn, err := cfg.AMQPDSN()
	if err != nil {
		l.Error("RabbitMQ config error", zap.Error(err))
		cleanup()
		os.Exit(1)
	}

	c := rmqconsumer.New(cfg.MQ, l)
	if err = c.Connect(dsn); err != nil {
		l.Error("failed to connect rabbitMQ consumer", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	defer c.Close()
	if err = c.Init(); err != nil {
		l.Error("failed to init rabbitMQ consumer", zap.Error(err))
		c.Close()
		cleanup()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.DeliveryWorker(ctx)
}

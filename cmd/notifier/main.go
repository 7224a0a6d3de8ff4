package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/fjod/go_pizza/internal/config"
	"github.com/fjod/go_pizza/internal/events"
	"github.com/fjod/go_pizza/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(events.NewNotifier(zl.Named("notifier")), zl,
		cfg.KafkaTopic, cfg.KafkaGroupID, cfg.KafkaBrokers...)
	defer consumer.Close()

	zl.Info("Notifier consuming",
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.Strings("brokers", cfg.KafkaBrokers))
	consumer.Run(ctx)
	zl.Info("Notifier stopped")
}

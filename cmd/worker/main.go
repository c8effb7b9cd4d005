package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub002/config"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/alert"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/kafka"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/logger"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	slogger := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	subscriptionRepo := repository.NewSubscriptionRepository(pool)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.AccessEventsTopic)
	defer consumer.Close()

	notifier := alert.NewNotifier(slogger)

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.AccessEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				slogger.Warn("skipping undecodable access event", "error", err)
				return nil
			}
			return notifier.Notify(ctx, event)
		}); err != nil && ctx.Err() == nil {
			slogger.Error("access event consumer stopped", "error", err)
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	slogger.Info("worker started",
		"topic", cfg.Kafka.AccessEventsTopic,
		"sweep_minutes", cfg.Worker.ExpirationSweepMinutes)

	for {
		select {
		case <-sweepTicker.C:
			expired, err := subscriptionRepo.ExpireEnded(ctx)
			if err != nil {
				slogger.Error("subscription expiry sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				slogger.Info("expired subscriptions past end date", "count", expired)
			}
		case <-ctx.Done():
			slogger.Info("worker shutting down")
			return
		}
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub002/api"
	"github.com/angewarren12/billeterie-maritime-sub002/config"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/bootstrap"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/cache"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/kafka"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/logger"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/repository"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/service/scan"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/ticketcode"
	"github.com/jackc/pgx/v5/pgxpool"
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

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Gate.DeviceCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	ticketRepo := repository.NewTicketRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	tripRepo := repository.NewTripRepository(pool)
	deviceRepo := repository.NewDeviceRepository(pool)
	ledgerRepo := repository.NewAccessLogRepository(pool)

	signer := ticketcode.NewSigner(cfg.Gate.TicketSecret)

	scanService := scan.NewScanService(
		ticketRepo,
		subscriptionRepo,
		tripRepo,
		ledgerRepo,
		signer,
		redisCache,
		producer,
		slogger,
		scan.WithEventsTopic(cfg.Kafka.AccessEventsTopic),
		scan.WithWindows(
			time.Duration(cfg.Gate.ScanReplaySeconds)*time.Second,
			time.Duration(cfg.Gate.AntiPassbackSeconds)*time.Second,
			time.Duration(cfg.Gate.DepartedGraceMinutes)*time.Minute,
		),
	)

	scanHandler := api.NewScanHandler(scanService, slogger, cfg.Gate.DebugErrors)
	deviceAuth := api.NewDeviceAuth(deviceRepo, redisCache, slogger)

	if err := bootstrap.Run(ctx, cfg, scanHandler, deviceAuth, slogger); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

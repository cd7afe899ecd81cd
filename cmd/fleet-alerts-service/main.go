package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet-alerts-service/internal/auth"
	"fleet-alerts-service/internal/config"
	"fleet-alerts-service/internal/db"
	httphandler "fleet-alerts-service/internal/http"
	"fleet-alerts-service/internal/http/middleware"
	"fleet-alerts-service/internal/logger"
	"fleet-alerts-service/internal/notify"
	"fleet-alerts-service/internal/realtime"
	"fleet-alerts-service/internal/repository"
	"fleet-alerts-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	publisher := realtime.NewPublisher(rdb)
	hub := realtime.NewHub(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	go hub.Subscribe(ctx, rdb)

	fleetRepo := repository.NewFleetRepository(database)
	alertRepo := repository.NewAlertRepository(database, publisher, appLogger)
	reportRepo := repository.NewReportRepository(database)

	pushTimeout, err := time.ParseDuration(cfg.Push.Timeout)
	if err != nil {
		pushTimeout = 10 * time.Second
	}
	pushClient := notify.NewExpoClient(cfg.Push.URL, pushTimeout, appLogger)
	fanout := notify.NewFanout(fleetRepo, pushClient, appLogger)

	checkService := service.NewCheckService(fleetRepo, alertRepo, reportRepo, fanout, cfg.Alerts, appLogger)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(checkService, alertRepo, fleetRepo, hub, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting fleet alerts service")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}

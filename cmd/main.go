package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strangerly/backend/internal/api/handler"
	"strangerly/backend/internal/chathub"
	"strangerly/backend/internal/complaint"
	"strangerly/backend/internal/config"
	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/moderation"
	"strangerly/backend/internal/ratelimit"
	"strangerly/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "strangerly",
	})
	log := logger.L()
	log.Info().Str("history_backend", cfg.History.Backend).Msg("starting strangerly backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage is optional: on failure the server keeps relaying without it.
	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("storage unavailable, running without persistence")
		stores = &storage.Stores{}
	}
	defer stores.Close()

	history := storage.NewHistory(stores.History, storage.HistoryOptions{
		Workers:      cfg.History.Workers,
		QueueSize:    cfg.History.QueueSize,
		WriteTimeout: cfg.History.WriteTimeout,
		LoadTimeout:  cfg.History.LoadTimeout,
	})
	history.Start()
	defer history.Close()

	hub := chathub.NewManagerService(
		ratelimit.New(cfg.RateLimit.MaxMessages, cfg.RateLimit.Window),
		moderation.NewFilter(cfg.Moderation.BannedWords, cfg.Moderation.Mask),
		history,
		cfg.History.Limit,
	)
	complaints := complaint.NewService(stores.Reports, history)

	reportLimiter := ratelimit.NewIPLimiter(rate.Limit(cfg.Report.Rate), cfg.Report.Burst)
	go reportLimiter.RunCleanup(ctx, time.Minute, 3*time.Minute)

	gin.SetMode(gin.ReleaseMode)
	h := handler.NewHandler(hub, complaints, cfg.WebSocket)
	r := handler.NewRouter(h, log, reportLimiter)

	server := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
}

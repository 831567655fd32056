package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"middag/internal/app"
	"middag/internal/config"
	"middag/internal/planner"
	"middag/internal/server"
	"middag/internal/share"
	"middag/internal/telegram"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.NewFromEnv()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	backend, err := app.OpenBackend(cfg)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	autosave := share.NewAutosaver(backend.Store, cfg.AutosaveDelay, share.WithAutosaveLogger(logger))
	sessions := app.NewSessions(backend.Store, autosave)

	mealPlanner := app.NewPlanner(
		app.NewMenuLoader(cfg, logger),
		planner.NewGenerator(planner.WithLogger(logger)),
		app.WithDefaults(cfg.DefaultLanguage, cfg.DefaultPolicy),
		app.WithRecorder(backend.Metrics),
		app.WithPlannerLogger(logger),
	)

	srv := server.New(mealPlanner, sessions, backend.Store,
		server.WithLogger(logger),
		server.WithUsage(backend.Metrics, cfg.DataPath()),
		server.WithPublicBaseURL(cfg.PublicBaseURL),
		server.WithDefaultLanguage(cfg.DefaultLanguage),
	)

	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBot(cfg, mealPlanner, sessions,
			telegram.WithLogger(logger),
			telegram.WithUsage(backend.Metrics, cfg.DataPath()),
			telegram.WithLinks(func(id string) string {
				if u := srv.PlanURL(id); u != "" {
					return u
				}
				return id
			}),
		)
		if err != nil {
			logger.Error("failed to initialize telegram bot", "error", err)
			os.Exit(1)
		}
		srv.Handle("POST /webhook", bot.Handler())
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port, "backend", cfg.StoreBackend, "telegram", cfg.TelegramBotToken != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	autosave.Close()

	logger.Info("server exiting")
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/app"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/config"
	"github.com/FurmanovVitaliy/logger"
)

func main() {
	var log *slog.Logger
	ctx := context.Background()

	logger.ExtractLogger(ctx).Info("starting ims-dashboard")
	logger.ExtractLogger(ctx).Info("loading configuration")

	cfg := config.MustLoad()

	switch cfg.Env {
	case "local":
		log = logger.NewLogger(
			logger.WithLevel(cfg.Logger.Level), logger.IsJSON(false),
			logger.WithSource(cfg.Logger.Source), logger.IsPrettyOut(true),
		)
	default:
		log = logger.NewLogger(
			logger.WithLevel(cfg.Logger.Level), logger.IsJSON(cfg.Logger.JSON),
			logger.WithSource(cfg.Logger.Source),
		)
	}

	log.Info("configuration loaded", "config", cfg.LogValue())

	application := app.New(
		log,
		cfg,
	)

	go func() {
		application.HTTPServer.MustRun()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	call := <-stop

	log.Info("stopping application", slog.String("signal", call.String()))
	application.HTTPServer.Stop()

	if application.CacheConnection != nil {
		log.Info("stopping redis connection")
		if err := application.CacheConnection.Close(); err != nil {
			log.Error("failed to close redis connection", logger.ErrAttr(err))
		}
	}

	log.Info("application stopped")
}

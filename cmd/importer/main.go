package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"yamdb/internal/config"
	"yamdb/internal/importer"
	"yamdb/internal/model"
	"yamdb/internal/storage"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logger.WithError(err).Error("failed to initialise repository")
		os.Exit(1)
	}

	source, err := storage.NewSource(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to initialise import source")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := importer.New(source, repo, logger).Run(ctx)
	if err != nil {
		logger.WithError(err).Error("import failed")
		os.Exit(1)
	}

	imported := 0
	for _, res := range results {
		imported += res.Rows
	}
	logger.WithFields(logrus.Fields{
		"source": cfg.ImportSource,
		"rows":   imported,
	}).Info("import completed")
}

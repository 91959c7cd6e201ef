package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/yairfalse/vahti/internal/app"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/pkg/config"
)

func main() {
	cfg, err := config.Load(os.Getenv("VAHTI_CONFIG"))
	if err != nil {
		vahtierrors.DisplayError(err)
		os.Exit(vahtierrors.GetExitCode(err))
	}

	// CloudWatch ingests one JSON object per line
	log, err := logger.New(logger.Options{Level: cfg.Logging.Level, Format: "json"})
	if err != nil {
		vahtierrors.DisplayError(err)
		os.Exit(1)
	}

	a, err := app.NewAppFactory().Create(cfg, log)
	if err != nil {
		log.Error("failed to configure vahti", err)
		os.Exit(vahtierrors.GetExitCode(err))
	}

	// Clients, store and sink are created once per container
	m, err := a.NewMonitor(context.Background())
	if err != nil {
		log.Error("failed to wire monitor", err)
		os.Exit(vahtierrors.GetExitCode(err))
	}

	h := &Handler{Monitor: m, Logger: log}
	lambda.Start(h.Handle)
}

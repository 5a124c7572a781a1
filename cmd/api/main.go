package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"popxf/adapters/api"
	"popxf/internal"
	"popxf/internal/config"
	"popxf/internal/validation"
)

func main() {
	logger := internal.NewDefaultLogger("popxf-api")

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration: %v", err)
		os.Exit(1)
	}

	service := api.NewService(api.Config{
		ValidatorOptions: validation.Options{
			AcceptAnySchemaVersion: cfg.Validator.AcceptAnySchemaVersion,
		},
	})

	addr := ":" + cfg.Server.Port
	logger.Info("listening on %s", addr)
	if err := http.ListenAndServe(addr, service.Handler()); err != nil {
		logger.Error("server: %v", err)
		os.Exit(1)
	}
}

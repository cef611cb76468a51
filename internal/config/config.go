package config

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/roms-labs/ingest-svc/pkg/logger"
)

// MustInit loads configuration and wires the default logger. The config file
// is required; the .env file is a development convenience and may be absent
// when the environment is injected by the orchestrator.
func MustInit() {
	if err := godotenv.Load("./.env"); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/ingest-svc")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}

	SetupLogger()
}

func SetupLogger() {
	handler := logger.NewHandler(nil)
	log := slog.New(handler)
	slog.SetDefault(log)
}

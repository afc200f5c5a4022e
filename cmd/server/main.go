package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/server"
)

// Options override environment configuration. The struct tags are
// interpreted by github.com/jessevdk/go-flags.
type Options struct {
	Port        string `short:"p" long:"port" description:"Server port (PORT)"`
	Host        string `long:"host" description:"Listen host (HOST)"`
	ModulesFile string `short:"m" long:"modules" description:"YAML/TOML file with backend modules and persona (MODULES_FILE)"`
	LogLevel    string `long:"log-level" description:"debug, info, warn or error (LOG_LEVEL)"`
	Dev         bool   `long:"dev" description:"Development logging (LOG_DEV)"`
	NoRateLimit bool   `long:"no-rate-limit" description:"Disable inbound rate limiting"`
}

func (o *Options) apply(cfg *config.Config) {
	if o.Port != "" {
		cfg.Server.Port = o.Port
	}
	if o.Host != "" {
		cfg.Server.Host = o.Host
	}
	if o.ModulesFile != "" {
		cfg.Backend.ModulesFile = o.ModulesFile
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.Dev {
		cfg.Logging.Development = true
	}
	if o.NoRateLimit {
		cfg.RateLimit.Enabled = false
	}
}

func main() {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	opts.apply(cfg)

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		_ = srv.Close()
		os.Exit(1)
	}
	_ = srv.Close()
}

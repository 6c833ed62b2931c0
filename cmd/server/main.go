package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/OFFIS-RIT/parversion/internal/app"
	"github.com/OFFIS-RIT/parversion/internal/config"
	"github.com/OFFIS-RIT/parversion/internal/queue"
	"github.com/OFFIS-RIT/parversion/internal/server"
	mid "github.com/OFFIS-RIT/parversion/internal/server/middleware"
	"github.com/OFFIS-RIT/parversion/internal/util"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
	"github.com/OFFIS-RIT/parversion/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(util.GetEnv("PARVERSION_CONFIG"))
	if err != nil {
		console.NewConsoleLogger(console.ConsoleLoggerParams{}).Fatal("Invalid configuration", "err", err)
	}

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
		JSON:  util.GetEnvBool("LOG_JSON", false),
	})
	logger.Init(consoleLogger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	core, err := app.New(ctx, cfg, app.Options{Registry: registry})
	if err != nil {
		logger.Fatal("Failed to initialize analysis", "err", err)
	}
	defer core.Close()

	a := &mid.App{Core: core, AnalyzeQueue: cfg.Queue.AnalyzeQueue}

	if cfg.Server.AuthURL != "" {
		k, err := keyfunc.NewDefault([]string{cfg.Server.AuthURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		a.Keyfunc = k.Keyfunc
	} else {
		logger.Warn("AUTH_URL not set, API authentication disabled")
	}

	if cfg.Queue.URL != "" {
		conn, err := queue.Init(cfg.Queue.URL)
		if err != nil {
			logger.Fatal("Failed to connect to queue", "err", err)
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()

		queues := []string{cfg.Queue.AnalyzeQueue, cfg.Queue.ResultsQueue}
		if err := queue.SetupQueues(ch, queues, cfg.Queue.RetryTTL.Duration); err != nil {
			logger.Fatal("Failed to setup queues", "err", err)
		}
		a.Queue = ch
	}

	e := server.New(server.NewServerParams{
		App:         a,
		CORSOrigins: cfg.Server.CORSOrigins,
		BodyLimit:   cfg.Server.BodyLimit,
	})
	if err := server.Run(ctx, e, cfg.Server.Port); err != nil {
		logger.Fatal("Server stopped", "err", err)
	}
	logger.Info("Shutdown signal received, exiting...")
}

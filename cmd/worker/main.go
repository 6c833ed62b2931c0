package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/parversion/internal/app"
	"github.com/OFFIS-RIT/parversion/internal/config"
	"github.com/OFFIS-RIT/parversion/internal/queue"
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

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
		JSON:  util.GetEnvBool("LOG_JSON", false),
	})
	logger.Init(consoleLogger)

	if cfg.Queue.URL == "" {
		logger.Fatal("No queue configured, set RABBITMQ_URL or RABBITMQ_HOST")
	}

	core, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		logger.Fatal("Failed to initialize analysis", "err", err)
	}
	defer core.Close()

	// Init rabbitmq
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

	// prefetch=1 delivers one job at a time
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		cfg.Queue.AnalyzeQueue,
		cfg.Queue.AnalyzeQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", cfg.Queue.AnalyzeQueue, "err", err)
	}

	processor := &queue.Processor{
		App:          core,
		Channel:      consumerCh,
		AnalyzeQueue: cfg.Queue.AnalyzeQueue,
		ResultsQueue: cfg.Queue.ResultsQueue,
		MaxRetries:   cfg.Queue.MaxRetries,
	}

	logger.Info("Listening for messages", "queue", cfg.Queue.AnalyzeQueue)
	processor.Consume(ctx, msgs)
	logger.Info("Shutdown signal received, exiting...")
}

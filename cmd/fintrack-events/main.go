// fintrack-events consumes analytics events from RabbitMQ and writes them
// to the structured log.
package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentAMQP)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	logger.Info("Starting fintrack-events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	sink := analytics.NewLogSink(logger)
	handler := func(ctx context.Context, msg *amqp.EventMessage) error {
		return sink.Handle(ctx, msg.Event())
	}

	if err := client.ConsumeWithRetry(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Consumer stopped")
}

// Command audit-consumer reads ledger events from RabbitMQ and appends them
// to <AUDIT_DIR>/audit.log until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/finance-tracker/internal/config"
	"github.com/iliyamo/finance-tracker/internal/logging"
	"github.com/iliyamo/finance-tracker/internal/queue"
)

func main() {
	_ = godotenv.Load()
	log := logging.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"), nil)

	dir := os.Getenv("AUDIT_DIR")
	if dir == "" {
		dir = "storage/audit"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.WithError(err).Fatal("create audit directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("dir", dir).Info("audit consumer starting")
	err := queue.StartAuditConsumer(ctx, config.AMQPURL(), dir, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("audit consumer stopped")
	}
	log.Info("audit consumer stopped")
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"fyndora/internal/audit"
	"fyndora/internal/audit/async"
	"fyndora/internal/audit/kafkaqueue"
	memorystore "fyndora/internal/audit/store/memory"
	postgresstore "fyndora/internal/audit/store/postgres"
	"fyndora/internal/domain"
	"fyndora/internal/platform/config"
	"fyndora/internal/platform/logger"
	"fyndora/internal/platform/postgres"
)

// main runs the Kafka-driven audit worker: it consumes queued audit tasks
// and writes trail entries through the same recorder the API uses.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if len(cfg.KafkaBrokers) == 0 {
		log.Error("KAFKA_BROKERS is required for the audit worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditCfg := audit.DefaultConfig()
	auditCfg.EnableAutomaticLogging = cfg.AuditEnabled
	auditCfg.LogFieldChanges = cfg.AuditFieldChanges

	metrics := audit.NewMetrics()
	registry := audit.NewRegistry(auditCfg, log)
	domain.RegisterDefaults(registry)

	var store audit.Store
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		store = postgresstore.New(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory audit store")
		store = memorystore.NewStore()
	}

	directory := domain.NewMemoryDirectory()
	recorder := audit.NewRecorder(store, registry, log, metrics)
	tasks := async.NewTasks(recorder, directory, directory, log, metrics)

	// Bulk tasks fan their entries out to a local pool so each entry's
	// outcome and audit ID feed the aggregate result.
	pool := async.NewPool(tasks, cfg.AsyncWorkers, cfg.AsyncBuffer, async.DefaultRetryPolicy(), log, metrics)
	pool.Start(ctx)
	defer pool.Close()
	tasks.BindQueue(pool)

	consumer, err := kafkaqueue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup, tasks, async.DefaultRetryPolicy(), log, metrics)
	if err != nil {
		log.Error("kafka consumer setup failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	log.Info("audit worker started",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
		"group", cfg.KafkaGroup,
	)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	log.Info("audit worker shutdown complete")
}

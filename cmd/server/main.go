package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"fyndora/internal/audit"
	"fyndora/internal/audit/async"
	"fyndora/internal/audit/kafkaqueue"
	"fyndora/internal/audit/query"
	memorystore "fyndora/internal/audit/store/memory"
	postgresstore "fyndora/internal/audit/store/postgres"
	"fyndora/internal/domain"
	"fyndora/internal/platform/config"
	"fyndora/internal/platform/httpserver"
	"fyndora/internal/platform/lockout"
	"fyndora/internal/platform/logger"
	"fyndora/internal/platform/postgres"
	platformredis "fyndora/internal/platform/redis"
	"fyndora/internal/platform/secrets"
	"fyndora/internal/platform/token"
	httptransport "fyndora/internal/transport/http"
)

const cleanupInterval = time.Hour

// main wires the audit pipeline and the HTTP API. Business logic lives in
// the internal packages; this stays assembly only.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

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

	cache, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
	}

	directory := domain.NewMemoryDirectory()
	if db == nil {
		seedDev(directory, log)
	}

	recorder := audit.NewRecorder(store, registry, log, metrics)
	authEvents := audit.NewAuthEvents(recorder, auditCfg, log, metrics)
	tasks := async.NewTasks(recorder, directory, directory, log, metrics)

	var queue async.Queue
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafkaqueue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka producer setup failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		queue = producer
	} else {
		pool := async.NewPool(tasks, cfg.AsyncWorkers, cfg.AsyncBuffer, async.DefaultRetryPolicy(), log, metrics)
		pool.Start(ctx)
		defer pool.Close()
		queue = pool
	}
	tasks.BindQueue(queue)
	submitter := async.NewSubmitter(queue, log)

	selectors := newSelectors(store, cache, auditCfg, log)
	cleanup := query.NewCleanup(store, registry, auditCfg, log, metrics)
	go runCleanup(ctx, cleanup, log)

	tokens := token.NewService(cfg.JWTSigningKey, "fyndora")
	accounts := domain.NewAccounts(directory)
	guard := newLockoutGuard(cache, log)

	auditHandler := httptransport.NewHandler(selectors, log)
	ingestHandler := httptransport.NewIngestHandler(submitter, log)
	authHandler := httptransport.NewAuthHandler(accounts, tokens, authEvents, guard, log)
	router := httptransport.NewRouter(auditHandler, ingestHandler, authHandler, tokens, log)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting fyndora audit service", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	if err := httpserver.Shutdown(srv); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// newLockoutGuard shares failure counters through Redis when it is
// configured, so a lock holds across instances.
func newLockoutGuard(cache *platformredis.Client, log *slog.Logger) *lockout.Guard {
	var store lockout.Store = lockout.NewMemoryStore()
	if cache != nil {
		store = lockout.NewRedisStore(cache.Client)
	}
	return lockout.NewGuard(store, lockout.DefaultMaxFailures, lockout.DefaultWindow, log)
}

func newSelectors(store audit.Store, cache *platformredis.Client, cfg *audit.Config, log *slog.Logger) *query.Selectors {
	if cache == nil {
		return query.NewSelectors(store, nil, cfg, log)
	}
	return query.NewSelectors(store, cache.Client, cfg, log)
}

func runCleanup(ctx context.Context, cleanup *query.Cleanup, log *slog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := cleanup.PurgeExpired(ctx, time.Now()); err != nil {
				log.Error("retention cleanup run failed", "error", err)
			}
		}
	}
}

// seedDev provisions a development login so the API is usable without a
// database. Password: admin.
func seedDev(directory *domain.MemoryDirectory, log *slog.Logger) {
	hash, err := secrets.Hash("admin")
	if err != nil {
		log.Error("dev seed failed", "error", err)
		return
	}
	admin := &domain.User{
		UserID:       uuid.New(),
		Email:        "admin@example.com",
		Username:     "admin",
		Role:         "admin",
		Status:       "active",
		IsActive:     true,
		PasswordHash: hash,
	}
	directory.Add(admin)
	log.Info("seeded development user", "username", admin.Username, "user_id", admin.UserID)
}

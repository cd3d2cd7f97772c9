// cmd/funnel-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"energylab-funnel/internal/common/config"
	"energylab-funnel/internal/common/database"
	"energylab-funnel/internal/common/logger"
	"energylab-funnel/internal/common/notify"
	"energylab-funnel/internal/common/observability"
	"energylab-funnel/internal/funnel/address"
	"energylab-funnel/internal/funnel/eligibility"
	"energylab-funnel/internal/funnel/epc"
	"energylab-funnel/internal/funnel/lead"
	"energylab-funnel/internal/funnel/orchestrator"
	"energylab-funnel/internal/funnel/progress"
	"energylab-funnel/internal/funnel/session"
	"energylab-funnel/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting funnel server...",
		zap.String("environment", cfg.App.Environment),
		zap.Bool("demoMode", cfg.Funnel.DemoMode),
	)

	obs := observability.New("funnel-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry (sessions + eligibility cache) ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Init PostgreSQL with retry (submission audit) ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Host != "" {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Elasticsearch with retry (funnel event index) ---
	var esClient *database.ElasticsearchClient
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	sessionTTL := time.Duration(cfg.Funnel.SessionTTL) * time.Minute
	var sessions session.Store
	if redis != nil {
		sessions = session.NewRedisStore(redis, sessionTTL, log)
	} else {
		sessions = session.NewMemoryStore(sessionTTL)
		zapLog.Info("Using in-memory session store")
	}

	var eligCache eligibility.Cache
	if redis != nil {
		eligCache = eligibility.NewRedisCache(redis, sessionTTL, log)
	} else {
		eligCache = eligibility.NewMemoryCache()
	}

	resolver := address.NewResolver(address.Config{
		BaseURL: cfg.APIs.AddressLookup.BaseURL,
		Timeout: time.Duration(cfg.APIs.AddressLookup.Timeout) * time.Millisecond,
	}, log)

	checker := eligibility.NewChecker(eligibility.Config{
		BaseURL:  cfg.APIs.Eligibility.BaseURL,
		Timeout:  time.Duration(cfg.APIs.Eligibility.Timeout) * time.Millisecond,
		DemoMode: cfg.Funnel.DemoMode,
	}, eligCache, log)

	enricher := epc.NewEnricher(epc.Config{
		BaseURL: cfg.APIs.EPC.BaseURL,
		Timeout: time.Duration(cfg.APIs.EPC.Timeout) * time.Millisecond,
	}, log)

	var audit lead.AuditSink
	if pg != nil {
		audit = lead.NewPostgresAudit(pg, log)
	}
	submitter := lead.NewSubmitter(lead.Config{
		BaseURL: cfg.APIs.LeadIngestion.BaseURL,
		Timeout: time.Duration(cfg.APIs.LeadIngestion.Timeout) * time.Millisecond,
	}, audit, log).WithObservability(obs)

	var notifier *notify.Notifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		notifier, err = notify.New(ctx, cfg.Notifications, log)
		if err != nil {
			zapLog.Fatal("notifier init failed", zap.Error(err))
		}
		zapLog.Info("Confirmation notifier initialized")
	}

	var events orchestrator.EventIndexer
	if esClient != nil {
		events = esClient
	}

	script := progress.NewScript(progress.DefaultProviders, 600*time.Millisecond)
	orch := orchestrator.New(
		orchestrator.Config{
			TransitionDelay: time.Duration(cfg.Funnel.TransitionDelay) * time.Millisecond,
			DefaultSource:   cfg.Funnel.DefaultSource,
			EventIndex:      cfg.Database.Elasticsearch.LeadIndex,
			Script:          script,
		},
		sessions, resolver, checker, enricher, submitter, notifier, events, obs, log,
	)
	defer orch.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.New(orch, script, log).Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("Funnel server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down server", zap.Error(err))
	}
	zapLog.Info("Funnel server stopped gracefully")
}

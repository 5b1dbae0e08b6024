package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/attendance-core/internal/audit"
	"github.com/edupanel/attendance-core/internal/concurrency"
	"github.com/edupanel/attendance-core/internal/handler"
	"github.com/edupanel/attendance-core/internal/metrics"
	"github.com/edupanel/attendance-core/internal/service"
	"github.com/edupanel/attendance-core/internal/validation"
	"github.com/edupanel/attendance-core/pkg/config"
	"github.com/edupanel/attendance-core/pkg/jobs"
	"github.com/edupanel/attendance-core/pkg/kvstore"
	"github.com/edupanel/attendance-core/pkg/logger"
	"github.com/edupanel/attendance-core/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := buildStore(cfg)
	if err != nil {
		logr.Sugar().Fatalw("store init failed", "backend", cfg.Store.Backend, "error", err)
	}
	logr.Sugar().Infow("store ready", "backend", cfg.Store.Backend, "namespace", cfg.Store.Namespace)

	m := metrics.New()
	engine := validation.NewEngine(cfg.Absences, cfg.Import)
	trail := audit.NewLogger(store, cfg.Store.Namespace, cfg.Audit, logr)
	locks := concurrency.NewManager(store, cfg.Store.Namespace, cfg.Concurrency, logr,
		concurrency.WithRetryObserver(m.ObserveOptimisticRetry))

	svc := service.New(service.Deps{
		Store:     store,
		Namespace: cfg.Store.Namespace,
		Engine:    engine,
		Audit:     trail,
		Locks:     locks,
		Metrics:   m,
		Logger:    logr,
		Imports:   cfg.Import,
		Absences:  cfg.Absences,
	})

	var archive *storage.Archive
	var signer *storage.TokenSigner
	if cfg.Export.TokenSecret != "" {
		archive, err = storage.NewArchive(cfg.Export.Dir)
		if err != nil {
			logr.Sugar().Fatalw("export archive init failed", "dir", cfg.Export.Dir, "error", err)
		}
		signer = storage.NewTokenSigner(cfg.Export.TokenSecret, cfg.Export.TokenTTL)
	} else {
		logr.Warn("EXPORT_TOKEN_SECRET unset, export archive disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := jobs.NewRunner(logr)
	runner.Add(jobs.Task{
		Name:     "lock-sweep",
		Interval: cfg.Maintenance.SweepInterval,
		Run: func(ctx context.Context) error {
			_, err := locks.CleanupExpiredLocks(ctx)
			return err
		},
	})
	runner.Add(jobs.Task{
		Name:     "audit-retention",
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			purged, err := trail.Purge(ctx, cfg.Audit.RetentionDays)
			if purged > 0 {
				logr.Sugar().Infow("audit entries purged", "count", purged)
			}
			return err
		},
	})
	runner.Start(ctx)
	defer runner.Stop()

	router := handler.NewRouter(
		handler.NewHealthHandler(svc, m),
		handler.NewAuditHandler(trail, archive, signer),
		logr,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("admin server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
	logr.Info("admin server stopped")
}

func buildStore(cfg *config.Config) (kvstore.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return kvstore.NewMemory(), nil
	case config.StoreRedis:
		return kvstore.NewRedis(cfg.Redis)
	case config.StorePostgres:
		return kvstore.NewSQL(cfg.Database)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

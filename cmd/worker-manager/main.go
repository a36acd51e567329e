// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dd-qualification/internal/alerts"
	awsx "dd-qualification/internal/common/aws"
	"dd-qualification/internal/common/camunda"
	"dd-qualification/internal/common/config"
	"dd-qualification/internal/common/database"
	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/common/observability"
	"dd-qualification/internal/common/validation"
	pgstore "dd-qualification/internal/evidence/postgres"
	"dd-qualification/internal/findings"
	"dd-qualification/internal/qualification"
	"dd-qualification/internal/snapshot"
	"dd-qualification/pkg/registry"

	"go.uber.org/zap"
)

// connectRetry is used for every backing service at startup; containers
// often come up before their databases.
var connectRetry = &camunda.RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// dependencies are the optional services; nil means not configured.
type dependencies struct {
	cache    *snapshot.Cache
	index    *findings.Index
	notifier *alerts.Notifier
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.Build(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if err := run(cfg, log); err != nil {
		zapLog.Fatal("worker manager failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting worker manager", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.Observability, log)
	defer obs.Shutdown(context.Background())

	// --- Evidence store ---
	var pg *database.PostgresClient
	err := camunda.ExecuteWithRetry(ctx, connectRetry, "postgres connect", func(ctx context.Context) error {
		var err error
		if pg == nil {
			if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
				return err
			}
		}
		return pg.Ping(ctx)
	})
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()
	log.Info("PostgreSQL connected", nil)

	store := pgstore.NewStore(pg.DB, log)
	engine := qualification.NewEngine(store, log)

	// --- Registry & input validation ---
	reg, err := registry.LoadOrDefault(cfg.Qualification.RegistryPath)
	if err != nil {
		return fmt.Errorf("activity registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("activity registry: %w", err)
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		return err
	}

	// --- Optional services ---
	deps, closeDeps := connectOptional(ctx, cfg, log)
	defer closeDeps()

	// --- Zeebe ---
	zb, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: cfg.Camunda.UsePlaintext,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig:            connectRetry,
	})
	if err != nil {
		return err
	}
	defer zb.Close()
	log.Info("Zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	workers, err := startWorkers(cfg, zb, engine, validator, reg, deps, obs, log)
	if err != nil {
		return err
	}

	// --- Ops server ---
	ops := &opsServer{
		checks: []readinessCheck{
			{name: "postgres", check: pg.Ping},
			{name: "zeebe", check: zb.HealthCheck},
		},
		logger: log,
	}
	if deps.cache != nil {
		ops.snapshots = deps.cache
	}
	if deps.index != nil {
		ops.findings = deps.index
	}
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newRouter(ops),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Ops server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Ops server failed", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Ops server shutdown", map[string]interface{}{"error": err.Error()})
	}
	for _, w := range workers {
		w.Stop()
	}

	log.Info("Worker manager stopped", nil)
	return nil
}

// connectOptional wires Redis, Elasticsearch and AWS when configured. A
// service that cannot be reached is logged and left out.
func connectOptional(ctx context.Context, cfg *config.Config, log logger.Logger) (dependencies, func()) {
	var (
		deps    dependencies
		closers []func()
	)

	if cfg.Database.Redis.Enabled() {
		rc := database.NewRedis(cfg.Database.Redis)
		if err := camunda.ExecuteWithRetry(ctx, camunda.DefaultRetryConfig, "redis ping", rc.Ping); err != nil {
			log.Warn("Redis unavailable, snapshot cache disabled", map[string]interface{}{"error": err.Error()})
			_ = rc.Close()
		} else {
			deps.cache = snapshot.NewCache(rc.Client, cfg.Qualification.SnapshotPrefix, cfg.Qualification.SnapshotTTLDuration(), log)
			closers = append(closers, func() { _ = rc.Close() })
			log.Info("Redis connected", nil)
		}
	}

	if cfg.Database.Elasticsearch.Enabled() {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err == nil {
			err = camunda.ExecuteWithRetry(ctx, camunda.DefaultRetryConfig, "elasticsearch ping", es.Ping)
		}
		if err != nil {
			log.Warn("Elasticsearch unavailable, findings index disabled", map[string]interface{}{"error": err.Error()})
		} else {
			deps.index = findings.NewIndex(es.Client, cfg.Qualification.FindingsIndex, log)
			log.Info("Elasticsearch connected", nil)
		}
	}

	n := cfg.Notifications
	if n.SNS.Enabled || n.SES.Enabled {
		awsCfg, err := awsx.LoadConfig(ctx, n.AWS.Region)
		if err != nil {
			log.Warn("AWS config unavailable, alerts disabled", map[string]interface{}{"error": err.Error()})
		} else {
			var (
				snsClient awsx.SNSService
				sesClient awsx.SESService
			)
			if n.SNS.Enabled {
				snsClient = awsx.NewSNSClient(awsCfg)
			}
			if n.SES.Enabled {
				sesClient = awsx.NewSESClient(awsCfg)
			}
			deps.notifier = alerts.NewNotifier(snsClient, sesClient, alerts.Options{
				TopicARN:   n.SNS.TopicARN,
				FromEmail:  n.SES.FromEmail,
				Recipients: n.SES.Recipients,
			}, log)
		}
	}

	return deps, func() {
		for _, c := range closers {
			c()
		}
	}
}

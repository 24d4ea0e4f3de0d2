package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"lingkod/internal/audit"
	"lingkod/internal/files"
	hrhandler "lingkod/internal/hr/handler"
	hrservice "lingkod/internal/hr/service"
	hrstore "lingkod/internal/hr/store"
	inventoryhandler "lingkod/internal/inventory/handler"
	inventoryservice "lingkod/internal/inventory/service"
	inventorystore "lingkod/internal/inventory/store"
	"lingkod/internal/jwt"
	lineshandler "lingkod/internal/lines/handler"
	linesservice "lingkod/internal/lines/service"
	linesstore "lingkod/internal/lines/store"
	"lingkod/internal/notify"
	pharmacyhandler "lingkod/internal/pharmacy/handler"
	pharmacyservice "lingkod/internal/pharmacy/service"
	pharmacystore "lingkod/internal/pharmacy/store"
	"lingkod/internal/platform/config"
	"lingkod/internal/platform/httpserver"
	"lingkod/internal/platform/logger"
	"lingkod/internal/platform/metrics"
	"lingkod/internal/platform/redis"
	"lingkod/internal/ratelimit"
	"lingkod/internal/refdata"
	httptransport "lingkod/internal/transport/http"
	"lingkod/migrations"
	"lingkod/pkg/fieldcrypt"
	"lingkod/pkg/workflow"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	log := logger.New()
	if err := run(context.Background(), log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		return err
	}

	rdb, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	cipher, err := fieldcrypt.New(cfg.FieldSecret)
	if err != nil {
		return err
	}

	m := metrics.New()
	coordinator := workflow.NewCoordinator(workflow.NewSQLUnitOfWork(db), log, m)

	auditStore := audit.NewPostgresStore(db)
	auditor := audit.NewPublisher(auditStore)

	fileStore, err := newFileStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	refClient := refdata.NewCachedClient(refdata.MockClient{}, rdb, config.RefLookupTTL, m, log)
	emailSender := notify.LogEmailSender{Logger: log}
	smsSender := notify.LogSMSSender{Logger: log}

	jwtService := jwt.NewService(cfg.JWTSigningKey, "lingkod")
	validator := jwt.NewMiddlewareAdapter(jwtService)

	linesStore := linesstore.NewPostgresStore(db)
	hrStore := hrstore.NewPostgresStore(db)
	pharmacyStore := pharmacystore.NewPostgresStore(db)
	inventoryStore := inventorystore.NewPostgresStore(db)

	linesService := linesservice.NewService(coordinator, linesStore, refClient, auditor, emailSender, cfg.PortalBaseURL, log)
	hrService := hrservice.NewService(coordinator, cipher, hrStore, linesStore, auditor, fileStore, emailSender, m, log)
	pharmacyService := pharmacyservice.NewService(coordinator, cipher, pharmacyStore, auditor, smsSender, log)
	inventoryService := inventoryservice.NewService(coordinator, inventoryStore, auditor, log)

	var submitLimiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(10, time.Minute)
	if rdb != nil {
		submitLimiter = ratelimit.NewRedisLimiter(rdb, 10, time.Minute)
	}

	router := httptransport.NewRouter(log, db.Ping,
		lineshandler.New(linesService, log, validator),
		hrhandler.New(hrService, log, validator,
			hrhandler.WithSubmissionLimit(ratelimit.Middleware(submitLimiter, log))),
		pharmacyhandler.New(pharmacyService, log, validator),
		inventoryhandler.New(inventoryService, log, validator),
		audit.NewHandler(auditor, log, validator),
	)
	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := audit.NewKafkaProducer(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer producer.Close()
		worker := audit.NewWorker(auditStore, producer, log, audit.WithShipped(m))
		g.Go(func() error {
			err := worker.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		log.Warn("kafka brokers not configured, audit events stay in the outbox")
	}

	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newFileStore picks S3 when a bucket is configured and falls back to the
// in-memory store for development.
func newFileStore(ctx context.Context, cfg config.Server, log *slog.Logger) (files.Store, error) {
	if cfg.S3Bucket == "" {
		log.Warn("object storage not configured, applicant files are held in memory")
		return files.NewMemoryStore(), nil
	}
	return files.NewS3Store(ctx, files.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
}

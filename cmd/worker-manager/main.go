// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"visa-tracker/internal/api"
	"visa-tracker/internal/cache"
	"visa-tracker/internal/common/aws"
	"visa-tracker/internal/common/camunda"
	"visa-tracker/internal/common/config"
	"visa-tracker/internal/common/database"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/common/observability"
	"visa-tracker/internal/documents"
	"visa-tracker/internal/documents/s3store"
	"visa-tracker/internal/models"
	"visa-tracker/internal/notify"
	"visa-tracker/internal/query"
	"visa-tracker/internal/rules"
	"visa-tracker/internal/store"
	"visa-tracker/internal/store/memory"
	"visa-tracker/internal/store/postgres"
	"visa-tracker/internal/store/xlsx"
	"visa-tracker/internal/tracker"

	addapplicant "visa-tracker/internal/workers/applicants/add-applicant"
	checkdocuments "visa-tracker/internal/workers/applicants/check-documents"
	evaluatealerts "visa-tracker/internal/workers/applicants/evaluate-alerts"
	sendalertdigest "visa-tracker/internal/workers/applicants/send-alert-digest"
	updateapplicant "visa-tracker/internal/workers/applicants/update-applicant"
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
			delay *= 2
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting visa tracker...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("store", cfg.Store.Driver),
	)

	// Store dates carry no zone; read and write them as local wall clock.
	models.SetLocation(cfg.App.Location())

	obs := observability.New(cfg.App.Name, zapLog)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Cache ---
	c, closeCache := openCache(ctx, cfg, zapLog)
	defer closeCache()

	// --- Tabular store ---
	backend, closeStore, err := openStore(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("store init failed", zap.Error(err))
	}
	defer closeStore()

	adapter := store.NewAdapter(store.NewCachedStore(backend, c, cfg.Cache.TTLDuration(), log), log)

	// --- Documents ---
	var resolver *documents.Resolver
	if cfg.Documents.Enabled {
		s3Client, err := aws.NewS3Client(ctx, cfg.Documents.Region, cfg.Documents.Endpoint)
		if err != nil {
			zapLog.Fatal("s3 client init failed", zap.Error(err))
		}
		files := s3store.NewFromClient(s3Client, s3store.Config{
			Bucket:  cfg.Documents.Bucket,
			Prefix:  cfg.Documents.Prefix,
			LinkTTL: time.Duration(cfg.Documents.LinkTTL) * time.Second,
		})
		resolver = documents.NewResolver(
			documents.NewCachedFileStore(files, c, cfg.Cache.TTLDuration()),
			cfg.Documents.Types,
			cfg.Documents.RootFolder,
			cfg.Documents.MaxConcurrency,
			log,
		)
		zapLog.Info("Document storage enabled", zap.String("bucket", cfg.Documents.Bucket))
	}

	// --- Notifications ---
	var notifier *notify.Notifier
	ncfg := notify.ConfigFromApp(cfg)
	if ncfg.EmailEnabled || ncfg.SMSEnabled {
		var sesClient notify.SESService
		var snsClient notify.SNSService
		if ncfg.EmailEnabled {
			sesClient, err = aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client init failed", zap.Error(err))
			}
		}
		if ncfg.SMSEnabled {
			snsClient, err = aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client init failed", zap.Error(err))
			}
		}
		notifier = notify.NewNotifier(ncfg, sesClient, snsClient, log)
		zapLog.Info("Alert digests enabled",
			zap.Bool("email", ncfg.EmailEnabled),
			zap.Bool("sms", ncfg.SMSEnabled),
			zap.Int("recipients", len(ncfg.Recipients)),
		)
	}

	svc := tracker.New(tracker.Options{
		Store:        adapter,
		Engine:       rules.NewEngine(obs),
		Agents:       query.AgentTableFromConfig(cfg.Agents),
		Documents:    resolver,
		Notifier:     notifier,
		Tables:       cfg.Store.Tables,
		DefaultTable: cfg.Store.DefaultTable,
		Location:     cfg.App.Location(),
		Logger:       log,
	})

	// --- Workers ---
	var workers []worker.JobWorker
	if cfg.Camunda.Enabled {
		zc, err := camunda.Connect(ctx, camunda.ConfigFromApp(cfg.Camunda), log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zc.Close()
		workers = startWorkers(cfg, zc, svc, obs, log)
		zapLog.Info("Workers started", zap.Int("count", len(workers)))
	} else {
		zapLog.Info("Camunda disabled, serving HTTP only")
	}

	// --- HTTP ---
	server := api.NewServer(cfg.HTTP, svc, log)
	if err := server.ListenAndServe(ctx, cfg.HTTP.Address); err != nil {
		zapLog.Error("http server stopped", zap.Error(err))
	}

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	zapLog.Info("Shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (store.TabularStore, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, nil, err
		}
		s := postgres.New(pg.DB)
		if err := s.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		zapLog.Info("PostgreSQL connected successfully")
		return s, func() { pg.Close() }, nil

	case "memory":
		s := memory.New()
		for _, t := range cfg.Store.Tables {
			s.Seed(t)
		}
		zapLog.Warn("Using in-memory store, data is not persisted")
		return s, func() {}, nil

	default:
		s, err := xlsx.Open(cfg.Store.XLSXPath)
		if err != nil {
			return nil, nil, err
		}
		zapLog.Info("Workbook opened", zap.String("path", cfg.Store.XLSXPath))
		return s, func() { s.Close() }, nil
	}
}

// openCache never fails startup: an unreachable Redis degrades to the
// in-process cache.
func openCache(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (cache.Cache, func()) {
	switch cfg.Cache.Driver {
	case "none":
		return cache.Noop{}, func() {}
	case "redis":
		var rc *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("Redis unavailable, falling back to memory cache", zap.Error(err))
			return cache.NewMemory(), func() {}
		}
		zapLog.Info("Redis connected successfully")
		return cache.NewRedis(rc.Client, cfg.Cache.KeyPrefix), func() { rc.Close() }
	default:
		return cache.NewMemory(), func() {}
	}
}

func startWorkers(cfg *config.Config, zc *camunda.Client, svc *tracker.Tracker, obs *observability.Observability, log logger.Logger) []worker.JobWorker {
	client := zc.GetClient()
	var started []worker.JobWorker

	start := func(taskType string, handler camunda.HandlerFunc) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if jw := camunda.StartWorker(client, taskType, wcfg, camunda.Instrument(obs, taskType, handler), log); jw != nil {
			started = append(started, jw)
		}
	}
	// Per-worker timeouts override the handler defaults only when set.
	timeout := func(taskType string, fallback time.Duration) time.Duration {
		if w, ok := cfg.Workers[taskType]; ok && w.Timeout > 0 {
			return config.GetDuration(w.Timeout)
		}
		return fallback
	}

	eaCfg := evaluatealerts.DefaultConfig()
	eaCfg.Timeout = timeout(evaluatealerts.TaskType, eaCfg.Timeout)
	start(evaluatealerts.TaskType, evaluatealerts.NewHandler(eaCfg, svc, log).Handle)

	aaCfg := addapplicant.DefaultConfig()
	aaCfg.Timeout = timeout(addapplicant.TaskType, aaCfg.Timeout)
	start(addapplicant.TaskType, addapplicant.NewHandler(aaCfg, svc, log).Handle)

	uaCfg := updateapplicant.DefaultConfig()
	uaCfg.Timeout = timeout(updateapplicant.TaskType, uaCfg.Timeout)
	start(updateapplicant.TaskType, updateapplicant.NewHandler(uaCfg, svc, log).Handle)

	cdCfg := checkdocuments.DefaultConfig()
	cdCfg.Timeout = timeout(checkdocuments.TaskType, cdCfg.Timeout)
	start(checkdocuments.TaskType, checkdocuments.NewHandler(cdCfg, svc, log).Handle)

	sdCfg := sendalertdigest.DefaultConfig()
	sdCfg.Timeout = timeout(sendalertdigest.TaskType, sdCfg.Timeout)
	start(sendalertdigest.TaskType, sendalertdigest.NewHandler(sdCfg, svc, log).Handle)

	return started
}

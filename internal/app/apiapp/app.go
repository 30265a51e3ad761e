package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/frankbauer/media-rest-api/internal/config"
	s3infra "github.com/frankbauer/media-rest-api/internal/infra/s3"
	"github.com/frankbauer/media-rest-api/internal/jobs/reconcile"
	pgrepo "github.com/frankbauer/media-rest-api/internal/repo/postgres"
	redrepo "github.com/frankbauer/media-rest-api/internal/repo/redis"
	mediasvc "github.com/frankbauer/media-rest-api/internal/services/media"
	"github.com/frankbauer/media-rest-api/internal/services/records"
	"github.com/frankbauer/media-rest-api/internal/transport/http/handlers"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	backends   *backends
	httpRouter http.Handler

	stopJobs context.CancelFunc
	jobs     sync.WaitGroup
}

// backends holds the external clients. Any of them may be nil when its init
// failed; dependants then report the outage per request.
type backends struct {
	postgres *pgrepo.DB
	redis    *goredis.Client
	s3       *minio.Client

	mediaRepo *pgrepo.MediaRepo
	storage   *mediasvc.S3Storage
	orphans   *redrepo.OrphanRepo
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, cfg.HTTP.RequestTimeout)

	b := connect(ctx, cfg, log)

	validator, err := newValidator(cfg.Media)
	if err != nil {
		return nil, err
	}
	mediaService := mediasvc.NewService(b.mediaRepo, b.storage, validator, mediasvc.Config{
		Bucket:            cfg.S3.Bucket,
		MaxSize:           cfg.Media.MaxSizeBytes(),
		CompensateOrphans: cfg.Media.CompensateOrphans,
	}, log)
	if b.redis != nil {
		mediaService.AttachOrphanRecorder(b.orphans)
	} else {
		log.Warn("redis is not configured, orphaned media is only logged")
	}
	recordsService := records.NewService(pgrepo.NewRecordsRepo(b.postgres), log)

	RegisterRoutes(r, Dependencies{
		MediaService:   mediaService,
		RecordsService: recordsService,
		Readiness:      b.readinessChecks(cfg.S3.Bucket),
		Logger:         log,
		Config:         cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	app := &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		backends:   b,
		httpRouter: r,
	}
	app.startReconcile(cfg.Reconcile)

	return app, nil
}

// RunReconcileOnce drains one batch of the orphan ledger and exits.
func RunReconcileOnce(ctx context.Context, cfg config.Config, log *zap.Logger) (reconcile.Report, error) {
	if log == nil {
		return reconcile.Report{}, fmt.Errorf("logger is nil")
	}

	b := connect(ctx, cfg, log)
	defer b.close()

	if b.redis == nil {
		return reconcile.Report{}, fmt.Errorf("redis is required for reconcile")
	}
	return b.reconcileJob(cfg.Reconcile, log).Run(ctx)
}

func connect(ctx context.Context, cfg config.Config, log *zap.Logger) *backends {
	b := &backends{}

	if db, err := pgrepo.NewDB(ctx, pgrepo.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
		ConnectTimeout:  cfg.Postgres.ConnectTimeout,
		AcquireTimeout:  cfg.Postgres.AcquireTimeout,
	}); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		b.postgres = db
		if cfg.Postgres.Migrate {
			if err := pgrepo.Migrate(cfg.Postgres.DSN, log); err != nil {
				log.Warn("postgres migrations failed", zap.Error(err))
			}
		}
	}

	b.redis = redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	b.orphans = redrepo.NewOrphanRepo(b.redis, cfg.Redis.OrphanKey)

	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		b.s3 = c
	}

	b.mediaRepo = pgrepo.NewMediaRepo(b.postgres)
	b.storage = mediasvc.NewS3Storage(b.s3, cfg.S3.MaxConcurrency)
	return b
}

func newValidator(cfg config.MediaConfig) (mediasvc.ContentValidator, error) {
	switch cfg.Validator {
	case "", config.ValidatorExtension:
		return mediasvc.NewExtensionValidator(cfg.AllowedExtensions), nil
	case config.ValidatorSniff:
		return mediasvc.NewSniffingValidator(cfg.AllowedExtensions), nil
	default:
		return nil, fmt.Errorf("unknown media validator %q", cfg.Validator)
	}
}

// readinessChecks leaves Check nil for a backend that never initialised so
// /readyz reports it as down.
func (b *backends) readinessChecks(bucket string) []handlers.ReadinessCheck {
	checks := []handlers.ReadinessCheck{
		{Name: "postgres"},
		{Name: "s3"},
		{Name: "redis"},
	}
	if b.postgres != nil {
		checks[0].Check = b.postgres.Ping
	}
	if b.s3 != nil {
		checks[1].Check = func(ctx context.Context) error {
			return b.storage.Ping(ctx, bucket)
		}
	}
	if b.redis != nil {
		checks[2].Check = func(ctx context.Context) error {
			return b.redis.Ping(ctx).Err()
		}
	}
	return checks
}

func (b *backends) reconcileJob(cfg config.ReconcileConfig, log *zap.Logger) *reconcile.Job {
	return reconcile.New(b.orphans, b.mediaRepo, b.storage, cfg.BatchSize, log)
}

func (b *backends) close() error {
	b.postgres.Close()
	if b.redis != nil {
		return b.redis.Close()
	}
	return nil
}

func (a *App) startReconcile(cfg config.ReconcileConfig) {
	if cfg.Interval <= 0 || a.backends.redis == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopJobs = cancel
	job := a.backends.reconcileJob(cfg, a.logger)

	a.jobs.Add(1)
	go func() {
		defer a.jobs.Done()
		job.RunEvery(ctx, cfg.Interval)
	}()
	a.logger.Info("reconcile loop started", zap.Duration("interval", cfg.Interval))
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.stopJobs != nil {
		a.stopJobs()
		a.jobs.Wait()
	}
	if err := a.backends.close(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	"github.com/fredericlb/BespokeSynthPatches/internal/domain/actiontoken"
	"github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/analyzer"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/auth"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/crontab"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/database"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/imaging"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/logger"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/notifier"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/observability"
	tokenrepo "github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/repository/actiontoken"
	patchrepo "github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/repository/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/storage"
	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver"
	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver/handlers"
)

type Application struct {
	cfg        *config.Config
	httpServer *httpserver.HttpServer
	queue      *notifier.Queue
	crontab    *crontab.Crontab
	log        zerolog.Logger
}

func NewApplication(cfg *config.Config, httpServer *httpserver.HttpServer, queue *notifier.Queue, crontab *crontab.Crontab, log zerolog.Logger) *Application {
	return &Application{
		cfg:        cfg,
		httpServer: httpServer,
		queue:      queue,
		crontab:    crontab,
		log:        log,
	}
}

// Start runs the notifier workers, the maintenance jobs and the HTTP server
// until ctx is cancelled, then drains pending notifications.
func (a *Application) Start(ctx context.Context) error {
	a.queue.Start(ctx)
	go func() {
		if err := a.crontab.Run(ctx); err != nil {
			a.log.Error().Err(err).Msg("crontab stopped")
		}
	}()

	runErr := a.httpServer.Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.queue.Close(drainCtx); err != nil {
		a.log.Warn().Err(err).Msg("notifications still queued at shutdown")
	}
	return runErr
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := newGormDB(ctx, newDatabaseConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	staging, err := storage.NewLocalStorage(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize staging storage")
	}
	mirror, err := storage.NewS3Mirror(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize s3 mirror")
	}

	patchRepository, err := providePatchRepository(cfg, patchrepo.NewRepository(db), log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize patch repository")
	}
	tokenService := provideTokenService(cfg, tokenrepo.NewRepository(db), log)
	queue := notifier.NewQueue(cfg, notifier.NewSender(cfg, log), log)

	patchService := patch.NewService(
		cfg,
		patchRepository,
		staging,
		analyzer.NewAnalyzer(cfg, log),
		imaging.NewDeriver(log),
		tokenService,
		auth.NewModerationSigner(cfg),
		queue,
		mirror,
		log,
	)

	provider := handlers.NewProvider(cfg, patchService, tokenService, provideHealthChecks(db, staging, mirror), log)
	app := NewApplication(cfg, httpserver.New(cfg, log, provider), queue, crontab.NewCrontab(cfg, tokenService, log), log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	dbCfg := database.ConfigFromService(cfg)
	dbCfg.LogLevel = gormlogger.Warn
	return dbCfg
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

// providePatchRepository puts the approved-record cache in front of the database.
func providePatchRepository(cfg *config.Config, repo *patchrepo.Repository, log zerolog.Logger) (patch.Repository, error) {
	if cfg.ApprovedCacheSize <= 0 {
		return repo, nil
	}
	return patchrepo.NewCachedRepository(repo, cfg.ApprovedCacheSize, log)
}

func provideTokenService(cfg *config.Config, repo *tokenrepo.Repository, log zerolog.Logger) *actiontoken.Service {
	return actiontoken.NewService(repo, log, actiontoken.WithTTL(cfg.ActionTokenTTL))
}

func provideHealthChecks(db *gorm.DB, staging *storage.LocalStorage, mirror *storage.S3Mirror) map[string]handlers.HealthCheck {
	return map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error { return database.Ping(db) },
		"storage":  staging.Health,
		"mirror":   mirror.Health,
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}

//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	"github.com/fredericlb/BespokeSynthPatches/internal/domain/actiontoken"
	"github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/analyzer"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/auth"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/crontab"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/imaging"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/logger"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/notifier"
	tokenrepo "github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/repository/actiontoken"
	patchrepo "github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/repository/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/storage"
	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver"
	"github.com/fredericlb/BespokeSynthPatches/internal/interfaces/httpserver/handlers"
)

var tokenSet = wire.NewSet(
	tokenrepo.NewRepository,
	provideTokenService,
	wire.Bind(new(patch.TokenRegistry), new(*actiontoken.Service)),
	wire.Bind(new(handlers.TokenService), new(*actiontoken.Service)),
	wire.Bind(new(crontab.TokenPurger), new(*actiontoken.Service)),
	crontab.NewCrontab,
)

var patchSet = wire.NewSet(
	patchrepo.NewRepository,
	providePatchRepository,
	storage.NewLocalStorage,
	wire.Bind(new(patch.Staging), new(*storage.LocalStorage)),
	storage.NewS3Mirror,
	wire.Bind(new(patch.Mirror), new(*storage.S3Mirror)),
	analyzer.NewAnalyzer,
	wire.Bind(new(patch.ManifestExtractor), new(*analyzer.Analyzer)),
	imaging.NewDeriver,
	wire.Bind(new(patch.AssetDeriver), new(*imaging.Deriver)),
	auth.NewModerationSigner,
	wire.Bind(new(patch.ModerationAuthorizer), new(*auth.ModerationSigner)),
	notifier.NewSender,
	notifier.NewQueue,
	wire.Bind(new(patch.Notifier), new(*notifier.Queue)),
	patch.NewService,
	wire.Bind(new(handlers.PatchService), new(*patch.Service)),
)

// BuildApplication assembles the patches API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		tokenSet,
		patchSet,
		provideHealthChecks,
		handlers.NewProvider,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

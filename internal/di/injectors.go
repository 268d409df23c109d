//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"publishd/internal"
	"publishd/internal/archival"
	"publishd/internal/controllers"
	"publishd/internal/deploy"
	"publishd/internal/providers"
	"publishd/internal/scheduler"
	"publishd/internal/services"
	"publishd/internal/structures"
)

var baseSet = wire.NewSet(
	providers.NewConfigProvider,
	providers.NewLogProvider,
	providers.NewMetricsProvider,
)

var archivalSet = wire.NewSet(
	providers.NewDatabaseProvider,
	providers.NewInstrumentedCacheProvider,
	archival.NewGormEntitySource,
	archival.NewChecksumComputer,
	provideArchiveStore,
	provideChangeDetector,
	archival.NewZstdCompressor,
	archival.NewSnapshotWriter,
	archival.NewBuildAssetResolver,
	archival.NewGitProvenance,
	archival.NewManifestAssembler,
	services.NewArchivalService,
)

var deploySet = wire.NewSet(
	deploy.NewDeployQueue,
	deploy.NewSiteBaker,
	deploy.NewLogAlerter,
	deploy.NewOrchestrator,
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		baseSet,
		archivalSet,
		deploySet,

		deploy.NewQueueWatcher,
		scheduler.NewScheduler,
		controllers.NewApiController,
		controllers.NewDeployController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}

func InitArchival(cfg *structures.CliFlags) (services.ArchivalServiceInterface, error) {

	wire.Build(
		baseSet,
		archivalSet,
	)

	return nil, nil
}

func InitDeploy(cfg *structures.CliFlags) (*DeployTasks, error) {

	wire.Build(
		baseSet,
		deploySet,
		wire.Struct(new(DeployTasks), "*"),
	)

	return nil, nil
}

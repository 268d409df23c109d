package di

import (
	"publishd/internal/archival"
	"publishd/internal/archival/interfaces"
	"publishd/internal/deploy"
	"publishd/internal/providers"
	"publishd/internal/structures"

	"gorm.io/gorm"
)

// DeployTasks bundles what the one-shot deploy and enqueue commands drive.
type DeployTasks struct {
	Logger       providers.Logger
	Queue        deploy.DeployQueueInterface
	Orchestrator deploy.OrchestratorInterface
}

func provideArchiveStore(db *gorm.DB, conf *structures.Config) interfaces.ArchiveStoreInterface {
	return archival.NewGormArchiveStore(db, conf.Archive.BatchSize)
}

func provideChangeDetector(computer interfaces.ChecksumComputerInterface, store interfaces.ArchiveStoreInterface, logger providers.Logger, conf *structures.Config) interfaces.ChangeDetectorInterface {
	return archival.NewChangeDetector(computer, store, logger, conf.Archive.Concurrency)
}

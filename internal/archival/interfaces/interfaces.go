package interfaces

import (
	"context"
	"publishd/internal/models"
	"time"
)

type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	Close()
}

// EntitySourceInterface reads publishable entities and indicator checksums.
type EntitySourceInterface interface {
	ListPublished(ctx context.Context) ([]models.EntityRef, error)
	EntityDefinition(ctx context.Context, ref models.EntityRef) (*models.EntityDefinition, error)
	IndicatorChecksums(ctx context.Context, ids []int) ([]models.IndicatorChecksum, error)
}

type ChecksumComputerInterface interface {
	Compute(ctx context.Context, ref models.EntityRef) (*models.EntityChecksums, error)
}

// ArchiveStoreInterface is the archive index and its append-only writer.
type ArchiveStoreInterface interface {
	HasHashes(ctx context.Context, hashes []string) (map[string]bool, error)
	Latest(ctx context.Context, ref models.EntityRef) (*models.ArchiveVersion, error)
	Versions(ctx context.Context, ref models.EntityRef) ([]models.ArchiveVersion, error)
	Persist(ctx context.Context, versions []models.ArchiveVersion) error
}

type ChangeDetectorInterface interface {
	FindChangedEntities(ctx context.Context, universe []models.EntityRef) (*models.ChangeSet, error)
}

type AssetResolverInterface interface {
	Resolve(ctx context.Context, candidate models.ArchivalCandidate) (models.ManifestAssets, error)
}

type ProvenanceInterface interface {
	CommitShas(ctx context.Context) map[string]string
}

type ManifestAssemblerInterface interface {
	NewRun(ctx context.Context, now time.Time) *models.ArchivalRun
	Assemble(candidate models.ArchivalCandidate, assets models.ManifestAssets, run *models.ArchivalRun) (*models.ArchivalManifest, error)
	Version(candidate models.ArchivalCandidate, manifest *models.ArchivalManifest, run *models.ArchivalRun) (models.ArchiveVersion, error)
}

type SnapshotWriterInterface interface {
	Save(ref models.EntityRef, manifest *models.ArchivalManifest) (string, error)
	Load(path string) (*models.ArchivalManifest, error)
}

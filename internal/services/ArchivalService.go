package services

import (
	"context"
	"errors"
	"fmt"
	"publishd/internal/archival"
	"publishd/internal/archival/interfaces"
	"publishd/internal/models"
	"publishd/internal/providers"
	"time"

	"go.uber.org/atomic"
)

var ErrArchivalRunning = errors.New("archival run already in progress")

type ArchivalServiceInterface interface {
	Run(ctx context.Context) (*models.ArchivalRunResult, error)
	IsRunning() bool
	Latest(ctx context.Context, ref models.EntityRef) (*models.ArchiveVersion, error)
	Versions(ctx context.Context, ref models.EntityRef) ([]models.ArchiveVersion, error)
}

type ArchivalService struct {
	source    interfaces.EntitySourceInterface
	detector  interfaces.ChangeDetectorInterface
	resolver  interfaces.AssetResolverInterface
	assembler interfaces.ManifestAssemblerInterface
	snapshots interfaces.SnapshotWriterInterface
	store     interfaces.ArchiveStoreInterface
	cache     providers.CacheProviderInterface
	metrics   providers.MetricsProviderInterface
	logger    providers.Logger

	running atomic.Bool
	now     func() time.Time
}

func NewArchivalService(
	source interfaces.EntitySourceInterface,
	detector interfaces.ChangeDetectorInterface,
	resolver interfaces.AssetResolverInterface,
	assembler interfaces.ManifestAssemblerInterface,
	snapshots interfaces.SnapshotWriterInterface,
	store interfaces.ArchiveStoreInterface,
	cache providers.CacheProviderInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) ArchivalServiceInterface {
	return &ArchivalService{
		source:    source,
		detector:  detector,
		resolver:  resolver,
		assembler: assembler,
		snapshots: snapshots,
		store:     store,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ArchivalService) IsRunning() bool {
	return s.running.Load()
}

// Run archives every published entity whose inputs are not in the archive yet.
// Only one run executes at a time; a concurrent call gets ErrArchivalRunning.
func (s *ArchivalService) Run(ctx context.Context) (*models.ArchivalRunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrArchivalRunning
	}
	defer s.running.Store(false)

	start := s.now()
	universe, err := s.source.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing published entities: %w", err)
	}

	set, err := s.detector.FindChangedEntities(ctx, universe)
	if err != nil {
		return nil, err
	}

	run := s.assembler.NewRun(ctx, start)
	result := &models.ArchivalRunResult{
		ArchivalDate: run.Date,
		Scanned:      len(universe),
		Unchanged:    len(set.Unchanged),
		Failed:       set.Failed,
	}

	versions := make([]models.ArchiveVersion, 0, len(set.NeedsArchiving))
	archived := make([]models.EntityRef, 0, len(set.NeedsArchiving))
	for _, candidate := range set.NeedsArchiving {
		version, err := s.prepare(ctx, candidate, run, result)
		if err != nil {
			s.logger.Warnf(providers.TypeArchive, "Skipping %s: %s", candidate.Entity, err)
			result.Failed = append(result.Failed, models.EntityFailure{Entity: candidate.Entity, Error: err.Error()})
			continue
		}
		versions = append(versions, version)
		archived = append(archived, candidate.Entity)
	}

	if err := s.store.Persist(ctx, versions); err != nil {
		return nil, fmt.Errorf("persisting %d archive versions: %w", len(versions), err)
	}
	result.Archived = archived
	if len(versions) > 0 {
		s.cache.Purge()
	}

	result.Duration = s.now().Sub(start)
	s.record(result)
	s.logger.Infof(providers.TypeArchive, "Archival %s: %d scanned, %d unchanged, %d archived, %d failed in %s",
		result.ArchivalDate, result.Scanned, result.Unchanged, len(result.Archived), len(result.Failed), result.Duration)
	return result, nil
}

func (s *ArchivalService) prepare(ctx context.Context, candidate models.ArchivalCandidate, run *models.ArchivalRun, result *models.ArchivalRunResult) (models.ArchiveVersion, error) {
	assets, err := s.resolver.Resolve(ctx, candidate)
	if err != nil {
		return models.ArchiveVersion{}, fmt.Errorf("resolving assets: %w", err)
	}
	manifest, err := s.assembler.Assemble(candidate, assets, run)
	if err != nil {
		return models.ArchiveVersion{}, err
	}

	// The snapshot file is a convenience copy; the database row is authoritative.
	if _, err := s.snapshots.Save(candidate.Entity, manifest); err == nil {
		result.Snapshots++
	} else if !errors.Is(err, archival.ErrSnapshotsDisabled) {
		s.logger.Warnf(providers.TypeArchive, "Snapshot of %s not written: %s", candidate.Entity, err)
	}

	return s.assembler.Version(candidate, manifest, run)
}

func (s *ArchivalService) record(result *models.ArchivalRunResult) {
	s.metrics.ObserveArchivalDuration(result.Duration)
	archived := map[models.EntityKind]int{}
	for _, e := range result.Archived {
		archived[e.Kind]++
	}
	failed := map[models.EntityKind]int{}
	for _, f := range result.Failed {
		failed[f.Entity.Kind]++
	}
	for kind, n := range archived {
		s.metrics.AddArchivedVersions(string(kind), n)
	}
	for kind, n := range failed {
		s.metrics.AddArchivalFailures(string(kind), n)
	}
}

func (s *ArchivalService) Latest(ctx context.Context, ref models.EntityRef) (*models.ArchiveVersion, error) {
	return s.store.Latest(ctx, ref)
}

func (s *ArchivalService) Versions(ctx context.Context, ref models.EntityRef) ([]models.ArchiveVersion, error) {
	return s.store.Versions(ctx, ref)
}

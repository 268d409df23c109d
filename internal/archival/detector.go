package archival

import (
	"context"
	"fmt"
	"publishd/internal/archival/interfaces"
	"publishd/internal/models"
	"publishd/internal/providers"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

type ChangeDetector struct {
	computer    interfaces.ChecksumComputerInterface
	store       interfaces.ArchiveStoreInterface
	logger      providers.Logger
	concurrency int
}

func NewChangeDetector(computer interfaces.ChecksumComputerInterface, store interfaces.ArchiveStoreInterface, logger providers.Logger, concurrency int) interfaces.ChangeDetectorInterface {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &ChangeDetector{
		computer:    computer,
		store:       store,
		logger:      logger,
		concurrency: concurrency,
	}
}

type scanResult struct {
	candidate models.ArchivalCandidate
	err       error
}

// FindChangedEntities splits universe by whether each entity's input hash is
// already archived. Entities whose checksums cannot be computed are reported
// in Failed and do not stop the scan. Only a failing archive lookup aborts.
func (d *ChangeDetector) FindChangedEntities(ctx context.Context, universe []models.EntityRef) (*models.ChangeSet, error) {
	results := make([]scanResult, len(universe))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, ref := range universe {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.scan(gctx, ref)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := &models.ChangeSet{}
	hashes := make([]string, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			d.logger.Warnf(providers.TypeArchive, "Skipping %s: %s", r.candidate.Entity, r.err)
			set.Failed = append(set.Failed, models.EntityFailure{Entity: r.candidate.Entity, Error: r.err.Error()})
			continue
		}
		hashes = append(hashes, r.candidate.Hash)
	}

	present, err := d.store.HasHashes(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("change detection aborted: %w", err)
	}

	for _, r := range results {
		if r.err != nil {
			continue
		}
		if present[r.candidate.Hash] {
			set.Unchanged = append(set.Unchanged, r.candidate)
		} else {
			set.NeedsArchiving = append(set.NeedsArchiving, r.candidate)
		}
	}

	d.logger.Infof(providers.TypeArchive, "Change detection: %d scanned, %d unchanged, %d to archive, %d failed",
		len(universe), len(set.Unchanged), len(set.NeedsArchiving), len(set.Failed))
	return set, nil
}

func (d *ChangeDetector) scan(ctx context.Context, ref models.EntityRef) scanResult {
	checksums, err := d.computer.Compute(ctx, ref)
	if err != nil {
		return scanResult{candidate: models.ArchivalCandidate{Entity: ref}, err: err}
	}
	hash, err := HashChecksums(checksums)
	if err != nil {
		return scanResult{candidate: models.ArchivalCandidate{Entity: ref}, err: err}
	}
	entity := checksums.Entity
	if entity.Kind == "" {
		entity = ref
	}
	return scanResult{candidate: models.ArchivalCandidate{Entity: entity, Checksums: checksums, Hash: hash}}
}

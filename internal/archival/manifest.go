package archival

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"publishd/internal/archival/interfaces"
	"publishd/internal/models"
	"time"

	json "github.com/goccy/go-json"
	"gorm.io/datatypes"
)

type ManifestAssembler struct {
	provenance interfaces.ProvenanceInterface
}

func NewManifestAssembler(provenance interfaces.ProvenanceInterface) interfaces.ManifestAssemblerInterface {
	return &ManifestAssembler{provenance: provenance}
}

// NewRun fixes the archival timestamp and source revisions shared by every
// manifest of one run.
func (m *ManifestAssembler) NewRun(ctx context.Context, now time.Time) *models.ArchivalRun {
	ts := now.UTC().Truncate(time.Second)
	return &models.ArchivalRun{
		Timestamp:  ts,
		Date:       ts.Format(models.ArchivalDateFormat),
		CommitShas: m.provenance.CommitShas(ctx),
	}
}

func (m *ManifestAssembler) Assemble(candidate models.ArchivalCandidate, assets models.ManifestAssets, run *models.ArchivalRun) (*models.ArchivalManifest, error) {
	if candidate.Checksums == nil || candidate.Hash == "" {
		return nil, fmt.Errorf("%s has no computed checksums", candidate.Entity)
	}
	if run == nil {
		return nil, errors.New("archival run not started")
	}

	manifest := &models.ArchivalManifest{
		ArchivalDate:    run.Date,
		ChecksumsHashed: candidate.Hash,
		Checksums:       candidate.Checksums,
		Assets: models.ManifestAssets{
			Static:  orEmpty(assets.Static),
			Runtime: orEmpty(assets.Runtime),
		},
		CommitShas: maps.Clone(run.CommitShas),
	}
	if manifest.CommitShas == nil {
		manifest.CommitShas = map[string]string{}
	}

	e := candidate.Entity
	switch e.Kind {
	case models.KindChart:
		manifest.ChartID, manifest.ChartSlug = e.ID, e.Slug
	case models.KindMultiDim:
		manifest.MultiDimID, manifest.MultiDimSlug = e.ID, e.Slug
	case models.KindExplorer:
		manifest.ExplorerSlug = e.Slug
	default:
		return nil, fmt.Errorf("unknown entity kind %q", e.Kind)
	}
	return manifest, nil
}

// Version wraps a manifest into the archive row written for it.
func (m *ManifestAssembler) Version(candidate models.ArchivalCandidate, manifest *models.ArchivalManifest, run *models.ArchivalRun) (models.ArchiveVersion, error) {
	data, err := json.Marshal(manifest)
	if err != nil {
		return models.ArchiveVersion{}, fmt.Errorf("encoding manifest of %s: %w", candidate.Entity, err)
	}
	return models.ArchiveVersion{
		EntityKind:        candidate.Entity.Kind,
		EntityID:          candidate.Entity.Key(),
		EntitySlug:        candidate.Entity.Slug,
		ArchivalTimestamp: run.Timestamp,
		HashOfInputs:      candidate.Hash,
		Manifest:          datatypes.JSON(data),
	}, nil
}

func orEmpty(m models.AssetMap) models.AssetMap {
	if m == nil {
		return models.AssetMap{}
	}
	return m
}

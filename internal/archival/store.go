package archival

import (
	"context"
	"errors"
	"fmt"
	"publishd/internal/archival/interfaces"
	"publishd/internal/models"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultBatchSize = 200
	hashQueryChunk   = 500
)

var ErrNotFound = errors.New("no archived version")

// GormArchiveStore keeps archived_versions append-only and maintains
// archived_latest_versions in the same transaction as every insert.
type GormArchiveStore struct {
	db        *gorm.DB
	batchSize int
}

func NewGormArchiveStore(db *gorm.DB, batchSize int) interfaces.ArchiveStoreInterface {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &GormArchiveStore{db: db, batchSize: batchSize}
}

// HasHashes reports which of hashes exist anywhere in the archive,
// regardless of the entity they were archived for.
func (s *GormArchiveStore) HasHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	unique := slices.Clone(hashes)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	present := make(map[string]bool, len(unique))
	for start := 0; start < len(unique); start += hashQueryChunk {
		end := min(start+hashQueryChunk, len(unique))
		var found []string
		err := s.db.WithContext(ctx).
			Model(&models.ArchiveVersion{}).
			Distinct().
			Where("hash_of_inputs IN ?", unique[start:end]).
			Pluck("hash_of_inputs", &found).Error
		if err != nil {
			return nil, fmt.Errorf("looking up archived hashes: %w", err)
		}
		for _, h := range found {
			present[h] = true
		}
	}
	return present, nil
}

func (s *GormArchiveStore) Latest(ctx context.Context, ref models.EntityRef) (*models.ArchiveVersion, error) {
	db := s.db.WithContext(ctx)

	var latest models.LatestArchiveVersion
	err := db.Where("entity_kind = ? AND entity_id = ?", ref.Kind, ref.Key()).Take(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var version models.ArchiveVersion
	if err := db.Take(&version, latest.VersionID).Error; err != nil {
		return nil, fmt.Errorf("loading version %d of %s: %w", latest.VersionID, ref, err)
	}
	return &version, nil
}

func (s *GormArchiveStore) Versions(ctx context.Context, ref models.EntityRef) ([]models.ArchiveVersion, error) {
	var versions []models.ArchiveVersion
	err := s.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ?", ref.Kind, ref.Key()).
		Order("archival_timestamp, id").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// Persist inserts versions in batches and assigns their IDs. An empty list
// is a no-op.
// Existing rows are never updated or deleted.
func (s *GormArchiveStore) Persist(ctx context.Context, versions []models.ArchiveVersion) error {
	if len(versions) == 0 {
		return nil
	}
	for i := range versions {
		versions[i].ID = 0
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&versions, s.batchSize).Error; err != nil {
			return fmt.Errorf("inserting archive versions: %w", err)
		}

		latest := latestPerEntity(versions)
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_kind"}, {Name: "entity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"version_id", "archival_timestamp", "hash_of_inputs"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "archived_latest_versions.archival_timestamp <= excluded.archival_timestamp"},
			}},
		}).CreateInBatches(&latest, s.batchSize).Error
		if err != nil {
			return fmt.Errorf("updating latest versions: %w", err)
		}
		return nil
	})
}

// latestPerEntity keeps the newest row per entity; later rows win ties.
func latestPerEntity(versions []models.ArchiveVersion) []models.LatestArchiveVersion {
	type key struct {
		kind models.EntityKind
		id   string
	}
	index := make(map[key]int)
	var out []models.LatestArchiveVersion
	for _, v := range versions {
		row := models.LatestArchiveVersion{
			EntityKind:        v.EntityKind,
			EntityID:          v.EntityID,
			VersionID:         v.ID,
			ArchivalTimestamp: v.ArchivalTimestamp,
			HashOfInputs:      v.HashOfInputs,
		}
		k := key{v.EntityKind, v.EntityID}
		if i, ok := index[k]; ok {
			if !v.ArchivalTimestamp.Before(out[i].ArchivalTimestamp) {
				out[i] = row
			}
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	return out
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// ArchivalDateFormat is the layout of archival dates in manifests and snapshot paths.
const ArchivalDateFormat = "20060102-150405"

// ArchiveVersion is one immutable archived rendering of an entity.
// Rows are only ever inserted.
type ArchiveVersion struct {
	ID                uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityKind        EntityKind     `gorm:"size:16;not null;index:idx_archived_versions_entity" json:"entityKind"`
	EntityID          string         `gorm:"size:255;not null;index:idx_archived_versions_entity" json:"entityId"`
	EntitySlug        string         `gorm:"size:512" json:"entitySlug"`
	ArchivalTimestamp time.Time      `gorm:"not null;index" json:"archivalTimestamp"`
	HashOfInputs      string         `gorm:"size:64;not null;index" json:"hashOfInputs"`
	Manifest          datatypes.JSON `json:"manifest"`
}

func (ArchiveVersion) TableName() string {
	return "archived_versions"
}

// LatestArchiveVersion points at the newest ArchiveVersion of one entity.
// It is written in the same transaction as the version rows.
type LatestArchiveVersion struct {
	EntityKind        EntityKind `gorm:"primaryKey;size:16"`
	EntityID          string     `gorm:"primaryKey;size:255"`
	VersionID         uint       `gorm:"not null"`
	ArchivalTimestamp time.Time  `gorm:"not null"`
	HashOfInputs      string     `gorm:"size:64;not null"`
}

func (LatestArchiveVersion) TableName() string {
	return "archived_latest_versions"
}

type AssetMap map[string]string

type ManifestAssets struct {
	Static  AssetMap `json:"static"`
	Runtime AssetMap `json:"runtime"`
}

type ArchivalManifest struct {
	ArchivalDate    string            `json:"archivalDate"`
	ChecksumsHashed string            `json:"checksumsHashed"`
	Checksums       *EntityChecksums  `json:"checksums"`
	Assets          ManifestAssets    `json:"assets"`
	CommitShas      map[string]string `json:"commitShas"`

	ChartID      int    `json:"chartId,omitempty"`
	ChartSlug    string `json:"chartSlug,omitempty"`
	MultiDimID   int    `json:"multiDimId,omitempty"`
	MultiDimSlug string `json:"multiDimSlug,omitempty"`
	ExplorerSlug string `json:"explorerSlug,omitempty"`
}

type EntityFailure struct {
	Entity EntityRef `json:"entity"`
	Error  string    `json:"error"`
}

type ArchivalRunResult struct {
	ArchivalDate string          `json:"archivalDate"`
	Scanned      int             `json:"scanned"`
	Unchanged    int             `json:"unchanged"`
	Archived     []EntityRef     `json:"archived"`
	Failed       []EntityFailure `json:"failed"`
	Snapshots    int             `json:"snapshots"`
	Duration     time.Duration   `json:"duration"`
}

// ArchivalCandidate is an entity with its computed checksums and their hash.
type ArchivalCandidate struct {
	Entity    EntityRef
	Checksums *EntityChecksums
	Hash      string
}

type ChangeSet struct {
	Unchanged      []ArchivalCandidate
	NeedsArchiving []ArchivalCandidate
	Failed         []EntityFailure
}

// ArchivalRun carries values fixed once per run.
type ArchivalRun struct {
	Timestamp  time.Time
	Date       string
	CommitShas map[string]string
}

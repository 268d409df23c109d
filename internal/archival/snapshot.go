package archival

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"publishd/internal/archival/interfaces"
	"publishd/internal/fileutil"
	"publishd/internal/models"
	"publishd/internal/providers"
	"publishd/internal/structures"

	json "github.com/goccy/go-json"
)

const snapshotExt = ".manifest.json.zst"

var (
	ErrSnapshotsDisabled = errors.New("snapshot export disabled")
	ErrUnsafeSnapshotKey = errors.New("entity key is not a safe file name")
)

// SnapshotWriter exports manifests as compressed files laid out as
// <dir>/<archivalDate>/<kind>/<entityId>.manifest.json.zst.
type SnapshotWriter struct {
	dir        string
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewSnapshotWriter(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) interfaces.SnapshotWriterInterface {
	return &SnapshotWriter{
		dir:        conf.Archive.SnapshotDir,
		compressor: compressor,
		logger:     logger,
	}
}

func (s *SnapshotWriter) Path(ref models.EntityRef, archivalDate string) string {
	return filepath.Join(s.dir, archivalDate, string(ref.Kind), ref.Key()+snapshotExt)
}

func (s *SnapshotWriter) Save(ref models.EntityRef, manifest *models.ArchivalManifest) (string, error) {
	if s.dir == "" {
		return "", ErrSnapshotsDisabled
	}

	jsonData, err := json.Marshal(manifest)
	if err != nil {
		return "", err
	}
	data, err := s.compressor.Compress(jsonData)
	if err != nil {
		return "", err
	}

	if !safeFileName(ref.Key()) || !safeFileName(manifest.ArchivalDate) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeSnapshotKey, ref)
	}

	fileName := s.Path(ref, manifest.ArchivalDate)
	if err := fileutil.WriteFileAtomic(fileName, data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot of %s: %w", ref, err)
	}
	s.logger.Debugf(providers.TypeArchive, "Snapshot written: %s", fileName)
	return fileName, nil
}

func (s *SnapshotWriter) Load(fileName string) (*models.ArchivalManifest, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	decompressed, err := s.compressor.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", fileName, err)
	}
	var manifest models.ArchivalManifest
	if err := json.Unmarshal(decompressed, &manifest); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", fileName, err)
	}
	return &manifest, nil
}

// safeFileName rejects names that would escape their parent directory.
func safeFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

package testutil

import (
	"context"
	"fmt"
	"publishd/internal/models"
	"publishd/internal/providers"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu     sync.Mutex
	Data   map[string][]byte
	Purges int
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data = make(map[string][]byte)
	m.Purges++
}

// MockMetrics implements providers.MetricsProviderInterface and counts the
// domain events it sees.
type MockMetrics struct {
	mu               sync.Mutex
	Bakes            map[string]int
	Alerts           int
	QueueDepth       int
	ArchivedVersions map[string]int
	ArchivalFailures map[string]int
	ArchivalRuns     int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Bakes:            map[string]int{},
		ArchivedVersions: map[string]int{},
		ArchivalFailures: map[string]int{},
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits()                                    {}
func (m *MockMetrics) IncCacheMisses()                                  {}
func (m *MockMetrics) ObserveBakeDuration(_ string, _ time.Duration)    {}

func (m *MockMetrics) IncBakes(kind string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bakes[fmt.Sprintf("%s:%t", kind, success)]++
}

func (m *MockMetrics) IncDeployAlerts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts++
}

func (m *MockMetrics) SetQueueDepth(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueueDepth = count
}

func (m *MockMetrics) ObserveArchivalDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArchivalRuns++
}

func (m *MockMetrics) AddArchivedVersions(kind string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArchivedVersions[kind] += count
}

func (m *MockMetrics) AddArchivalFailures(kind string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArchivalFailures[kind] += count
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// FakeEntitySource is an in-memory interfaces.EntitySourceInterface.
type FakeEntitySource struct {
	mu          sync.Mutex
	Universe    []models.EntityRef
	Definitions map[string]*models.EntityDefinition // key: EntityRef.String()
	Indicators  map[int]models.IndicatorChecksum
	ListErr     error
	FetchErr    error
	Fetches     int
}

func NewFakeEntitySource() *FakeEntitySource {
	return &FakeEntitySource{
		Definitions: map[string]*models.EntityDefinition{},
		Indicators:  map[int]models.IndicatorChecksum{},
	}
}

// AddEntity registers a published entity with its config checksum and indicator references.
func (f *FakeEntitySource) AddEntity(ref models.EntityRef, configChecksum string, indicatorIDs ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Universe = append(f.Universe, ref)
	f.Definitions[ref.String()] = &models.EntityDefinition{
		Entity:         ref,
		ConfigChecksum: configChecksum,
		IndicatorIDs:   indicatorIDs,
	}
}

func (f *FakeEntitySource) SetIndicator(id int, metadataChecksum, dataChecksum string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Indicators[id] = models.IndicatorChecksum{IndicatorID: id, MetadataChecksum: metadataChecksum, DataChecksum: dataChecksum}
}

func (f *FakeEntitySource) SetConfigChecksum(ref models.EntityRef, checksum string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Definitions[ref.String()].ConfigChecksum = checksum
}

func (f *FakeEntitySource) ListPublished(_ context.Context) ([]models.EntityRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]models.EntityRef(nil), f.Universe...), nil
}

func (f *FakeEntitySource) EntityDefinition(_ context.Context, ref models.EntityRef) (*models.EntityDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	def, ok := f.Definitions[ref.String()]
	if !ok {
		return nil, fmt.Errorf("%s not found", ref)
	}
	cp := *def
	cp.IndicatorIDs = append([]int(nil), def.IndicatorIDs...)
	return &cp, nil
}

func (f *FakeEntitySource) IndicatorChecksums(_ context.Context, ids []int) ([]models.IndicatorChecksum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fetches++
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	var out []models.IndicatorChecksum
	for _, id := range ids {
		if ind, ok := f.Indicators[id]; ok {
			out = append(out, ind)
		}
	}
	return out, nil
}

// MockArchiveStore implements interfaces.ArchiveStoreInterface in memory.
type MockArchiveStore struct {
	mu          sync.Mutex
	Rows        []models.ArchiveVersion
	HasHashesFn func(hashes []string) (map[string]bool, error)
	PersistFn   func(versions []models.ArchiveVersion) error
	nextID      uint
}

func (m *MockArchiveStore) HasHashes(_ context.Context, hashes []string) (map[string]bool, error) {
	if m.HasHashesFn != nil {
		return m.HasHashesFn(hashes)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	present := map[string]bool{}
	for _, row := range m.Rows {
		for _, h := range hashes {
			if row.HashOfInputs == h {
				present[h] = true
			}
		}
	}
	return present, nil
}

func (m *MockArchiveStore) Latest(_ context.Context, ref models.EntityRef) (*models.ArchiveVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.ArchiveVersion
	for i := range m.Rows {
		row := &m.Rows[i]
		if row.EntityKind != ref.Kind || row.EntityID != ref.Key() {
			continue
		}
		if latest == nil || !row.ArchivalTimestamp.Before(latest.ArchivalTimestamp) {
			latest = row
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%s: no archived version", ref)
	}
	cp := *latest
	return &cp, nil
}

func (m *MockArchiveStore) Versions(_ context.Context, ref models.EntityRef) ([]models.ArchiveVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ArchiveVersion
	for _, row := range m.Rows {
		if row.EntityKind == ref.Kind && row.EntityID == ref.Key() {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *MockArchiveStore) Persist(_ context.Context, versions []models.ArchiveVersion) error {
	if m.PersistFn != nil {
		return m.PersistFn(versions)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range versions {
		m.nextID++
		versions[i].ID = m.nextID
		m.Rows = append(m.Rows, versions[i])
	}
	return nil
}

// MockProvenance implements interfaces.ProvenanceInterface.
type MockProvenance struct {
	Shas  map[string]string
	Calls int
}

func (m *MockProvenance) CommitShas(_ context.Context) map[string]string {
	m.Calls++
	return m.Shas
}

// MockBaker implements deploy.BakerInterface with an injectable BakeFn.
type MockBaker struct {
	mu     sync.Mutex
	BakeFn func(ctx context.Context, commitMessage string, lightning []models.DeployChange) error
	Calls  []BakeCall
}

type BakeCall struct {
	CommitMessage string
	Lightning     []models.DeployChange
}

func (m *MockBaker) BakeAndDeploy(ctx context.Context, commitMessage string, lightning []models.DeployChange) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, BakeCall{CommitMessage: commitMessage, Lightning: lightning})
	fn := m.BakeFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, commitMessage, lightning)
	}
	return nil
}

func (m *MockBaker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockBaker) LastCall() BakeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return BakeCall{}
	}
	return m.Calls[len(m.Calls)-1]
}

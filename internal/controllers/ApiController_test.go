package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"publishd/internal/archival"
	"publishd/internal/models"
	"publishd/internal/providers"
	"publishd/internal/services"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- local mocks (scoped to controller tests) ---

type mockLogger struct{}

func (m *mockLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *mockLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *mockLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Close()                                                  {}

type mockArchivalService struct {
	runResult   *models.ArchivalRunResult
	runErr      error
	running     bool
	versions    map[string][]models.ArchiveVersion
	lookupErr   error
	lookupCalls int
}

func (m *mockArchivalService) Run(context.Context) (*models.ArchivalRunResult, error) {
	return m.runResult, m.runErr
}

func (m *mockArchivalService) IsRunning() bool { return m.running }

func (m *mockArchivalService) Latest(_ context.Context, ref models.EntityRef) (*models.ArchiveVersion, error) {
	m.lookupCalls++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	versions := m.versions[ref.String()]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%s: %w", ref, archival.ErrNotFound)
	}
	latest := versions[len(versions)-1]
	return &latest, nil
}

func (m *mockArchivalService) Versions(_ context.Context, ref models.EntityRef) ([]models.ArchiveVersion, error) {
	m.lookupCalls++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.versions[ref.String()], nil
}

type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache                     { return &mockCache{data: make(map[string][]byte)} }
func (m *mockCache) Get(key string) ([]byte, bool) { v, ok := m.data[key]; return v, ok }
func (m *mockCache) Set(key string, value []byte)  { m.data[key] = value }
func (m *mockCache) Purge()                        { m.data = make(map[string][]byte) }

// --- helpers ---

func archivedChart42() *mockArchivalService {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return &mockArchivalService{versions: map[string][]models.ArchiveVersion{
		"chart#42": {
			{ID: 1, EntityKind: models.KindChart, EntityID: "42", ArchivalTimestamp: ts, HashOfInputs: "h1"},
			{ID: 7, EntityKind: models.KindChart, EntityID: "42", ArchivalTimestamp: ts.Add(time.Hour), HashOfInputs: "h2"},
		},
	}}
}

func newTestController(svc *mockArchivalService, cache *mockCache) *ApiController {
	return NewApiController(&mockLogger{}, svc, cache)
}

// --- GetLatest tests ---

func TestGetLatest_ReturnsNewestVersion(t *testing.T) {
	svc := archivedChart42()
	cache := newMockCache()
	ac := newTestController(svc, cache)

	req := httptest.NewRequest(http.MethodGet, "/archive/latest?kind=chart&id=42", nil)
	rr := httptest.NewRecorder()
	ac.GetLatest(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var result models.ArchiveVersion
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, uint(7), result.ID)
	assert.Equal(t, "h2", result.HashOfInputs)
	assert.Contains(t, cache.data, "latest:chart#42")
}

func TestGetLatest_ServedFromCache(t *testing.T) {
	svc := archivedChart42()
	cache := newMockCache()
	cache.data["latest:chart#42"] = []byte(`{"id":99}`)
	ac := newTestController(svc, cache)

	req := httptest.NewRequest(http.MethodGet, "/archive/latest?kind=chart&id=42", nil)
	rr := httptest.NewRecorder()
	ac.GetLatest(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":99}`, rr.Body.String())
	assert.Zero(t, svc.lookupCalls)
}

func TestGetLatest_NotFound(t *testing.T) {
	ac := newTestController(archivedChart42(), newMockCache())

	req := httptest.NewRequest(http.MethodGet, "/archive/latest?kind=explorer&id=covid", nil)
	rr := httptest.NewRecorder()
	ac.GetLatest(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetLatest_BadQuery(t *testing.T) {
	ac := newTestController(archivedChart42(), newMockCache())

	for _, query := range []string{"", "?kind=chart", "?kind=page&id=1", "?kind=chart&id=abc"} {
		req := httptest.NewRequest(http.MethodGet, "/archive/latest"+query, nil)
		rr := httptest.NewRecorder()
		ac.GetLatest(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
	}
}

func TestGetLatest_StoreError(t *testing.T) {
	svc := &mockArchivalService{lookupErr: errors.New("db down")}
	cache := newMockCache()
	ac := newTestController(svc, cache)

	req := httptest.NewRequest(http.MethodGet, "/archive/latest?kind=chart&id=42", nil)
	rr := httptest.NewRecorder()
	ac.GetLatest(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, cache.data)
}

// --- GetVersions tests ---

func TestGetVersions_ReturnsAll(t *testing.T) {
	ac := newTestController(archivedChart42(), newMockCache())

	req := httptest.NewRequest(http.MethodGet, "/archive/versions?kind=chart&id=42", nil)
	rr := httptest.NewRecorder()
	ac.GetVersions(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var result []models.ArchiveVersion
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, "h1", result[0].HashOfInputs)
}

func TestGetVersions_NotFound(t *testing.T) {
	ac := newTestController(archivedChart42(), newMockCache())

	req := httptest.NewRequest(http.MethodGet, "/archive/versions?kind=multidim&id=3", nil)
	rr := httptest.NewRecorder()
	ac.GetVersions(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- RunArchival tests ---

func TestRunArchival_ReturnsSummary(t *testing.T) {
	svc := &mockArchivalService{runResult: &models.ArchivalRunResult{
		ArchivalDate: "20250314-092653",
		Scanned:      3,
		Unchanged:    2,
		Archived:     []models.EntityRef{{Kind: models.KindChart, ID: 42}},
	}}
	ac := newTestController(svc, newMockCache())

	req := httptest.NewRequest(http.MethodPost, "/archive/run", nil)
	rr := httptest.NewRecorder()
	ac.RunArchival(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var result models.ArchivalRunResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, "20250314-092653", result.ArchivalDate)
	assert.Equal(t, 3, result.Scanned)
	require.Len(t, result.Archived, 1)
}

func TestRunArchival_AlreadyRunning(t *testing.T) {
	svc := &mockArchivalService{runErr: services.ErrArchivalRunning}
	ac := newTestController(svc, newMockCache())

	req := httptest.NewRequest(http.MethodPost, "/archive/run", nil)
	rr := httptest.NewRecorder()
	ac.RunArchival(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRunArchival_Failure(t *testing.T) {
	svc := &mockArchivalService{runErr: errors.New("db down")}
	ac := newTestController(svc, newMockCache())

	req := httptest.NewRequest(http.MethodPost, "/archive/run", nil)
	rr := httptest.NewRecorder()
	ac.RunArchival(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

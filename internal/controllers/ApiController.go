package controllers

import (
	"errors"
	"net/http"
	"publishd/internal/archival"
	"publishd/internal/models"
	"publishd/internal/providers"
	"publishd/internal/services"

	json "github.com/goccy/go-json"
)

// ApiController serves archive lookups and archival runs.
type ApiController struct {
	logger  providers.Logger
	service services.ArchivalServiceInterface
	cache   providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, service services.ArchivalServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		cache:   cache,
	}
}

func entityFromQuery(r *http.Request) (models.EntityRef, error) {
	q := r.URL.Query()
	return models.NewEntityRef(q.Get("kind"), q.Get("id"))
}

func writeJSON(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, data)
		return
	}

	result, err := compute()
	if errors.Is(err, archival.ErrNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		ac.logger.Errorf(providers.TypeArchive, "Archive lookup %s failed: %s", cacheKey, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)
	writeJSON(w, http.StatusOK, gson)
}

func (ac *ApiController) GetLatest(w http.ResponseWriter, r *http.Request) {
	ref, err := entityFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ac.serveFromCacheOrCompute(w, "latest:"+ref.String(), func() (any, error) {
		return ac.service.Latest(r.Context(), ref)
	})
}

func (ac *ApiController) GetVersions(w http.ResponseWriter, r *http.Request) {
	ref, err := entityFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ac.serveFromCacheOrCompute(w, "versions:"+ref.String(), func() (any, error) {
		versions, err := ac.service.Versions(r.Context(), ref)
		if err == nil && len(versions) == 0 {
			return nil, archival.ErrNotFound
		}
		return versions, err
	})
}

// RunArchival archives changed entities synchronously and returns the run summary.
func (ac *ApiController) RunArchival(w http.ResponseWriter, r *http.Request) {
	result, err := ac.service.Run(r.Context())
	if errors.Is(err, services.ErrArchivalRunning) {
		http.Error(w, "Archival already running", http.StatusConflict)
		return
	}
	if err != nil {
		ac.logger.Errorf(providers.TypeArchive, "Archival run failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, gson)
}

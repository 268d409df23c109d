package archival

import (
	"context"
	"fmt"
	"os"
	"path"
	"publishd/internal/archival/interfaces"
	"publishd/internal/models"
	"publishd/internal/structures"
	"slices"
	"strconv"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

type buildManifestEntry struct {
	File    string   `json:"file"`
	CSS     []string `json:"css"`
	IsEntry bool     `json:"isEntry"`
}

// BuildAssetResolver maps an entity to the static bundle of the current site
// build and to the runtime files its rendering fetches.
type BuildAssetResolver struct {
	manifestPath   string
	staticBaseURL  string
	runtimeBaseURL string

	once      sync.Once
	static    models.AssetMap
	staticErr error
}

func NewBuildAssetResolver(conf *structures.Config) interfaces.AssetResolverInterface {
	return &BuildAssetResolver{
		manifestPath:   conf.Archive.BuildManifest,
		staticBaseURL:  strings.TrimRight(conf.Archive.StaticBaseURL, "/"),
		runtimeBaseURL: strings.TrimRight(conf.Archive.RuntimeBaseURL, "/"),
	}
}

func (r *BuildAssetResolver) Resolve(_ context.Context, candidate models.ArchivalCandidate) (models.ManifestAssets, error) {
	r.once.Do(r.loadStatic)
	if r.staticErr != nil {
		return models.ManifestAssets{}, r.staticErr
	}
	if candidate.Checksums == nil {
		return models.ManifestAssets{}, fmt.Errorf("%s has no computed checksums", candidate.Entity)
	}

	static := make(models.AssetMap, len(r.static))
	for k, v := range r.static {
		static[k] = v
	}
	return models.ManifestAssets{Static: static, Runtime: r.runtime(candidate)}, nil
}

func (r *BuildAssetResolver) loadStatic() {
	r.static = models.AssetMap{}
	if r.manifestPath == "" {
		return
	}
	data, err := os.ReadFile(r.manifestPath)
	if err != nil {
		r.staticErr = fmt.Errorf("reading build manifest: %w", err)
		return
	}
	var entries map[string]buildManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		r.staticErr = fmt.Errorf("parsing build manifest: %w", err)
		return
	}
	for src, entry := range entries {
		if !entry.IsEntry {
			continue
		}
		r.static[src] = r.staticURL(entry.File)
		for _, css := range entry.CSS {
			r.static[path.Base(css)] = r.staticURL(css)
		}
	}
}

func (r *BuildAssetResolver) staticURL(file string) string {
	if r.staticBaseURL == "" {
		return "/" + strings.TrimLeft(file, "/")
	}
	return r.staticBaseURL + "/" + strings.TrimLeft(file, "/")
}

// runtime lists the config file and every indicator's data and metadata,
// each pinned to its checksum.
func (r *BuildAssetResolver) runtime(candidate models.ArchivalCandidate) models.AssetMap {
	c := candidate.Checksums
	assets := models.AssetMap{}

	configName := string(candidate.Entity.Kind) + "/" + candidate.Entity.Key() + ".config.json"
	assets[configName] = r.runtimeURL(configName, c.ConfigChecksum)

	ids := make([]int, 0, len(c.Indicators))
	for id := range c.Indicators {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		ind := c.Indicators[id]
		dataName := strconv.Itoa(id) + ".data.json"
		metaName := strconv.Itoa(id) + ".metadata.json"
		assets[dataName] = r.runtimeURL("indicators/"+dataName, ind.DataChecksum)
		assets[metaName] = r.runtimeURL("indicators/"+metaName, ind.MetadataChecksum)
	}
	return assets
}

func (r *BuildAssetResolver) runtimeURL(name, checksum string) string {
	u := r.runtimeBaseURL + "/" + name
	if checksum != "" {
		u += "?nocache=" + checksum
	}
	return u
}

package archival

import (
	"context"
	"os"
	"path/filepath"
	"publishd/internal/models"
	"publishd/internal/structures"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viteManifest = `{
  "site/owid.entry.ts": {"file": "assets/owid-3f2a.mjs", "css": ["assets/owid-99aa.css"], "isEntry": true},
  "site/lazy.ts": {"file": "assets/lazy-11.mjs"}
}`

func assetConfig(manifestPath string) *structures.Config {
	return &structures.Config{Archive: structures.ArchiveConfig{
		BuildManifest:  manifestPath,
		StaticBaseURL:  "https://ourworldindata.org/",
		RuntimeBaseURL: "https://api.ourworldindata.org/v1",
	}}
}

func TestBuildAssetResolver_Resolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(viteManifest), 0o644))

	r := NewBuildAssetResolver(assetConfig(path))
	assets, err := r.Resolve(context.Background(), candidate42(t))
	require.NoError(t, err)

	assert.Equal(t, models.AssetMap{
		"site/owid.entry.ts": "https://ourworldindata.org/assets/owid-3f2a.mjs",
		"owid-99aa.css":      "https://ourworldindata.org/assets/owid-99aa.css",
	}, assets.Static)

	assert.Equal(t, models.AssetMap{
		"chart/42.config.json": "https://api.ourworldindata.org/v1/chart/42.config.json?nocache=cA",
		"7.data.json":          "https://api.ourworldindata.org/v1/indicators/7.data.json?nocache=d1",
		"7.metadata.json":      "https://api.ourworldindata.org/v1/indicators/7.metadata.json?nocache=m1",
	}, assets.Runtime)
}

func TestBuildAssetResolver_StaticMapIsCopied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(viteManifest), 0o644))
	r := NewBuildAssetResolver(assetConfig(path))

	first, err := r.Resolve(context.Background(), candidate42(t))
	require.NoError(t, err)
	first.Static["mutated"] = "x"

	second, err := r.Resolve(context.Background(), candidate42(t))
	require.NoError(t, err)
	assert.NotContains(t, second.Static, "mutated")
}

func TestBuildAssetResolver_NoBuildManifest(t *testing.T) {
	r := NewBuildAssetResolver(assetConfig(""))
	assets, err := r.Resolve(context.Background(), candidate42(t))
	require.NoError(t, err)
	assert.Empty(t, assets.Static)
	assert.Len(t, assets.Runtime, 3)
}

func TestBuildAssetResolver_BrokenBuildManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := NewBuildAssetResolver(assetConfig(path)).Resolve(context.Background(), candidate42(t))
	assert.Error(t, err)

	_, err = NewBuildAssetResolver(assetConfig(filepath.Join(t.TempDir(), "absent.json"))).Resolve(context.Background(), candidate42(t))
	assert.Error(t, err)
}

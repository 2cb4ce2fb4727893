package downloader

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	apperrors "assetcache/internal/errors"
	"assetcache/internal/hashlist"
)

// Asset describes one remote file tracked by a manifest: where to get it,
// what to call it on disk and the digest its content must carry. Filename is
// the unique cache key within a batch.
type Asset struct {
	Key      string `toml:"-" yaml:"-"`
	Filename string `toml:"filename" yaml:"filename"`
	Hash     string `toml:"hash" yaml:"hash"`
	URL      string `toml:"url" yaml:"url"`
}

type assetManifest struct {
	Assets map[string]Asset `toml:"assets" yaml:"assets"`
}

// LoadAssets reads an asset manifest from path. TOML is the primary format;
// files ending in .yaml or .yml decode as YAML. Entries come back sorted by
// manifest key so repeated runs process assets in a stable order.
func LoadAssets(path string) ([]Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ConfigError(apperrors.CodeConfigGeneric, "failed to read asset manifest", err).
			WithModule("downloader").
			WithOperation("LoadAssets").
			WithField("path", path)
	}

	var manifest assetManifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &manifest)
	default:
		err = toml.Unmarshal(data, &manifest)
	}
	if err != nil {
		return nil, apperrors.ConfigError(apperrors.CodeManifestParse, "failed to decode asset manifest", err).
			WithModule("downloader").
			WithOperation("LoadAssets").
			WithField("path", path)
	}

	keys := make([]string, 0, len(manifest.Assets))
	for key := range manifest.Assets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	assets := make([]Asset, 0, len(keys))
	seen := make(map[string]string, len(keys))
	for _, key := range keys {
		asset := manifest.Assets[key]
		asset.Key = key

		if err := validateAsset(key, asset); err != nil {
			return nil, err
		}

		if prev, dup := seen[asset.Filename]; dup {
			return nil, apperrors.ConfigError(apperrors.CodeManifestParse, "duplicate filename in asset manifest", nil).
				WithModule("downloader").
				WithOperation("LoadAssets").
				WithFields(apperrors.Metadata{
					"filename": asset.Filename,
					"keys":     prev + ", " + key,
				})
		}
		seen[asset.Filename] = key

		assets = append(assets, asset)
	}

	return assets, nil
}

func validateAsset(key string, asset Asset) error {
	reject := func(message string) error {
		return apperrors.ConfigError(apperrors.CodeManifestParse, message, nil).
			WithModule("downloader").
			WithOperation("LoadAssets").
			WithFields(apperrors.Metadata{"key": key, "filename": asset.Filename})
	}

	name := asset.Filename
	switch {
	case name == "":
		return reject("asset filename must not be empty")
	case name == "." || name == "..":
		return reject("asset filename must not be a directory reference")
	case strings.ContainsAny(name, `/\`):
		return reject("asset filename must not contain path separators")
	case strings.IndexFunc(name, unicode.IsSpace) >= 0:
		return reject("asset filename must not contain whitespace")
	case strings.HasPrefix(name, "."):
		return reject("asset filename must not start with a dot")
	case name == hashlist.FileName:
		return reject("asset filename collides with the hash manifest")
	}

	if strings.TrimSpace(asset.URL) == "" {
		return reject("asset url must not be empty")
	}
	if strings.TrimSpace(asset.Hash) == "" {
		return reject("asset hash must not be empty")
	}

	return nil
}

// FilterAssets keeps the assets whose manifest key or filename contains
// pattern. An empty pattern keeps everything.
func FilterAssets(assets []Asset, pattern string) []Asset {
	if pattern == "" {
		return assets
	}

	filtered := make([]Asset, 0, len(assets))
	for _, asset := range assets {
		if strings.Contains(asset.Key, pattern) || strings.Contains(asset.Filename, pattern) {
			filtered = append(filtered, asset)
		}
	}
	return filtered
}

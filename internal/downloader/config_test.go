package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "assetcache/internal/errors"
)

func writeManifestFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAssetsTOML(t *testing.T) {
	body := fmt.Sprintf(`
[assets.beta]
filename = "b.bin"
hash = %q
url = "https://assets.example.com/b.bin"

[assets.alpha]
filename = "a.bin"
hash = %q
url = "https://assets.example.com/a.bin"
`, helloHex, helloHex)

	assets, err := LoadAssets(writeManifestFile(t, "assets.toml", body))
	require.NoError(t, err)

	require.Len(t, assets, 2)
	assert.Equal(t, "alpha", assets[0].Key, "entries must come back in key order")
	assert.Equal(t, "a.bin", assets[0].Filename)
	assert.Equal(t, "beta", assets[1].Key)
	assert.Equal(t, "https://assets.example.com/b.bin", assets[1].URL)
}

func TestLoadAssetsYAML(t *testing.T) {
	body := fmt.Sprintf(`
assets:
  alpha:
    filename: a.bin
    hash: %s
    url: https://assets.example.com/a.bin
`, helloHex)

	assets, err := LoadAssets(writeManifestFile(t, "assets.yaml", body))
	require.NoError(t, err)

	require.Len(t, assets, 1)
	assert.Equal(t, "a.bin", assets[0].Filename)
	assert.Equal(t, helloHex, assets[0].Hash)
}

func TestLoadAssetsMissingFile(t *testing.T) {
	_, err := LoadAssets(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigGeneric))
}

func TestLoadAssetsUndecodable(t *testing.T) {
	_, err := LoadAssets(writeManifestFile(t, "assets.toml", "not [valid toml"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeManifestParse))
}

func TestLoadAssetsRejectsInvalidEntries(t *testing.T) {
	entry := func(filename, hash, url string) string {
		return fmt.Sprintf("[assets.x]\nfilename = %q\nhash = %q\nurl = %q\n", filename, hash, url)
	}
	okURL := "https://assets.example.com/a.bin"

	cases := []struct {
		name string
		body string
	}{
		{"empty filename", entry("", helloHex, okURL)},
		{"dot filename", entry(".", helloHex, okURL)},
		{"parent filename", entry("..", helloHex, okURL)},
		{"path separator", entry("nested/a.bin", helloHex, okURL)},
		{"backslash separator", entry(`nested\a.bin`, helloHex, okURL)},
		{"whitespace", entry("a file.bin", helloHex, okURL)},
		{"hidden file", entry(".hidden.bin", helloHex, okURL)},
		{"manifest collision", entry("hash_list", helloHex, okURL)},
		{"empty url", entry("a.bin", helloHex, "")},
		{"empty hash", entry("a.bin", "", okURL)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadAssets(writeManifestFile(t, "assets.toml", tc.body))
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeManifestParse))
		})
	}
}

func TestLoadAssetsRejectsDuplicateFilenames(t *testing.T) {
	body := fmt.Sprintf(`
[assets.one]
filename = "same.bin"
hash = %q
url = "https://assets.example.com/one"

[assets.two]
filename = "same.bin"
hash = %q
url = "https://assets.example.com/two"
`, helloHex, helloHex)

	_, err := LoadAssets(writeManifestFile(t, "assets.toml", body))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeManifestParse))

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "same.bin", appErr.Metadata["filename"])
}

func TestFilterAssets(t *testing.T) {
	assets := []Asset{
		{Key: "model_small", Filename: "small.bin"},
		{Key: "model_large", Filename: "large.bin"},
		{Key: "vocab", Filename: "tokens.txt"},
	}

	assert.Len(t, FilterAssets(assets, ""), 3)

	byKey := FilterAssets(assets, "model")
	require.Len(t, byKey, 2)
	assert.Equal(t, "model_small", byKey[0].Key)

	byFile := FilterAssets(assets, "tokens")
	require.Len(t, byFile, 1)
	assert.Equal(t, "vocab", byFile[0].Key)

	assert.Empty(t, FilterAssets(assets, "nomatch"))
}

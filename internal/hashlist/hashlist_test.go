package hashlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetcache/internal/digest"
	apperrors "assetcache/internal/errors"
)

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))

	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := PathIn(t.TempDir())

	list := New()
	list.Add("model.bin", digest.Sum([]byte("model payload")))
	list.Add("vocab.txt", digest.Sum([]byte("vocab payload")))
	list.Add("config.json", digest.Sum([]byte("{}")))

	require.NoError(t, list.Save(path))

	// No staging file may survive a successful save.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, loaded.Len())
	assert.Equal(t, []string{"model.bin", "vocab.txt", "config.json"}, loaded.Filenames())

	d, ok := loaded.Get("vocab.txt")
	require.True(t, ok)
	assert.Equal(t, digest.Sum([]byte("vocab payload")), d)
}

func TestSaveWritesChecksumLayout(t *testing.T) {
	path := PathIn(t.TempDir())

	d := digest.Sum([]byte("hello"))
	list := New()
	list.Add("greeting.txt", d)

	require.NoError(t, list.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, d.Hex()+"  greeting.txt\n", string(data))
}

func TestAddOverwriteKeepsPosition(t *testing.T) {
	list := New()
	list.Add("a.bin", digest.Sum([]byte("one")))
	list.Add("b.bin", digest.Sum([]byte("two")))
	list.Add("c.bin", digest.Sum([]byte("three")))

	list.Add("b.bin", digest.Sum([]byte("updated")))

	assert.Equal(t, []string{"a.bin", "b.bin", "c.bin"}, list.Filenames())
	assert.Equal(t, 3, list.Len())

	d, ok := list.Get("b.bin")
	require.True(t, ok)
	assert.Equal(t, digest.Sum([]byte("updated")), d)
}

func TestRemove(t *testing.T) {
	list := New()
	list.Add("a.bin", digest.Sum([]byte("one")))
	list.Add("b.bin", digest.Sum([]byte("two")))

	assert.True(t, list.Remove("a.bin"))
	assert.False(t, list.Remove("a.bin"))
	assert.Equal(t, []string{"b.bin"}, list.Filenames())

	_, ok := list.Get("a.bin")
	assert.False(t, ok)
}

func TestLoadSkipsBlankLines(t *testing.T) {
	path := PathIn(t.TempDir())
	d := digest.Sum([]byte("payload"))

	content := "\n" + d.Hex() + "  data.tar\n\n  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	list, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"data.tar"}, list.Filenames())
}

func TestLoadToleratesWhitespaceRuns(t *testing.T) {
	path := PathIn(t.TempDir())
	d := digest.Sum([]byte("payload"))

	content := d.Hex() + "\t \tdata.tar\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	list, err := Load(path)
	require.NoError(t, err)

	got, ok := list.Get("data.tar")
	require.True(t, ok)
	assert.Equal(t, d, got)
}

func TestLoadRejectsMalformedLines(t *testing.T) {
	valid := digest.Sum([]byte("ok")).Hex()

	cases := []struct {
		name    string
		content string
		line    int
	}{
		{"single field", "lonely-filename\n", 1},
		{"three fields", valid + "  name  extra\n", 1},
		{"bad digest", "zzzz  data.tar\n", 1},
		{"bad digest on later line", valid + "  fine.bin\nnot-a-digest  broken.bin\n", 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := PathIn(t.TempDir())
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeManifestParse))

			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tc.line, appErr.Metadata["line"])
		})
	}
}

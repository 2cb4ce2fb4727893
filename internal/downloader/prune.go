package downloader

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	apperrors "assetcache/internal/errors"
	"assetcache/internal/hashlist"
)

// PruneCandidates lists regular files in dir that no current asset claims.
// The hash manifest, dot-prefixed files and subdirectories are never
// candidates. Staging leftovers from interrupted runs are.
func PruneCandidates(dir string, assets []Asset) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.SystemError(apperrors.CodeSystemGeneric, "failed to scan asset directory", err).
			WithModule("downloader").
			WithOperation("PruneCandidates").
			WithField("path", dir)
	}

	keep := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		keep[asset.Filename] = struct{}{}
	}

	var candidates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || name == hashlist.FileName {
			continue
		}
		if _, claimed := keep[name]; claimed {
			continue
		}
		candidates = append(candidates, name)
	}

	sort.Strings(candidates)
	return candidates, nil
}

// Prune removes the named files from dir along with their manifest rows.
// Persisting the updated list is the caller's responsibility.
func Prune(dir string, files []string, list *hashlist.List, log Logger) error {
	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return apperrors.SystemError(apperrors.CodeSystemGeneric, "failed to remove stale file", err).
				WithModule("downloader").
				WithOperation("Prune").
				WithField("path", path)
		}

		if list != nil {
			list.Remove(name)
		}
		log.Info("Removed stale file %s", name)
	}

	return nil
}

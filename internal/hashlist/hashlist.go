// Package hashlist maintains the on-disk manifest recording the digest of
// every verified asset in a cache directory.
package hashlist

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"assetcache/internal/digest"
	apperrors "assetcache/internal/errors"
)

// FileName is the manifest file kept next to the assets it describes.
const FileName = "hash_list"

// PathIn returns the manifest path for the given asset directory.
func PathIn(dir string) string {
	return filepath.Join(dir, FileName)
}

// List records the digest of every verified file. Insertion order is
// preserved so the manifest stays diffable across runs.
type List struct {
	order   []string
	entries map[string]digest.Digest
}

// New returns an empty List.
func New() *List {
	return &List{entries: make(map[string]digest.Digest)}
}

// Load reads a manifest from path. A missing file is returned unchanged so
// callers can distinguish absence, via errors.Is with os.ErrNotExist, from a
// manifest that exists but cannot be decoded.
func Load(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "failed to read hash manifest %s", path)
	}

	list := New()

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, apperrors.ConfigError(
				apperrors.CodeManifestParse,
				"hash manifest line must hold a digest and a filename",
				nil,
			).WithFields(apperrors.Metadata{"path": path, "line": lineNo})
		}

		d, err := digest.ParseHex(fields[0])
		if err != nil {
			return nil, apperrors.ConfigError(
				apperrors.CodeManifestParse,
				"hash manifest holds a malformed digest",
				err,
			).WithFields(apperrors.Metadata{"path": path, "line": lineNo, "filename": fields[1]})
		}

		list.Add(fields[1], d)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to scan hash manifest %s", path)
	}

	return list, nil
}

// Get returns the recorded digest for filename.
func (l *List) Get(filename string) (digest.Digest, bool) {
	d, ok := l.entries[filename]
	return d, ok
}

// Add records the digest for filename. An existing entry is overwritten in
// place and keeps its manifest position.
func (l *List) Add(filename string, d digest.Digest) {
	if _, exists := l.entries[filename]; !exists {
		l.order = append(l.order, filename)
	}
	l.entries[filename] = d
}

// Remove drops filename from the manifest and reports whether it was present.
func (l *List) Remove(filename string) bool {
	if _, exists := l.entries[filename]; !exists {
		return false
	}

	delete(l.entries, filename)
	for i, name := range l.order {
		if name == filename {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// Len reports the number of recorded entries.
func (l *List) Len() int {
	return len(l.entries)
}

// Filenames returns the recorded filenames in manifest order.
func (l *List) Filenames() []string {
	return append([]string(nil), l.order...)
}

// Save writes the manifest in sha256sum layout, one "digest  filename" line
// per entry. The file is staged alongside the destination and renamed into
// place so readers never observe a half-written manifest.
func (l *List) Save(path string) error {
	var buf bytes.Buffer
	for _, name := range l.order {
		fmt.Fprintf(&buf, "%s  %s\n", l.entries[name].Hex(), name)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return apperrors.SystemError(
			apperrors.CodeSystemGeneric,
			"failed to stage hash manifest",
			err,
		).WithField("path", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.SystemError(
			apperrors.CodeSystemGeneric,
			"failed to replace hash manifest",
			err,
		).WithField("path", path)
	}

	return nil
}

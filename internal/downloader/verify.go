package downloader

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"assetcache/internal/digest"
	"assetcache/internal/hashlist"
)

// Drift describes one file whose on-disk content no longer matches its
// manifest row.
type Drift struct {
	Filename string
	Recorded string
	Actual   string
	Missing  bool
}

// Validator re-hashes files recorded in a hash manifest and reports drift.
type Validator struct {
	logger Logger
}

// NewValidator creates a new Validator instance.
func NewValidator(log Logger) *Validator {
	return &Validator{logger: log}
}

// VerifyDir re-hashes every manifest row under dir and returns the rows
// whose files are missing or whose content changed. An empty result means
// the cache is intact.
func (v *Validator) VerifyDir(dir string, list *hashlist.List) ([]Drift, error) {
	var drifts []Drift

	for _, name := range list.Filenames() {
		recorded, _ := list.Get(name)
		path := filepath.Join(dir, name)

		actual, err := v.fileDigest(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				v.logger.Warn("File %s is recorded but missing from disk", name)
				drifts = append(drifts, Drift{
					Filename: name,
					Recorded: recorded.Hex(),
					Missing:  true,
				})
				continue
			}
			return nil, err
		}

		if actual != recorded {
			v.logger.Warn("File %s drifted: recorded %s, actual %s", name, recorded.Hex(), actual.Hex())
			drifts = append(drifts, Drift{
				Filename: name,
				Recorded: recorded.Hex(),
				Actual:   actual.Hex(),
			})
			continue
		}

		v.logger.Debug("File %s matches its recorded digest", name)
	}

	return drifts, nil
}

func (v *Validator) fileDigest(path string) (digest.Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return digest.Digest{}, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer file.Close()

	d, _, err := digest.SumReader(file)
	if err != nil {
		return digest.Digest{}, errors.Wrapf(err, "failed to read file content: %s", path)
	}

	return d, nil
}

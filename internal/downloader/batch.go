package downloader

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"assetcache/internal/digest"
	apperrors "assetcache/internal/errors"
	"assetcache/internal/hashlist"
)

// Disposition classifies the terminal state of one asset within a batch run.
type Disposition string

const (
	DispositionCached   Disposition = "cached"
	DispositionFetched  Disposition = "fetched"
	DispositionMismatch Disposition = "mismatch"
)

// FileResult records how a single asset fared.
type FileResult struct {
	Filename    string
	Disposition Disposition
	Digest      digest.Digest
	Bytes       int64
	Duration    time.Duration
}

// Report summarises one batch run. Attempt counts from one and reflects the
// retry wrapper's numbering when the batch runs under backoff.
type Report struct {
	Results []FileResult
	Attempt int
}

// Batch drives the sequential fetch-verify-record cycle over an asset list.
// Assets are processed strictly in order; the first failure aborts the run.
type Batch struct {
	fetcher *Fetcher
	logger  Logger
}

// NewBatch constructs a Batch around the provided fetcher.
func NewBatch(fetcher *Fetcher, log Logger) (*Batch, error) {
	if fetcher == nil {
		return nil, apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, "fetcher must not be nil", nil).
			WithModule("downloader").
			WithOperation("NewBatch")
	}
	if log == nil {
		return nil, apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, "logger must not be nil", nil).
			WithModule("downloader").
			WithOperation("NewBatch")
	}

	return &Batch{fetcher: fetcher, logger: log}, nil
}

// Run processes assets in order against dir. The hash manifest is loaded
// first, consulted for cache hits, updated as fetches complete and persisted
// before returning regardless of outcome, so it always reflects what is on
// disk. The returned Report covers every asset processed before the abort.
func (b *Batch) Run(ctx context.Context, assets []Asset, dir string) (*Report, error) {
	manifestPath := hashlist.PathIn(dir)

	list, err := hashlist.Load(manifestPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		list = hashlist.New()
	}

	if err := b.fetcher.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.SystemError(apperrors.CodeSystemGeneric, "failed to create asset directory", err).
			WithModule("downloader").
			WithOperation("Run").
			WithField("path", dir)
	}

	report := &Report{Attempt: 1}
	runErr := b.processAssets(ctx, assets, dir, list, report)

	if saveErr := list.Save(manifestPath); saveErr != nil {
		if runErr == nil {
			runErr = saveErr
		} else {
			b.logger.Error("Failed to persist hash manifest after aborted batch: %v", saveErr)
		}
	}

	return report, runErr
}

func (b *Batch) processAssets(ctx context.Context, assets []Asset, dir string, list *hashlist.List, report *Report) error {
	for _, asset := range assets {
		expected, err := digest.ParseHex(asset.Hash)
		if err != nil {
			if appErr, ok := apperrors.As(err); ok {
				appErr.WithModule("downloader").
					WithOperation("Run").
					WithField("filename", asset.Filename)
			}
			return err
		}

		if recorded, ok := list.Get(asset.Filename); ok && recorded == expected {
			b.logger.Info("File %s has matching hash inside hash list, skipping download", asset.Filename)
			report.Results = append(report.Results, FileResult{
				Filename:    asset.Filename,
				Disposition: DispositionCached,
				Digest:      recorded,
			})
			continue
		}

		b.logger.Info("Fetching file %s ...", asset.Filename)

		outcome, err := b.fetcher.Fetch(ctx, asset.URL, filepath.Join(dir, asset.Filename), asset.Filename)
		if err != nil {
			if appErr, ok := apperrors.As(err); ok {
				appErr.WithField("filename", asset.Filename)
			}
			return err
		}

		// The manifest records what actually landed on disk, even when the
		// digest is about to fail the comparison below.
		list.Add(asset.Filename, outcome.Digest)

		if outcome.Digest != expected {
			b.logger.Warn("Digest mismatch for %s: found %s, expected %s",
				asset.Filename, outcome.Digest.Hex(), expected.Hex())
			report.Results = append(report.Results, FileResult{
				Filename:    asset.Filename,
				Disposition: DispositionMismatch,
				Digest:      outcome.Digest,
				Bytes:       outcome.Bytes,
				Duration:    outcome.Duration,
			})
			return apperrors.IntegrityError(apperrors.CodeHashMismatch, "downloaded file digest does not match expectation", nil).
				WithModule("downloader").
				WithOperation("Run").
				WithFields(apperrors.Metadata{
					"filename": asset.Filename,
					"found":    outcome.Digest.Hex(),
					"expected": expected.Hex(),
				})
		}

		b.logger.Success("%s downloaded and verified", asset.Filename)
		report.Results = append(report.Results, FileResult{
			Filename:    asset.Filename,
			Disposition: DispositionFetched,
			Digest:      outcome.Digest,
			Bytes:       outcome.Bytes,
			Duration:    outcome.Duration,
		})
	}

	return nil
}

// MismatchDigests extracts the found and expected digest strings from a hash
// mismatch error. ok is false for any other error.
func MismatchDigests(err error) (found, expected string, ok bool) {
	appErr, isApp := apperrors.As(err)
	if !isApp || appErr.Code != apperrors.CodeHashMismatch {
		return "", "", false
	}
	return appErr.Field("found"), appErr.Field("expected"), true
}

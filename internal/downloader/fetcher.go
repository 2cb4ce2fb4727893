package downloader

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"assetcache/internal/digest"
	apperrors "assetcache/internal/errors"
)

const (
	defaultUserAgent = "assetcache/1.0 (Go downloader)"
	defaultTimeout   = 300 * time.Second

	// defaultMaxBodySize caps how much of a response is accepted, guarding
	// against a server that streams unbounded data.
	defaultMaxBodySize = int64(10) << 30
)

// HTTPClient represents the subset of http.Client methods required by the Fetcher.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Outcome describes one completed fetch: the digest of the bytes written to
// disk, how many bytes arrived and how long the transfer took.
type Outcome struct {
	Digest   digest.Digest
	Bytes    int64
	Duration time.Duration
}

// Fetcher downloads a single asset per call. It verifies nothing beyond
// transport-level consistency; comparing the resulting digest against an
// expectation belongs to the caller.
type Fetcher struct {
	client      HTTPClient
	fs          FileSystem
	logger      Logger
	reporter    ProgressReporter
	userAgent   string
	maxBodySize int64
	timeout     time.Duration
}

// FetcherOption customises Fetcher construction.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client HTTPClient) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithFileSystem overrides the filesystem implementation.
func WithFileSystem(fs FileSystem) FetcherOption {
	return func(f *Fetcher) {
		f.fs = fs
	}
}

// WithProgressReporter overrides the progress reporter implementation.
func WithProgressReporter(reporter ProgressReporter) FetcherOption {
	return func(f *Fetcher) {
		f.reporter = reporter
	}
}

// WithUserAgent overrides the User-Agent header sent with each request.
func WithUserAgent(userAgent string) FetcherOption {
	return func(f *Fetcher) {
		if userAgent != "" {
			f.userAgent = userAgent
		}
	}
}

// WithMaxBodySize overrides the response body size cap.
func WithMaxBodySize(limit int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodySize = limit
	}
}

// WithTimeout sets the whole-request timeout applied when the Fetcher builds
// its own HTTP client. It has no effect when a client is injected.
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// NewFetcher constructs a Fetcher using the provided logger and options.
func NewFetcher(log Logger, opts ...FetcherOption) (*Fetcher, error) {
	if log == nil {
		return nil, apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, "logger must not be nil", nil).
			WithModule("downloader").
			WithOperation("NewFetcher")
	}

	fetcher := &Fetcher{
		logger:      log,
		fs:          &OSFileSystem{},
		reporter:    &NoopProgressReporter{},
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		timeout:     defaultTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(fetcher)
		}
	}

	if fetcher.fs == nil {
		fetcher.fs = &OSFileSystem{}
	}
	if fetcher.reporter == nil {
		fetcher.reporter = &NoopProgressReporter{}
	}
	if fetcher.maxBodySize <= 0 {
		fetcher.maxBodySize = defaultMaxBodySize
	}
	if fetcher.client == nil {
		fetcher.client = defaultHTTPClient(fetcher.timeout)
	}

	return fetcher, nil
}

// Fetch performs one GET against url and writes the payload to destPath,
// replacing any existing file. The payload is staged next to the destination
// and renamed into place, so a failed transfer never leaves partial content
// under the destination name.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath, name string) (Outcome, error) {
	start := time.Now()

	f.logger.Debug("GET %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{}, apperrors.NetworkError(apperrors.CodeDownloadFailed, "failed to create download request", err).
			WithModule("downloader").
			WithOperation("Fetch").
			WithField("url", url)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Outcome{}, apperrors.NetworkError(apperrors.CodeDownloadFailed, "download request failed", err).
			WithModule("downloader").
			WithOperation("Fetch").
			WithField("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Outcome{}, apperrors.NetworkError(apperrors.CodeDownloadFailed, "download failed with unexpected status", nil).
			WithModule("downloader").
			WithOperation("Fetch").
			WithFields(apperrors.Metadata{
				"url":    url,
				"status": resp.StatusCode,
			})
	}

	// ContentLength is -1 when the header is absent or unparsable; the
	// transfer still proceeds and relies on stream completion alone.
	declared := resp.ContentLength

	if declared > f.maxBodySize {
		return Outcome{}, apperrors.NetworkError(apperrors.CodeDownloadFailed, "declared content length exceeds the body size cap", nil).
			WithModule("downloader").
			WithOperation("Fetch").
			WithFields(apperrors.Metadata{
				"url":      url,
				"declared": declared,
				"cap":      f.maxBodySize,
			})
	}

	if declared > 0 {
		if avail, err := availableSpace(filepath.Dir(destPath)); err == nil && avail >= 0 && avail < declared {
			return Outcome{}, apperrors.SystemError(apperrors.CodeSystemGeneric, "insufficient disk space for download", nil).
				WithModule("downloader").
				WithOperation("Fetch").
				WithFields(apperrors.Metadata{
					"path":      destPath,
					"declared":  declared,
					"available": avail,
				})
		}
	}

	reader := NewProgressReader(resp.Body, declared, f.reporter, name)

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodySize+1))
	if err != nil {
		return Outcome{}, apperrors.NetworkError(apperrors.CodeDownloadFailed, "failed to read response body", err).
			WithModule("downloader").
			WithOperation("Fetch").
			WithField("url", url)
	}

	if int64(len(body)) > f.maxBodySize {
		return Outcome{}, apperrors.NetworkError(apperrors.CodeDownloadFailed, "response body exceeds the size cap", nil).
			WithModule("downloader").
			WithOperation("Fetch").
			WithFields(apperrors.Metadata{
				"url": url,
				"cap": f.maxBodySize,
			})
	}

	if declared >= 0 && int64(len(body)) != declared {
		return Outcome{}, apperrors.NetworkError(apperrors.CodeDownloadFailed, "truncated transfer: payload disagrees with declared length", nil).
			WithModule("downloader").
			WithOperation("Fetch").
			WithFields(apperrors.Metadata{
				"url":      url,
				"declared": declared,
				"received": int64(len(body)),
			})
	}

	reader.Finish()

	if err := f.write(destPath, body); err != nil {
		return Outcome{}, err
	}

	f.logger.Debug("Wrote %d bytes to %s in %s", len(body), destPath, time.Since(start).Round(time.Millisecond))

	return Outcome{
		Digest:   digest.Sum(body),
		Bytes:    int64(len(body)),
		Duration: time.Since(start),
	}, nil
}

func (f *Fetcher) write(destPath string, body []byte) error {
	tmp := destPath + ".tmp"

	file, err := f.fs.Create(tmp)
	if err != nil {
		return apperrors.SystemError(apperrors.CodeSystemGeneric, "failed to create staging file", err).
			WithModule("downloader").
			WithOperation("write").
			WithField("path", tmp)
	}

	if _, err := file.Write(body); err != nil {
		file.Close()
		_ = f.fs.Remove(tmp)
		return apperrors.SystemError(apperrors.CodeSystemGeneric, "failed to write downloaded payload", err).
			WithModule("downloader").
			WithOperation("write").
			WithField("path", tmp)
	}

	if err := file.Close(); err != nil {
		_ = f.fs.Remove(tmp)
		return apperrors.SystemError(apperrors.CodeSystemGeneric, "failed to flush downloaded payload", err).
			WithModule("downloader").
			WithOperation("write").
			WithField("path", tmp)
	}

	if err := f.fs.Rename(tmp, destPath); err != nil {
		_ = f.fs.Remove(tmp)
		return apperrors.SystemError(apperrors.CodeSystemGeneric, "failed to move downloaded file into place", err).
			WithModule("downloader").
			WithOperation("write").
			WithFields(apperrors.Metadata{
				"source": tmp,
				"target": destPath,
			})
	}

	return nil
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

package downloader

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetcache/internal/digest"
	apperrors "assetcache/internal/errors"
	"assetcache/internal/logger"
)

const helloHex = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

type clientFunc func(req *http.Request) (*http.Response, error)

func (f clientFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

func fakeResponse(status int, body []byte, contentLength int64) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: contentLength,
		Header:        make(http.Header),
	}
}

func newTestBatch(t *testing.T, client HTTPClient, log Logger) *Batch {
	t.Helper()

	var opts []FetcherOption
	if client != nil {
		opts = append(opts, WithHTTPClient(client))
	}

	fetcher, err := NewFetcher(log, opts...)
	require.NoError(t, err)

	batch, err := NewBatch(fetcher, log)
	require.NoError(t, err)
	return batch
}

func TestNewFetcherRequiresLogger(t *testing.T) {
	_, err := NewFetcher(nil)
	require.Error(t, err)
}

func TestFetchAgainstLiveServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	fetcher, err := NewFetcher(logger.NewMockLogger())
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "a.bin")
	outcome, err := fetcher.Fetch(context.Background(), server.URL, dest, "a.bin")
	require.NoError(t, err)

	assert.Equal(t, digest.Sum([]byte("hello")), outcome.Digest)
	assert.Equal(t, int64(5), outcome.Bytes)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFetchSendsUserAgent(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	fetcher, err := NewFetcher(logger.NewMockLogger(), WithUserAgent("assetcache-test/9.9"))
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), server.URL, filepath.Join(t.TempDir(), "f.bin"), "f.bin")
	require.NoError(t, err)
	assert.Equal(t, "assetcache-test/9.9", gotAgent)
}

func TestFetchReplacesExistingFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh content"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(dest, []byte("old content that is longer"), 0o644))

	fetcher, err := NewFetcher(logger.NewMockLogger())
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), server.URL, dest, "a.bin")
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "fresh content", string(data))
}

func TestFetchRejectsTruncatedTransfer(t *testing.T) {
	client := clientFunc(func(req *http.Request) (*http.Response, error) {
		// Five bytes arrive although ten were declared.
		return fakeResponse(http.StatusOK, []byte("hello"), 10), nil
	})

	fetcher, err := NewFetcher(logger.NewMockLogger(), WithHTTPClient(client))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "a.bin")
	_, err = fetcher.Fetch(context.Background(), "http://cache.invalid/a.bin", dest, "a.bin")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDownloadFailed))

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no partial file may be retained")
	_, statErr = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(statErr), "no staging file may be retained")
}

func TestFetchRejectsBadStatus(t *testing.T) {
	client := clientFunc(func(req *http.Request) (*http.Response, error) {
		return fakeResponse(http.StatusNotFound, []byte("not found"), 9), nil
	})

	fetcher, err := NewFetcher(logger.NewMockLogger(), WithHTTPClient(client))
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), "http://cache.invalid/a.bin", filepath.Join(t.TempDir(), "a.bin"), "a.bin")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDownloadFailed))

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Metadata["status"])
}

func TestFetchUnknownLengthProceeds(t *testing.T) {
	client := clientFunc(func(req *http.Request) (*http.Response, error) {
		return fakeResponse(http.StatusOK, []byte("hello"), -1), nil
	})

	fetcher, err := NewFetcher(logger.NewMockLogger(), WithHTTPClient(client))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "a.bin")
	outcome, err := fetcher.Fetch(context.Background(), "http://cache.invalid/a.bin", dest, "a.bin")
	require.NoError(t, err)

	assert.Equal(t, digest.Sum([]byte("hello")), outcome.Digest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFetchEnforcesBodyCap(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 64)

	t.Run("declared over cap", func(t *testing.T) {
		client := clientFunc(func(req *http.Request) (*http.Response, error) {
			return fakeResponse(http.StatusOK, payload, 64), nil
		})

		fetcher, err := NewFetcher(logger.NewMockLogger(), WithHTTPClient(client), WithMaxBodySize(16))
		require.NoError(t, err)

		_, err = fetcher.Fetch(context.Background(), "http://cache.invalid/big", filepath.Join(t.TempDir(), "big"), "big")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeDownloadFailed))
	})

	t.Run("undeclared stream over cap", func(t *testing.T) {
		client := clientFunc(func(req *http.Request) (*http.Response, error) {
			return fakeResponse(http.StatusOK, payload, -1), nil
		})

		fetcher, err := NewFetcher(logger.NewMockLogger(), WithHTTPClient(client), WithMaxBodySize(16))
		require.NoError(t, err)

		_, err = fetcher.Fetch(context.Background(), "http://cache.invalid/big", filepath.Join(t.TempDir(), "big"), "big")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeDownloadFailed))
	})
}

type failingFS struct {
	OSFileSystem
	createErr error
}

func (f *failingFS) Create(path string) (io.WriteCloser, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.OSFileSystem.Create(path)
}

func TestFetchSurfacesFilesystemFailures(t *testing.T) {
	client := clientFunc(func(req *http.Request) (*http.Response, error) {
		return fakeResponse(http.StatusOK, []byte("hello"), 5), nil
	})

	fetcher, err := NewFetcher(logger.NewMockLogger(),
		WithHTTPClient(client),
		WithFileSystem(&failingFS{createErr: os.ErrPermission}),
	)
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), "http://cache.invalid/a.bin", filepath.Join(t.TempDir(), "a.bin"), "a.bin")
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCategorySystem, appErr.Category)
}

package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetcache/internal/digest"
	"assetcache/internal/downloader"
	"assetcache/internal/journal"
)

func TestSummaryRendersRows(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &downloader.Report{Results: []downloader.FileResult{
		{
			Filename:    "model.bin",
			Disposition: downloader.DispositionFetched,
			Digest:      digest.Sum([]byte("hello")),
			Bytes:       5,
			Duration:    42 * time.Millisecond,
		},
		{
			Filename:    "vocab.txt",
			Disposition: downloader.DispositionCached,
			Digest:      digest.Sum([]byte("vocab")),
		},
		{
			Filename:    "weights.bin",
			Disposition: downloader.DispositionMismatch,
			Digest:      digest.Sum([]byte("tampered")),
			Bytes:       8,
		},
	}}

	p.Summary(report)
	out := buf.String()

	assert.Contains(t, out, "model.bin")
	assert.Contains(t, out, "fetched")
	assert.Contains(t, out, "cached")
	assert.Contains(t, out, "mismatch")
	assert.Contains(t, out, digest.Sum([]byte("hello")).Hex()[:12])
	assert.Contains(t, out, "0.00 MB")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "✕")
	assert.NotContains(t, out, "\x1b[", "plain writers must not receive ANSI escapes")
}

func TestSummaryNothingToRender(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Summary(nil)
	p.Summary(&downloader.Report{})

	assert.Empty(t, buf.String())
}

func TestHistoryRendersRecords(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.History([]journal.BatchRecord{
		{
			ID:        "batch-2",
			Manifest:  "assets.toml",
			Status:    journal.StatusCompleted,
			Total:     3,
			Fetched:   2,
			Cached:    1,
			StartedAt: time.Date(2026, 8, 25, 10, 0, 3, 0, time.UTC),
		},
		{
			ID:         "batch-1",
			Manifest:   "assets.toml",
			Status:     journal.StatusFailed,
			Error:      "digest mismatch for weights.bin",
			Total:      1,
			Mismatched: 1,
			StartedAt:  time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC),
		},
	})
	out := buf.String()

	assert.Contains(t, out, "2026-08-25 10:00:03")
	assert.Contains(t, out, "total 3 (2 fetched, 1 cached, 0 mismatched)")
	assert.Contains(t, out, "digest mismatch for weights.bin")
	assert.Contains(t, out, "✕")
}

func TestHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).History(nil)
	assert.Contains(t, buf.String(), "No recorded runs yet.")
}

func TestDriftsRendersRows(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	recorded := digest.Sum([]byte("original")).Hex()
	actual := digest.Sum([]byte("changed")).Hex()

	p.Drifts([]downloader.Drift{
		{Filename: "drifted.bin", Recorded: recorded, Actual: actual},
		{Filename: "missing.bin", Recorded: recorded, Missing: true},
	})
	out := buf.String()

	assert.Contains(t, out, "drifted.bin  drifted")
	assert.Contains(t, out, recorded[:12])
	assert.Contains(t, out, actual[:12])
	assert.Contains(t, out, "missing.bin  missing")
}

func TestPruneList(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PruneList([]string{"stale.bin", "leftover.tmp"})

	assert.Contains(t, buf.String(), "stale.bin")
	assert.Contains(t, buf.String(), "leftover.tmp")
}

func TestBarReporterUnknownSizeUsesSpinner(t *testing.T) {
	var buf bytes.Buffer
	r := NewBarReporter(&buf)

	r.OnStart("a.bin", -1)
	require.NotNil(t, r.spinner)
	r.OnProgress("a.bin", 5, -1, 0)
	r.OnComplete("a.bin", 5, time.Millisecond)

	assert.Nil(t, r.spinner)
	assert.Contains(t, buf.String(), "\r\033[K")
}

func TestBarReporterKnownSizeUsesBar(t *testing.T) {
	var buf bytes.Buffer
	r := NewBarReporter(&buf)

	r.OnStart("a.bin", 10)
	require.NotNil(t, r.bar)
	assert.Nil(t, r.spinner)

	r.OnProgress("a.bin", 5, 10, 0)
	r.OnComplete("a.bin", 10, time.Millisecond)
	assert.Nil(t, r.bar)
}

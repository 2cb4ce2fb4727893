package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	progressbar "github.com/schollz/progressbar/v3"

	"assetcache/internal/logger"
)

// BarReporter renders a live progress indicator for the file currently being
// fetched. Transfers with a declared length get a byte-accurate bar, the rest
// get a spinner with a running byte total. The indicator clears itself on
// completion so the batch log keeps the final word.
type BarReporter struct {
	out io.Writer

	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	spinner *logger.SpinnerProgress
	last    int64
}

// NewBarReporter creates a reporter writing to out, or to stderr when out is
// nil.
func NewBarReporter(out io.Writer) *BarReporter {
	if out == nil {
		out = os.Stderr
	}
	return &BarReporter{out: out}
}

// OnStart begins rendering the indicator for fileName.
func (r *BarReporter) OnStart(fileName string, totalSize int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = 0

	if totalSize > 0 {
		r.bar = progressbar.NewOptions64(
			totalSize,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetDescription(fileName),
			progressbar.OptionThrottle(80*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		return
	}

	r.spinner = logger.NewSpinnerProgress(r.out)
	r.spinner.Start(fmt.Sprintf("Downloading %s", fileName))
}

// OnProgress advances the indicator to current.
func (r *BarReporter) OnProgress(_ string, current, _ int64, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar != nil {
		_ = r.bar.Set64(current)
		return
	}
	if r.spinner != nil {
		r.spinner.Advance(current - r.last)
		r.last = current
	}
}

// OnComplete clears the indicator for the finished file.
func (r *BarReporter) OnComplete(string, int64, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
	if r.spinner != nil {
		r.spinner.Clear()
		r.spinner = nil
	}
	r.last = 0
}

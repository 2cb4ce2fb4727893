package downloader

import (
	"io"
	"time"
)

// ProgressReporter receives transfer progress updates.
type ProgressReporter interface {
	OnStart(fileName string, totalSize int64)
	OnProgress(fileName string, current, total int64, speed float64)
	OnComplete(fileName string, totalSize int64, elapsed time.Duration)
}

// NoopProgressReporter discards all progress events.
type NoopProgressReporter struct{}

func (n *NoopProgressReporter) OnStart(string, int64)                    {}
func (n *NoopProgressReporter) OnProgress(string, int64, int64, float64) {}
func (n *NoopProgressReporter) OnComplete(string, int64, time.Duration)  {}

// ProgressReader wraps a reader to emit progress updates while the response
// body is consumed.
type ProgressReader struct {
	reader    io.Reader
	total     int64
	current   int64
	reporter  ProgressReporter
	fileName  string
	startTime time.Time
}

// NewProgressReader constructs a progress tracking reader and announces the
// start of the transfer.
func NewProgressReader(reader io.Reader, total int64, reporter ProgressReporter, fileName string) *ProgressReader {
	if reporter == nil {
		reporter = &NoopProgressReporter{}
	}

	pr := &ProgressReader{
		reader:    reader,
		total:     total,
		reporter:  reporter,
		fileName:  fileName,
		startTime: time.Now(),
	}

	reporter.OnStart(fileName, total)

	return pr
}

// Read implements io.Reader and relays progress.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.current += int64(n)
		elapsed := time.Since(pr.startTime).Seconds()
		if elapsed <= 0 {
			elapsed = 0.001
		}
		speed := float64(pr.current) / elapsed / 1024 / 1024
		pr.reporter.OnProgress(pr.fileName, pr.current, pr.total, speed)
	}
	return n, err
}

// Finish notifies the reporter that the transfer has completed.
func (pr *ProgressReader) Finish() {
	elapsed := time.Since(pr.startTime)
	pr.reporter.OnComplete(pr.fileName, pr.current, elapsed)
}

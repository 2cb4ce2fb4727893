package logger

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress describes progress indicators that can be started and stopped.
type Progress interface {
	Start(operation string)
	Stop(operation string)
}

// SpinnerProgress renders a spinner for transfers whose total size is unknown
// ahead of time. When byte counts are reported through Advance the spinner
// displays a running total next to the message.
type SpinnerProgress struct {
	mu       sync.Mutex
	output   io.Writer
	frames   []string
	index    int
	bytes    int64
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSpinnerProgress creates a progress spinner writing to the provided output.
func NewSpinnerProgress(output io.Writer) *SpinnerProgress {
	if output == nil {
		output = io.Discard
	}

	return &SpinnerProgress{
		output: output,
		frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		stopCh: make(chan struct{}),
	}
}

// Start begins rendering the progress spinner with the specified message.
func (p *SpinnerProgress) Start(message string) {
	go func() {
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.mu.Lock()
				frame := p.frames[p.index%len(p.frames)]
				p.index++
				if p.bytes > 0 {
					fmt.Fprintf(p.output, "\r%s %s (%.2f MB)", frame, message, float64(p.bytes)/1024/1024)
				} else {
					fmt.Fprintf(p.output, "\r%s %s", frame, message)
				}
				p.mu.Unlock()
			}
		}
	}()
}

// Advance records transferred bytes for display alongside the message.
func (p *SpinnerProgress) Advance(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bytes += n
}

// Stop terminates the spinner and prints the final message.
func (p *SpinnerProgress) Stop(message string) {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.output, "\r✓ %s\n", message)
}

// Clear terminates the spinner and erases the spinner line, leaving the final
// reporting to the caller.
func (p *SpinnerProgress) Clear() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(p.output, "\r\033[K")
}

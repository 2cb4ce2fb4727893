// Package ui renders the terminal output of the command line front end:
// result tables, history listings, progress bars and confirmation prompts.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"assetcache/internal/downloader"
	"assetcache/internal/journal"
)

// Printer renders batch summaries and history tables.
type Printer struct {
	out     io.Writer
	success *color.Color
	info    *color.Color
	warn    *color.Color
	error   *color.Color
}

// NewPrinter constructs a Printer with colour automatically enabled for TTY
// outputs.
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}

	enabled := supportsColor(out) && os.Getenv("NO_COLOR") == ""

	p := &Printer{
		out:     out,
		success: color.New(color.FgGreen, color.Bold),
		info:    color.New(color.FgBlue, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		error:   color.New(color.FgRed, color.Bold),
	}

	if !enabled {
		p.success.DisableColor()
		p.info.DisableColor()
		p.warn.DisableColor()
		p.error.DisableColor()
	}

	return p
}

// PrintSeparator prints a repeated character separator.
func (p *Printer) PrintSeparator(char string, length int) {
	if length <= 0 {
		return
	}
	fmt.Fprintln(p.out, strings.Repeat(char, length))
}

// Summary renders one line per processed file with its disposition, size
// and digest prefix.
func (p *Printer) Summary(report *downloader.Report) {
	if report == nil || len(report.Results) == 0 {
		return
	}

	nameWidth := 0
	for _, res := range report.Results {
		if w := runewidth.StringWidth(res.Filename); w > nameWidth {
			nameWidth = w
		}
	}

	p.PrintSeparator("-", 64)
	for _, res := range report.Results {
		pad := strings.Repeat(" ", nameWidth-runewidth.StringWidth(res.Filename))
		fmt.Fprintf(p.out, "[ %s ] %s%s  %-8s  %10s  %s\n",
			p.dispositionMark(res.Disposition),
			res.Filename, pad,
			res.Disposition,
			formatBytes(res.Bytes),
			res.Digest.Hex()[:12])
	}
	p.PrintSeparator("-", 64)
}

// History renders recorded batch runs, newest first.
func (p *Printer) History(records []journal.BatchRecord) {
	if len(records) == 0 {
		fmt.Fprintln(p.out, "No recorded runs yet.")
		return
	}

	p.PrintSeparator("-", 72)
	for _, rec := range records {
		fmt.Fprintf(p.out, "[ %s ] %s  %s  total %d (%d fetched, %d cached, %d mismatched)\n",
			p.statusMark(rec.Status),
			rec.StartedAt.Format("2006-01-02 15:04:05"),
			rec.Manifest,
			rec.Total, rec.Fetched, rec.Cached, rec.Mismatched)
		if rec.Error != "" {
			fmt.Fprintf(p.out, "        %s\n", p.warn.Sprint(rec.Error))
		}
	}
	p.PrintSeparator("-", 72)
}

// Drifts renders verification failures, one line per drifted file.
func (p *Printer) Drifts(drifts []downloader.Drift) {
	for _, d := range drifts {
		if d.Missing {
			fmt.Fprintf(p.out, "[ %s ] %s  missing (recorded %s)\n",
				p.error.Sprint("✕"), d.Filename, shortHex(d.Recorded))
			continue
		}
		fmt.Fprintf(p.out, "[ %s ] %s  drifted (recorded %s, actual %s)\n",
			p.error.Sprint("✕"), d.Filename, shortHex(d.Recorded), shortHex(d.Actual))
	}
}

// PruneList shows the files that are about to be removed.
func (p *Printer) PruneList(files []string) {
	for _, name := range files {
		fmt.Fprintf(p.out, "[ %s ] %s\n", p.warn.Sprint("!"), name)
	}
}

func (p *Printer) dispositionMark(d downloader.Disposition) string {
	switch d {
	case downloader.DispositionFetched:
		return p.success.Sprint("✓")
	case downloader.DispositionCached:
		return p.info.Sprint("✓")
	case downloader.DispositionMismatch:
		return p.error.Sprint("✕")
	default:
		return "-"
	}
}

func (p *Printer) statusMark(s journal.Status) string {
	switch s {
	case journal.StatusCompleted:
		return p.success.Sprint("✓")
	case journal.StatusFailed:
		return p.error.Sprint("✕")
	case journal.StatusRunning:
		return p.warn.Sprint("!")
	default:
		return "-"
	}
}

func formatBytes(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/1024/1024)
}

func shortHex(hex string) string {
	if len(hex) > 12 {
		return hex[:12]
	}
	return hex
}

func supportsColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

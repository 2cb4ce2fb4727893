package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
)

// ColoredLogger renders log messages using colours when supported by the output writer.
type ColoredLogger struct {
	*StandardLogger
	colors   map[Level]*color.Color
	success  *color.Color
	useColor bool
}

// NewColoredLogger returns a logger configured for colourful terminal output when possible.
func NewColoredLogger(options ...Option) *ColoredLogger {
	std := NewStandardLogger(options...)

	writer := std.output
	if writer == nil {
		writer = os.Stdout
	}

	useColor := isTerminal(writer) && os.Getenv("NO_COLOR") == ""

	colors := map[Level]*color.Color{
		LevelDebug: color.New(color.FgCyan),
		LevelInfo:  color.New(color.FgBlue),
		LevelWarn:  color.New(color.FgYellow),
		LevelError: color.New(color.FgRed),
	}

	std.formatter = &ColoredFormatter{
		timestampFormat: "15:04:05",
		colors:          colors,
		enableColors:    useColor,
	}

	return &ColoredLogger{
		StandardLogger: std,
		colors:         colors,
		success:        color.New(color.FgGreen, color.Bold),
		useColor:       useColor,
	}
}

// Success prints an info level confirmation line with a check mark.
func (l *ColoredLogger) Success(format string, args ...interface{}) {
	mark := "✓"
	if l.useColor {
		mark = l.success.Sprint(mark)
	}
	l.log(LevelInfo, mark+" "+format, args...)
}

// ColoredFormatter renders log entries with coloured levels when enabled.
type ColoredFormatter struct {
	timestampFormat string
	colors          map[Level]*color.Color
	enableColors    bool
}

// Format converts the Entry into a coloured textual representation.
func (f *ColoredFormatter) Format(entry *Entry) ([]byte, error) {
	timestampFormat := f.timestampFormat
	if timestampFormat == "" {
		timestampFormat = time.RFC3339
	}

	timestamp := entry.Time.Format(timestampFormat)

	level := entry.Level.String()
	if f.enableColors {
		if c := f.colors[entry.Level]; c != nil {
			level = c.Sprint(level)
		}
	}

	faint := color.New(color.Faint)
	fields := func(field Field) string {
		fieldText := fmt.Sprintf("%s=%v", field.Key, field.Value)
		if f.enableColors {
			return faint.Sprint(fieldText)
		}
		return fieldText
	}

	return formatEntry(entry, timestamp, level, fields), nil
}

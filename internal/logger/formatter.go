package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Formatter converts log entries to their textual or structured representation.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Entry represents a single log record.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
	Fields  []Field
	Caller  *Caller
}

// Caller carries caller information when caller reporting is enabled.
type Caller struct {
	File     string
	Line     int
	Function string
}

// TextFormatter renders log entries as traditional line-oriented log output.
type TextFormatter struct {
	TimestampFormat  string
	DisableColors    bool
	DisableTimestamp bool
	Output           io.Writer
}

// Format converts the Entry into a textual representation.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = "15:04:05"
	}

	var timestamp string
	if !f.DisableTimestamp {
		timestamp = entry.Time.Format(timestampFormat)
	}

	levelText := entry.Level.String()
	if f.shouldColorize() {
		levelText = colorizeLevel(levelText, entry.Level)
	}
	return formatEntry(entry, timestamp, levelText, nil), nil
}

func (f *TextFormatter) shouldColorize() bool {
	if f == nil || f.DisableColors {
		return false
	}

	writer := f.Output
	if writer == nil {
		writer = os.Stdout
	}
	return isTerminal(writer)
}

func colorizeLevel(text string, level Level) string {
	var c *color.Color
	switch level {
	case LevelDebug:
		c = color.New(color.FgCyan)
	case LevelInfo:
		c = color.New(color.FgBlue)
	case LevelWarn:
		c = color.New(color.FgYellow)
	case LevelError:
		c = color.New(color.FgRed)
	default:
		return text
	}
	return c.Sprint(text)
}

func isTerminal(w io.Writer) bool {
	if file, ok := w.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

// JSONFormatter renders log entries as JSON objects, one per line.
type JSONFormatter struct {
	TimestampFormat string
}

// Format converts the Entry into JSON.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	data := make(map[string]interface{}, len(entry.Fields)+4)

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = time.RFC3339
	}

	data["time"] = entry.Time.Format(timestampFormat)
	data["level"] = entry.Level.String()
	data["msg"] = entry.Message

	for _, field := range entry.Fields {
		data[field.Key] = field.Value
	}

	if entry.Caller != nil {
		data["caller"] = fmt.Sprintf("%s:%d", entry.Caller.File, entry.Caller.Line)
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return append(encoded, '\n'), nil
}

type fieldFormatter func(Field) string

func defaultFieldFormatter(field Field) string {
	return fmt.Sprintf("%s=%v", field.Key, field.Value)
}

func formatEntry(entry *Entry, timestamp, levelText string, formatter fieldFormatter) []byte {
	if formatter == nil {
		formatter = defaultFieldFormatter
	}

	var buf bytes.Buffer

	if timestamp != "" {
		buf.WriteString(timestamp)
		buf.WriteString(" ")
	}

	buf.WriteString("[")
	buf.WriteString(levelText)
	buf.WriteString("] ")

	buf.WriteString(entry.Message)

	for _, field := range entry.Fields {
		buf.WriteString(" ")
		buf.WriteString(formatter(field))
	}

	if entry.Caller != nil {
		buf.WriteString(" ")
		buf.WriteString("caller=")
		buf.WriteString(fmt.Sprintf("%s:%d", entry.Caller.File, entry.Caller.Line))
	}

	buf.WriteString("\n")
	return buf.Bytes()
}

package downloader

// Logger abstracts the logging methods used by the download pipeline.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Success(format string, args ...interface{})
}

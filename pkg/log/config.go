package log

import (
	"fmt"
	stdlog "log"
	"strings"
)

// Config declaratively describes how to build a Logger, suitable for
// decoding from a config file or environment variables.
type Config struct {
	Level  string `json:"level"`
	Format string `json:"format"`

	// FilePath, if set, also writes formatted entries to the named file in
	// addition to the console.
	FilePath string `json:"file_path,omitempty"`
}

// ParseLevel parses a case-insensitive level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// ApplyConfig builds a Logger from a Config.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		return NewLogger(), nil
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var formatter Formatter
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "text":
		formatter = &TextFormatter{}
	case "json", "":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	opts := []LoggerOption{
		WithLevel(level),
		WithFormatter(formatter),
		WithOutput(NewConsoleOutput()),
	}

	if cfg.FilePath != "" {
		fileOut, err := NewFileOutput(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("log: open file output: %w", err)
		}
		opts = append(opts, WithOutput(fileOut))
	}

	return NewLogger(opts...), nil
}

// stdWriter adapts a Logger into an io.Writer so it can back a *log.Logger.
type stdWriter struct {
	logger Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	w.logger.Info(msg)
	return len(p), nil
}

// ToStdLogger returns a standard library *log.Logger that writes through the
// given Logger at InfoLevel, for interop with libraries that accept only the
// standard logger type.
func ToStdLogger(logger Logger) *stdlog.Logger {
	return stdlog.New(stdWriter{logger: logger}, "", 0)
}

// RedirectStdLog points the standard library's package-level logger at the
// given Logger, so calls to log.Print and friends from third-party
// dependencies flow through our pipeline too.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdWriter{logger: logger})
}

package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes formatted entries to stderr, or stdout below WarnLevel.
type ConsoleOutput struct {
	mu sync.Mutex
}

// NewConsoleOutput returns a ready-to-use ConsoleOutput.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{} }

func (c *ConsoleOutput) Write(entry *Entry, formatted []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := io.Writer(os.Stdout)
	if entry.Level >= WarnLevel {
		w = os.Stderr
	}
	_, err := w.Write(formatted)
	return err
}

func (c *ConsoleOutput) Close() error { return nil }

// FileOutput appends formatted entries to a file on disk.
type FileOutput struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileOutput opens path for appending, creating it and its formatted
// content as needed.
func NewFileOutput(path string) (*FileOutput, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{file: f}, nil
}

func (o *FileOutput) Write(entry *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.file.Write(formatted)
	return err
}

func (o *FileOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.file.Close()
}

// NullOutput discards every entry. Useful in tests that only assert on
// returned errors, not on log content.
type NullOutput struct{}

// NewNullOutput returns a NullOutput.
func NewNullOutput() *NullOutput { return &NullOutput{} }

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }

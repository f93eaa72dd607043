package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// LogRotator wraps a log file and keeps it capped to the most recent maxLines lines.
// The file is rewritten once twice the cap has been written, so rewrites stay rare.
type LogRotator struct {
	mu       sync.Mutex
	writer   io.Writer
	filePath string
	maxLines int
	recent   [][]byte // ring of the last maxLines lines
	next     int      // next write position in recent
	written  int      // lines written since the last rewrite
}

// NewLogRotator creates a new LogRotator. A non-positive maxLines disables capping.
func NewLogRotator(writer io.Writer, maxLines int, filePath string) *LogRotator {
	return &LogRotator{
		writer:   writer,
		filePath: filePath,
		maxLines: maxLines,
		recent:   make([][]byte, 0, max(maxLines, 0)),
	}
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.writer.Write(p)
	if err != nil || w.maxLines <= 0 {
		return n, err
	}

	for line := range bytes.SplitSeq(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}

		w.remember(bytes.Clone(line))
	}

	if w.written >= w.maxLines*2 {
		if err := w.rewrite(); err != nil {
			return n, fmt.Errorf("failed to rotate log file: %w", err)
		}

		w.written = len(w.recent)
	}

	return n, nil
}

// Lines returns the retained lines, oldest first.
func (w *LogRotator) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	ordered := w.ordered()
	lines := make([]string, len(ordered))

	for i, line := range ordered {
		lines[i] = string(line)
	}

	return lines
}

func (w *LogRotator) remember(line []byte) {
	if len(w.recent) < w.maxLines {
		w.recent = append(w.recent, line)
	} else {
		w.recent[w.next] = line
	}

	w.next = (w.next + 1) % w.maxLines
	w.written++
}

func (w *LogRotator) ordered() [][]byte {
	if len(w.recent) < w.maxLines {
		return w.recent
	}

	return append(append([][]byte{}, w.recent[w.next:]...), w.recent[:w.next]...)
}

// rewrite replaces the file with the retained lines and reopens it for appending.
func (w *LogRotator) rewrite() error {
	temp, err := os.CreateTemp(filepath.Dir(w.filePath), "temp-log-")
	if err != nil {
		return err
	}

	tempPath := temp.Name()

	var buf bytes.Buffer
	for _, line := range w.ordered() {
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if _, err := temp.Write(buf.Bytes()); err != nil {
		temp.Close()
		os.Remove(tempPath)

		return err
	}

	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	if closer, ok := w.writer.(io.Closer); ok {
		closer.Close()
	}

	if err := os.Rename(tempPath, w.filePath); err != nil {
		return err
	}

	file, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w.writer = file

	return nil
}

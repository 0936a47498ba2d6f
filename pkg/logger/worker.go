package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// WorkerLog is a per-worker log file. Records are written as
//
//	2025-01-02 13:04:05.123 │ INFO     │ message k=v
//
// while Stream() exposes a raw writer used for streamed LLM fragments:
// fragments are appended verbatim with no prefix or newline insertion,
// and the next regular record starts on a fresh line.
type WorkerLog struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	atLineStart bool
	logger      *slog.Logger
}

// NewWorkerLog creates logs/{name}_{timestamp}.log under dir and returns
// the worker log. The directory is created if missing.
func NewWorkerLog(dir, name string, level slog.Level) (*WorkerLog, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", name, fileTimestamp(time.Now())))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	w := &WorkerLog{
		file:        file,
		path:        path,
		atLineStart: true,
	}
	w.logger = slog.New(&workerFileHandler{log: w, minLevel: level})
	return w, nil
}

// Logger returns the slog logger bound to this file.
func (w *WorkerLog) Logger() *slog.Logger {
	return w.logger
}

// Stream returns the raw fragment writer.
func (w *WorkerLog) Stream() io.Writer {
	return &streamWriter{log: w}
}

// Path returns the log file path.
func (w *WorkerLog) Path() string {
	return w.path
}

// Close flushes and closes the underlying file.
func (w *WorkerLog) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *WorkerLog) writeRecord(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	if !w.atLineStart {
		if _, err := w.file.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err := w.file.WriteString(line)
	w.atLineStart = true
	return err
}

func (w *WorkerLog) writeRaw(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return len(p), nil
	}
	n, err := w.file.Write(p)
	if n > 0 {
		w.atLineStart = p[n-1] == '\n'
	}
	return n, err
}

// fileTimestamp renders a filename-safe timestamp with millisecond suffix
func fileTimestamp(t time.Time) string {
	return fmt.Sprintf("%s_%03d", t.Format("20060102_150405"), t.Nanosecond()/1e6)
}

// workerFileHandler renders records in the │-separated file format.
type workerFileHandler struct {
	log      *WorkerLog
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

func (h *workerFileHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

func (h *workerFileHandler) Handle(ctx context.Context, record slog.Record) error {
	levelStr := record.Level.String()
	if levelStr == "WARNING" {
		levelStr = "WARN"
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf []byte
	buf = append(buf, ts.Format("2006-01-02 15:04:05.000")...)
	buf = append(buf, " │ "...)
	buf = append(buf, fmt.Sprintf("%-8s", levelStr)...)
	buf = append(buf, " │ "...)
	buf = append(buf, record.Message...)

	appendAttr := func(a slog.Attr) {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		buf = append(buf, ' ')
		buf = append(buf, key...)
		buf = append(buf, '=')
		buf = append(buf, a.Value.String()...)
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		appendAttr(a)
		return true
	})

	buf = append(buf, '\n')
	return h.log.writeRecord(string(buf))
}

func (h *workerFileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &workerFileHandler{log: h.log, minLevel: h.minLevel, attrs: merged, group: h.group}
}

func (h *workerFileHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &workerFileHandler{log: h.log, minLevel: h.minLevel, attrs: h.attrs, group: group}
}

// streamWriter appends raw bytes to the worker log file.
type streamWriter struct {
	log *WorkerLog
}

func (s *streamWriter) Write(p []byte) (int, error) {
	return s.log.writeRaw(p)
}

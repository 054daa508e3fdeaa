// Package log persists match history as compressed JSONL streams. These
// files are the durable record; the sqlite index is rebuilt from them.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"dropzone.gg/internal/sim/match"
)

// rotatingWriter appends zstd-compressed JSONL records, cutting a new
// file every UTC hour so old hours can be shipped or pruned while the
// server keeps writing.
type rotatingWriter struct {
	dir    string
	prefix string

	mu   sync.Mutex
	hour string
	file *os.File
	zw   *zstd.Encoder
	buf  *bufio.Writer
}

func newRotatingWriter(dir, prefix string) *rotatingWriter {
	return &rotatingWriter{dir: dir, prefix: prefix}
}

func (w *rotatingWriter) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if hour := time.Now().UTC().Format("2006-01-02-15"); hour != w.hour {
		if err := w.rotate(hour); err != nil {
			return err
		}
	}
	if _, err := w.buf.Write(b); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	// Flush per record so a crash loses at most the in-flight line.
	return w.buf.Flush()
}

// rotate closes the current hour's file and opens the next. Caller holds mu.
func (w *rotatingWriter) rotate(hour string) error {
	if err := w.finish(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.file = f
	w.zw = zw
	w.buf = bufio.NewWriterSize(zw, 128*1024)
	w.hour = hour
	return nil
}

func (w *rotatingWriter) finish() error {
	if w.buf != nil {
		_ = w.buf.Flush()
		w.buf = nil
	}
	var err error
	if w.zw != nil {
		err = w.zw.Close()
		w.zw = nil
	}
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
		w.file = nil
	}
	return err
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finish()
}

// EventLogger writes match events (joins, kills, violations, endings) as
// compressed JSONL. All matches share one stream; entries carry match ids.
type EventLogger struct{ w *rotatingWriter }

func NewEventLogger(dataDir string) *EventLogger {
	return &EventLogger{w: newRotatingWriter(filepath.Join(dataDir, "events"), "events")}
}

func (l *EventLogger) WriteEvent(e match.Event) error { return l.w.write(e) }
func (l *EventLogger) Close() error                   { return l.w.Close() }

// ReportLogger archives one JSONL line per finished match.
type ReportLogger struct{ w *rotatingWriter }

func NewReportLogger(dataDir string) *ReportLogger {
	return &ReportLogger{w: newRotatingWriter(filepath.Join(dataDir, "reports"), "reports")}
}

func (l *ReportLogger) WriteReport(r *match.FinalReport) error { return l.w.write(r) }
func (l *ReportLogger) Close() error                           { return l.w.Close() }

// Package logging provides leveled logging and verdict tracing for arccheck.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A VerdictLogger for structured JSONL per-row verdict traces
//     (<dir>/verdicts.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for full per-row logging.
// At this level passing rows are traced too, not just fails and waivers.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// VerdictLogger writes structured per-row verdict events to a JSONL file.
// It is safe for concurrent use. A nil VerdictLogger is safe to use;
// all methods are no-ops on nil receiver.
type VerdictLogger struct {
	mu    sync.Mutex
	file  *os.File
	level slog.Level
}

// NewVerdictLogger creates a verdict logger writing to dir/verdicts.jsonl.
// At "info" level (the default), returns nil — no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewVerdictLogger(dir string, level string) *VerdictLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "verdicts.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &VerdictLogger{file: f, level: lvl}
}

// Log writes a verdict event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
// Safe to call on nil receiver.
func (vl *VerdictLogger) Log(event map[string]any) {
	if vl == nil || vl.file == nil {
		return
	}

	// Copy to avoid mutating caller's map
	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	vl.mu.Lock()
	defer vl.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = vl.file.Write(data)
}

// LogRow traces one (arc, parameter) decision. At debug level only fails
// and waivers are traced; passing rows are traced at trace level.
// Safe to call on nil receiver.
func (vl *VerdictLogger) LogRow(arc, corner, timingType, parameter, reason string, pass bool) {
	if vl == nil || vl.file == nil {
		return
	}
	if pass && vl.level > LevelTrace {
		return
	}
	vl.Log(map[string]any{
		"event":     "verdict",
		"arc":       arc,
		"corner":    corner,
		"type":      timingType,
		"parameter": parameter,
		"reason":    reason,
		"pass":      pass,
	})
}

// Close closes the underlying file. Safe to call on nil receiver.
func (vl *VerdictLogger) Close() {
	if vl == nil || vl.file == nil {
		return
	}

	vl.mu.Lock()
	defer vl.mu.Unlock()

	vl.file.Close()
	vl.file = nil
}

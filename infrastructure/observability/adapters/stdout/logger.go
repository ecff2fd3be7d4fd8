// Package stdout writes logs and metrics as lines on a writer, stdout by default.
package stdout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger/application/ports"
)

var jsonOutput = false

// UseJSON switches every stdout logger to one JSON object per line
func UseJSON(enabled bool) {
	jsonOutput = enabled
}

// Logger implements ports.Logger on an io.Writer
type Logger struct {
	fields map[string]interface{}
	out    *syncWriter
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, line+"\n")
}

// NewLogger creates a logger writing to stdout
func NewLogger() ports.Logger {
	return NewLoggerTo(os.Stdout)
}

// NewLoggerTo creates a logger writing to w. Tests pass io.Discard.
func NewLoggerTo(w io.Writer) ports.Logger {
	return &Logger{
		fields: make(map[string]interface{}),
		out:    &syncWriter{w: w},
	}
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log("INFO", msg, fields...)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log("ERROR", msg, fields...)
}

// WithFields returns a logger sharing the writer with the combined fields
func (l *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{fields: merged, out: l.out}
}

func (l *Logger) log(level, msg string, fields ...interface{}) {
	entry := l.entry(fields...)
	ts := time.Now().UTC().Format(time.RFC3339)

	if jsonOutput {
		entry["timestamp"] = ts
		entry["level"] = level
		entry["message"] = msg
		data, err := json.Marshal(entry)
		if err != nil {
			l.out.writeLine(fmt.Sprintf(`{"level":"ERROR","message":"failed to marshal log entry: %v"}`, err))
			return
		}
		l.out.writeLine(string(data))
		return
	}

	line := fmt.Sprintf("%s [%s] %s", ts, level, msg)
	if len(entry) > 0 {
		keys := make([]string, 0, len(entry))
		for k := range entry {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, entry[k]))
		}
		line += " | " + strings.Join(pairs, " ")
	}
	l.out.writeLine(line)
}

// entry merges persistent fields with the key/value pairs of one call
func (l *Logger) entry(fields ...interface{}) map[string]interface{} {
	entry := make(map[string]interface{}, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		entry[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, ok := fields[i+1].(error); ok && err != nil {
			entry[key] = err.Error()
			continue
		}
		entry[key] = fields[i+1]
	}
	return entry
}

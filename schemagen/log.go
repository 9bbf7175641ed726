package schemagen

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel is the severity of a log line.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a level name, defaulting to warn.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "INFO":
		return LevelInfo
	case "DEBUG":
		return LevelDebug
	default:
		return LevelWarn
	}
}

// Logger is the logging surface used by the generator.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// With returns a child logger carrying the extra fields.
	With(fields map[string]any) Logger
}

// textFormatter renders `[LEVEL] ts msg k=v ...` lines.
type textFormatter struct {
	includeTimestamp bool
}

func (f *textFormatter) format(ts time.Time, level LogLevel, msg string, fields map[string]any) []byte {
	var b strings.Builder
	b.Grow(96 + len(msg))

	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	if f.includeTimestamp {
		b.WriteString(ts.UTC().Format(time.RFC3339Nano))
		b.WriteByte(' ')
	}
	b.WriteString(msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(safeSprint(fields[k]))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func safeSprint(v any) string {
	switch t := v.(type) {
	case string:
		if strings.IndexFunc(t, func(r rune) bool { return r <= ' ' }) >= 0 {
			return fmt.Sprintf("%q", t)
		}
		return t
	case []string:
		return FormatPath(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

type defaultLogger struct {
	out       io.Writer
	level     LogLevel
	formatter *textFormatter
	fields    map[string]any

	// mu is shared by every child so lines never interleave.
	mu *sync.Mutex
}

// NewLogger returns a text logger writing to w (os.Stderr when nil).
func NewLogger(level LogLevel, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &defaultLogger{
		out:       w,
		level:     level,
		formatter: &textFormatter{includeTimestamp: true},
		fields:    map[string]any{},
		mu:        &sync.Mutex{},
	}
}

func (l *defaultLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &defaultLogger{out: l.out, level: l.level, formatter: l.formatter, fields: merged, mu: l.mu}
}

func (l *defaultLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *defaultLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *defaultLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *defaultLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *defaultLogger) logf(level LogLevel, format string, args ...any) {
	if level > l.level {
		return
	}
	line := l.formatter.format(time.Now(), level, fmt.Sprintf(format, args...), l.fields)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any)        {}
func (noopLogger) Infof(string, ...any)         {}
func (noopLogger) Warnf(string, ...any)         {}
func (noopLogger) Errorf(string, ...any)        {}
func (n noopLogger) With(map[string]any) Logger { return n }

// NopLogger discards everything.
func NopLogger() Logger { return noopLogger{} }

func loggerFor(opts Options) Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	if opts.LogLevel == "" {
		return NopLogger()
	}
	return NewLogger(ParseLogLevel(opts.LogLevel), nil)
}

// schemaSummary renders a one-line shape of node for debug logs.
func schemaSummary(node Schema) string {
	if node == nil {
		return "nil"
	}
	if ref, ok := node.str("$ref"); ok {
		return "$ref(" + ref + ")"
	}
	for _, kw := range []string{"oneOf", "anyOf", "allOf"} {
		if members, ok := node.list(kw); ok {
			return fmt.Sprintf("%s(%d)", kw, len(members))
		}
	}
	typ := strings.Join(node.types(), "|")
	if typ == "" {
		typ = "untyped"
	}
	switch {
	case node.has("enum"):
		members, _ := node.list("enum")
		return fmt.Sprintf("%s(enum:%d)", typ, len(members))
	case node.has("format"):
		f, _ := node.str("format")
		return typ + "(" + f + ")"
	}
	if props, ok := node.sub("properties"); ok {
		return typ + "{" + truncateList(sortedKeys(props), 5) + "}"
	}
	return typ
}

// truncateList joins items with "," and appends +N when cut.
func truncateList(items []string, limit int) string {
	if limit <= 0 || len(items) <= limit {
		return strings.Join(items, ",")
	}
	return strings.Join(items[:limit], ",") + fmt.Sprintf(",+%d", len(items)-limit)
}

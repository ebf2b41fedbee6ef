// Package logger configures structured logging for the CLI, the app shell
// and the background sync workers.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	formatJSON   = "json"
	formatPretty = "pretty"
)

// palette holds the escape sequences used by the pretty handler.
// The zero palette prints without colour.
type palette struct {
	reset, dim, bold, attrs string
	debug, info, warn, err  string
	other                   string
}

var colorPalette = palette{
	reset: "\033[0m",
	dim:   "\033[2m",
	bold:  "\033[1m",
	attrs: "\033[36m",
	debug: "\033[35m",
	info:  "\033[32m",
	warn:  "\033[33m",
	err:   "\033[31m",
	other: "\033[37m",
}

// Logger wraps slog.Logger with additional functionality.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Writer      io.Writer
	Format      string
	Environment string
	Level       slog.Level
	AddSource   bool
	// Plain disables ANSI colours in the pretty format. NO_COLOR forces it.
	Plain bool
}

// New creates a new logger with the given configuration.
func New(cfg Config) *Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	if cfg.Format == "" {
		if cfg.Environment == "production" {
			cfg.Format = formatJSON
		} else {
			cfg.Format = formatPretty
		}
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if source, ok := a.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == formatJSON {
		handler = slog.NewJSONHandler(cfg.Writer, opts)
	} else {
		pal := colorPalette
		if cfg.Plain || os.Getenv("NO_COLOR") != "" {
			pal = palette{}
		}
		handler = newPrettyHandler(cfg.Writer, opts, pal)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything. Intended for tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// ParseLevel converts a string to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// prettyHandler renders one human-readable line per record:
// TIME LVL source message key=value ...
type prettyHandler struct {
	opts   *slog.HandlerOptions
	pal    palette
	mu     *sync.Mutex
	writer io.Writer
	prefix string // "group." prefix applied to attribute keys
	attrs  []slog.Attr
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, pal palette) *prettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &prettyHandler{opts: opts, pal: pal, mu: &sync.Mutex{}, writer: w}
}

// Enabled reports whether the handler handles records at the given level.
func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes the log record.
func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	p := h.pal

	b.WriteString(p.dim + r.Time.Format("15:04:05") + p.reset + " ")

	label, color := h.level(r.Level)
	b.WriteString(color + label + p.reset + " ")

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		b.WriteString(p.dim + filepath.Base(f.File) + ":" + strconv.Itoa(f.Line) + p.reset + " ")
	}

	b.WriteString(p.bold + r.Message + p.reset)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	if len(attrs) > 0 {
		b.WriteString(" " + p.attrs)
		for i, a := range attrs {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeAttr(&b, "", a)
		}
		b.WriteString(p.reset)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

// WithAttrs returns a new handler with additional attributes.
func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return &next
}

// WithGroup returns a new handler with the given group.
func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *prettyHandler) qualify(a slog.Attr) slog.Attr {
	if h.prefix == "" {
		return a
	}
	return slog.Attr{Key: h.prefix + a.Key, Value: a.Value}
}

func (h *prettyHandler) level(level slog.Level) (string, string) {
	switch {
	case level < slog.LevelInfo:
		return "DBG", h.pal.debug
	case level < slog.LevelWarn:
		return "INF", h.pal.info
	case level < slog.LevelError:
		return "WRN", h.pal.warn
	case level >= slog.LevelError:
		return "ERR", h.pal.err
	default:
		return level.String(), h.pal.other
	}
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		for i, ga := range group {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeAttr(b, prefix+a.Key+".", ga)
		}
		return
	}
	b.WriteString(prefix + a.Key + "=" + formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\"") {
			return strconv.Quote(s)
		}
		return s
	default:
		return v.String()
	}
}

// WithError adds an error attribute to the logger.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(slog.String("error", err.Error()))}
}

// WithField adds a single field to the logger.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(slog.Any(key, value))}
}

// WithFields adds multiple fields to the logger.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.With(args...)}
}

// Fatal logs a fatal error and exits.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1)
}

// Fatalf logs a formatted fatal error and exits.
func (l *Logger) Fatalf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}

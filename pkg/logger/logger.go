// Package logger provides the slog setup used across the project: a
// human-readable colored handler for terminals, falling back to plain text
// when the output is not a TTY.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Options configures a Handler.
type Options struct {
	// Level is the minimum level to emit.
	Level slog.Leveler

	// NoColor disables ANSI colors.
	NoColor bool

	// TimeFormat formats the timestamp. Default: time.TimeOnly.
	TimeFormat string
}

// Handler is a colored text slog.Handler.
type Handler struct {
	opts   Options
	mu     *sync.Mutex
	out    io.Writer
	attrs  []slog.Attr
	groups []string
}

// NewHandler creates a Handler writing to out.
func NewHandler(out io.Writer, opts Options) *Handler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = time.TimeOnly
	}
	return &Handler{
		opts: opts,
		mu:   &sync.Mutex{},
		out:  out,
	}
}

// NewLogger creates a slog.Logger with a colored handler on stderr.
func NewLogger(opts Options) *slog.Logger {
	return slog.New(NewHandler(os.Stderr, opts))
}

// NewDefaultLogger creates a stderr logger at the given level with colors
// enabled.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return NewLogger(Options{Level: level})
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		b.WriteString(h.paint(colorGray, r.Time.Format(h.opts.TimeFormat)))
		b.WriteByte(' ')
	}
	b.WriteString(h.paint(levelColor(r.Level), levelLabel(r.Level)))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		h.appendAttr(&b, prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func (h *Handler) appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	b.WriteByte(' ')
	b.WriteString(h.paint(colorCyan, key))
	b.WriteByte('=')
	b.WriteString(fmt.Sprintf("%v", a.Value.Resolve().Any()))
}

func (h *Handler) paint(color, s string) string {
	if h.opts.NoColor {
		return s
	}
	return color + s + colorReset
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorGreen
	default:
		return colorGray
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

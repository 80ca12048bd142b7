package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// ConsoleHandler is a slog.Handler for operators reading a terminal:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value key="quoted value"
type ConsoleHandler struct {
	w          io.Writer
	level      slog.Leveler
	mu         *sync.Mutex
	system     string // e.g., "sync", "matcher", "ynab"
	timestamps bool
	colors     bool
	prefix     string // dotted group path applied to later keys
	attrs      []byte // preformatted attributes from WithAttrs
}

// ConsoleOptions configures a ConsoleHandler
type ConsoleOptions struct {
	Level slog.Leveler
	// HideTimestamps drops the [HH:MM:SS] column, for deterministic output.
	HideTimestamps bool
}

// NewConsoleHandler creates a console handler. Colors are used only when w is a terminal.
func NewConsoleHandler(w io.Writer, opts *ConsoleOptions) *ConsoleHandler {
	h := &ConsoleHandler{
		w:          w,
		level:      slog.LevelInfo,
		mu:         &sync.Mutex{},
		timestamps: true,
		colors:     isTerminal(w),
	}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.timestamps = !opts.HideTimestamps
	}
	return h
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Enabled reports whether the handler handles records at the given level.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	buf = h.paint(buf, levelColor(r.Level), "["+levelString(r.Level)+"]")
	if h.system != "" {
		buf = append(buf, " ["...)
		buf = append(buf, h.system...)
		buf = append(buf, ']')
	}
	if h.timestamps && !r.Time.IsZero() {
		buf = append(buf, ' ')
		buf = h.paint(buf, colorGray, "["+r.Time.Format("15:04:05")+"]")
	}

	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.prefix, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

// WithAttrs returns a handler that writes attrs on every record. A "system"
// attribute becomes the bracketed system column instead.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	for _, a := range attrs {
		if a.Key == "system" && h.prefix == "" {
			h2.system = a.Value.String()
			continue
		}
		h2.attrs = appendAttr(h2.attrs, h.prefix, a)
	}
	return h2
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.prefix = h.prefix + name + "."
	return h2
}

func (h *ConsoleHandler) clone() *ConsoleHandler {
	h2 := *h
	h2.attrs = append([]byte(nil), h.attrs...)
	return &h2
}

func (h *ConsoleHandler) paint(buf []byte, color, s string) []byte {
	if !h.colors {
		return append(buf, s...)
	}
	buf = append(buf, color...)
	buf = append(buf, s...)
	return append(buf, colorReset...)
}

// appendAttr writes " key=value", flattening groups into dotted keys
func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return buf
		}
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range group {
			buf = appendAttr(buf, prefix, ga)
		}
		return buf
	}

	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return append(buf, formatValue(a.Value)...)
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		s = v.Duration().Round(time.Millisecond).String()
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			s = x.Error()
		case *time.Time:
			if x == nil {
				return "<nil>"
			}
			s = x.Format(time.RFC3339)
		default:
			s = fmt.Sprint(x)
		}
	default:
		s = v.String()
	}

	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorCyan
	default:
		return colorGray
	}
}

// levelString returns a short, uppercase string for the log level
func levelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return level.String()
	}
}

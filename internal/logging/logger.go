package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Keys shared by engine, store and registry records.
const (
	KeyRootID     = "root_id"
	KeyGeneration = "generation"
	KeyTrigger    = "trigger"
	KeyPosition   = "position"
	KeyHandle     = "handle"
	KeyErr        = "err"
)

// New returns the logger used by the arbor commands. Records go to stderr,
// since stdout carries build output (markdown, JSON, Mermaid) and, under
// `arbor mcp`, the stdio JSON-RPC stream.
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter is New with an explicit destination.
//
// "error" keys become "err", and a Stringer logged under the handle key is
// written in its string form ("h7").
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = KeyErr
			}
			if a.Key == KeyHandle && a.Value.Kind() == slog.KindAny {
				if s, ok := a.Value.Any().(fmt.Stringer); ok {
					a.Value = slog.StringValue(s.String())
				}
			}
			return a
		},
	}))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

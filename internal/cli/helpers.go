package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/aretw0/arbor/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	once   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// Unlike signal.NotifyContext it remembers which signal arrived.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
		}
		sc.once.Do(func() {
			signal.Stop(sc.sigCh)
		})
	}()

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// descriptionNames are tried in order when a directory is given.
var descriptionNames = []string{"arbor.yaml", "arbor.yml", "tree.yaml", "main.yaml"}

// ResolveDescription returns the description file for path. A directory is
// searched for the conventional names, then for a file named after the
// directory itself.
func ResolveDescription(path string) (string, error) {
	if path == "" {
		path = "."
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("description not found: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}

	candidates := append([]string(nil), descriptionNames...)
	if abs, err := filepath.Abs(path); err == nil {
		base := filepath.Base(abs)
		candidates = append(candidates, base+".yaml", base+".yml")
	}
	for _, name := range candidates {
		p := filepath.Join(path, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no description file in %s (looked for %s)", path, strings.Join(descriptionNames, ", "))
}

// Assignment is a state write given on the command line as position=value.
type Assignment struct {
	Position domain.Position
	Value    any
}

// ParseAssignment parses "position=value". The value is decoded as JSON and
// kept as a plain string when it is not valid JSON.
func ParseAssignment(s string) (Assignment, error) {
	pos, raw, ok := strings.Cut(s, "=")
	pos = strings.TrimSpace(pos)
	if !ok || pos == "" {
		return Assignment{}, fmt.Errorf("invalid assignment %q: want position=value", s)
	}
	if !strings.HasPrefix(pos, "/") {
		pos = "/" + pos
	}

	raw = strings.TrimSpace(raw)
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	return Assignment{Position: domain.Position(pos), Value: value}, nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

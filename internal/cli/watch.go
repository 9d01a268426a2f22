package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/loader"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is how long the description file must stay quiet
// before it is reloaded. Editors often save with several events.
const DefaultWatchDebounce = 100 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Input carries position=value lines written to the tree as they arrive.
	Input    io.Reader
	Debounce time.Duration
	Render   func(string) (string, error)
}

// Watch runs the engine loop and prints every generation. Edits to the
// description file swap the root in place, so state survives at every
// position the edit keeps. It returns when ctx is done or the engine halts.
func Watch(ctx context.Context, opts Options, wopts WatchOptions, w io.Writer) error {
	if wopts.Debounce <= 0 {
		wopts.Debounce = DefaultWatchDebounce
	}
	w = &lockedWriter{w: w}

	var rt *Runtime
	printer := tui.NewPrinter(w, wopts.Render, func() []state.Entry { return rt.Engine.States() })
	rt, err := Setup(ctx, opts, arbor.WithRenderer(printer))
	if err != nil {
		return err
	}
	defer rt.Close()

	// The directory is watched so that saves which replace the file by
	// rename are seen too.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	target := filepath.Clean(rt.Path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", rt.Path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- rt.Engine.Run(ctx)
	}()

	if wopts.Input != nil {
		go readAssignments(ctx, rt, wopts.Input, w)
	}

	printSystemMessage(w, "Watching '%s'.", rt.Path)
	debounce := time.NewTimer(wopts.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case err := <-runErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-ctx.Done():
			<-runErr
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(wopts.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			rt.Logger.Warn("watcher error", "path", rt.Path, "err", err)
		case <-debounce.C:
			reload(rt, w)
		}
	}
}

func reload(rt *Runtime, w io.Writer) {
	desc, err := loader.New(nil).LoadFile(rt.Path)
	if err != nil {
		rt.Logger.Warn("description reload failed", "path", rt.Path, "err", err)
		printSystemMessage(w, "Reload failed: %v", err)
		return
	}
	rt.Logger.Info("change detected, swapping root", "path", rt.Path)
	printSystemMessage(w, "Change detected in '%s'.", rt.Path)
	rt.Description = desc
	rt.Engine.SetRoot(desc)
}

func readAssignments(ctx context.Context, rt *Runtime, r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		a, err := ParseAssignment(line)
		if err == nil {
			err = rt.Engine.Write(a.Position, a.Value)
		}
		if err != nil {
			printSystemMessage(w, "%v", err)
		}
	}
}

// lockedWriter serializes the engine's output with the watcher's messages.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

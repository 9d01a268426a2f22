package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// BuildMessage is one SSE payload: a committed build, by position.
type BuildMessage struct {
	Trigger domain.BuildTrigger `json:"trigger"`
	Nodes   int                 `json:"nodes"`
	domain.Summary
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan string]struct{}
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan string]struct{}),
		logger:      slog.Default(),
	}
}

func (sm *StreamManager) Subscribe() (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Subscribers returns the number of open streams.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			// Slow client.
			sm.logger.Warn("SSE: client buffer full, dropping message")
		}
	}
}

// Hooks returns lifecycle hooks that stream every committed build to /events.
func (s *Server) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDidBuild: func(_ context.Context, e *domain.BuildEvent) {
			msg := BuildMessage{Trigger: e.Trigger, Nodes: e.Nodes, Summary: e.Diff.Summarize()}
			msg.Generation = e.Generation
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("SSE: encode failed", "err", err)
				return
			}
			s.Streams.Broadcast(string(data))
		},
	}
}

// SubscribeEvents handles GET /events (SSE). The optional watch parameter
// (comma separated: mounted, reused, unmounted, disposed) drops builds that
// changed none of the listed groups.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var watch []string
	if v := r.URL.Query().Get("watch"); v != "" {
		for _, f := range strings.Split(v, ",") {
			watch = append(watch, strings.TrimSpace(f))
		}
	}

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !matches(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func matches(msg string, watch []string) bool {
	var m BuildMessage
	if err := json.Unmarshal([]byte(msg), &m); err != nil {
		return true
	}
	for _, field := range watch {
		switch field {
		case "mounted":
			if len(m.Mounted) > 0 {
				return true
			}
		case "reused":
			if len(m.Reused) > 0 {
				return true
			}
		case "unmounted":
			if len(m.Unmounted) > 0 {
				return true
			}
		case "disposed":
			if len(m.Disposed) > 0 {
				return true
			}
		}
	}
	return false
}

// Package sse streams session events to browsers via Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/buraco/pkg/application"
)

type client struct {
	sessionID string
	ch        chan application.SessionEvent
}

// Broker fans session events out to connected streams. It implements
// application.EventPublisher.
type Broker struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	seq     atomic.Uint64
	done    chan struct{}
	once    sync.Once
}

func NewBroker() *Broker {
	return &Broker{clients: make(map[*client]struct{}), done: make(chan struct{})}
}

// Close ends every open stream so a server can shut down.
func (b *Broker) Close() {
	b.once.Do(func() { close(b.done) })
}

// Publish delivers ev to every stream watching its session. Slow streams
// drop events.
func (b *Broker) Publish(ev application.SessionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.clients {
		if c.sessionID != "" && c.sessionID != ev.SessionID {
			continue
		}
		select {
		case c.ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of open streams.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// ServeHTTP streams every session's events, or one session's when the
// session query parameter is set.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.Stream(w, r, r.URL.Query().Get("session"))
}

// Stream writes events for sessionID (all sessions when empty) until the
// request ends. The types query parameter filters by event type.
func (b *Broker) Stream(w http.ResponseWriter, r *http.Request, sessionID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	typeFilter := make(map[string]bool)
	if types := r.URL.Query().Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			typeFilter[strings.TrimSpace(t)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	c := &client{sessionID: sessionID, ch: make(chan application.SessionEvent, 64)}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.clients, c)
		b.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case ev := <-c.ch:
			if len(typeFilter) > 0 && !typeFilter[ev.Type] {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %d\n", b.seq.Add(1))
			_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

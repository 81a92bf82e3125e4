// Package watch turns a drop folder into an intake queue: fsnotify events
// are settled per photo and handed to a Processor.
package watch

import (
	"sync"
	"time"
)

// PathDebouncer keeps the latest change for each path and releases it once
// that path has been quiet for the window. A photo copied in several writes
// is released once, with its last change type.
type PathDebouncer struct {
	window  time.Duration
	release func(ChangeEvent)

	mu      sync.Mutex
	pending map[string]*pendingChange
	stopped bool
}

type pendingChange struct {
	ev    ChangeEvent
	gen   uint64
	timer *time.Timer
}

func NewPathDebouncer(window time.Duration, release func(ChangeEvent)) *PathDebouncer {
	return &PathDebouncer{
		window:  window,
		release: release,
		pending: make(map[string]*pendingChange),
	}
}

// Add records ev and restarts the quiet window for its path.
func (d *PathDebouncer) Add(ev ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	p, ok := d.pending[ev.Path]
	if !ok {
		p = &pendingChange{}
		d.pending[ev.Path] = p
	} else {
		p.timer.Stop()
	}
	p.ev = ev
	p.gen++
	gen, path := p.gen, ev.Path
	p.timer = time.AfterFunc(d.window, func() { d.fire(path, gen) })
}

// fire releases path unless a later Add or Stop superseded this timer.
func (d *PathDebouncer) fire(path string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if !ok || p.gen != gen || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	ev := p.ev
	d.mu.Unlock()

	d.release(ev)
}

// Pending returns how many paths are still inside their window.
func (d *PathDebouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop drops every pending path; nothing is released afterwards.
func (d *PathDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
}

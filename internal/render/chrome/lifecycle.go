package chrome

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
)

// lifecycleTracker records page lifecycle events per loader so a waiter that
// arrives after the event still sees it
type lifecycleTracker struct {
	mu      sync.Mutex
	fired   map[cdp.LoaderID]map[string]struct{}
	current cdp.LoaderID
	started bool
	changed chan struct{}
}

func newLifecycleTracker() *lifecycleTracker {
	return &lifecycleTracker{
		fired:   make(map[cdp.LoaderID]map[string]struct{}),
		changed: make(chan struct{}),
	}
}

func (t *lifecycleTracker) record(loader cdp.LoaderID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	events, ok := t.fired[loader]
	if !ok {
		events = make(map[string]struct{})
		t.fired[loader] = events
	}
	events[name] = struct{}{}

	close(t.changed)
	t.changed = make(chan struct{})
}

// setCurrent marks loader as the most recent navigation.
// An empty loader is a same-document navigation and has no lifecycle of its own.
func (t *lifecycleTracker) setCurrent(loader cdp.LoaderID) {
	t.mu.Lock()
	t.current = loader
	t.started = true
	t.mu.Unlock()
}

func (t *lifecycleTracker) latest() (cdp.LoaderID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.started
}

// wait blocks until name fired for loader or ctx is done
func (t *lifecycleTracker) wait(ctx context.Context, loader cdp.LoaderID, name string) error {
	for {
		t.mu.Lock()
		if loader == "" {
			t.mu.Unlock()
			return nil
		}
		if _, ok := t.fired[loader][name]; ok {
			t.mu.Unlock()
			return nil
		}
		ch := t.changed
		t.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

package docstore

import (
	"context"
	"log"
	"sync"
)

type listFunc func(ctx context.Context) ([]Document, error)

// watcher owns one subscription. Change notifications are coalesced into a
// single pending signal; on each signal the collection is re-listed and the
// full snapshot handed to the callback.
type watcher struct {
	collection string
	list       listFunc
	onChange   func(Snapshot)

	signal chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startWatcher(parent context.Context, collection string, list listFunc, onChange func(Snapshot)) *watcher {
	ctx, cancel := context.WithCancel(parent)
	w := &watcher{
		collection: collection,
		list:       list,
		onChange:   onChange,
		signal:     make(chan struct{}, 1),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	// initial snapshot
	w.notify()
	go w.run(ctx)
	return w
}

func (w *watcher) notify() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.signal:
			docs, err := w.list(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("snapshot of %q failed: %v", w.collection, err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.onChange(Snapshot{Collection: w.collection, Documents: docs})
		}
	}
}

// stop must not be called from inside the callback.
func (w *watcher) stop() {
	w.once.Do(func() {
		w.cancel()
		<-w.done
	})
}

// hub fans change notifications out to the watchers of a collection.
type hub struct {
	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]*watcher
}

func newHub() *hub {
	return &hub{watchers: make(map[string]map[int]*watcher)}
}

func (h *hub) subscribe(ctx context.Context, collection string, list listFunc, onChange func(Snapshot)) Unsubscribe {
	w := startWatcher(ctx, collection, list, onChange)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.watchers[collection] == nil {
		h.watchers[collection] = make(map[int]*watcher)
	}
	h.watchers[collection][id] = w
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.watchers[collection], id)
		h.mu.Unlock()
		w.stop()
	}
}

func (h *hub) notify(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.watchers[collection] {
		w.notify()
	}
}

func (h *hub) close() {
	h.mu.Lock()
	var all []*watcher
	for _, ws := range h.watchers {
		for _, w := range ws {
			all = append(all, w)
		}
	}
	h.watchers = make(map[string]map[int]*watcher)
	h.mu.Unlock()

	for _, w := range all {
		w.stop()
	}
}

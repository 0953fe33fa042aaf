package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/docstore"
	"github.com/fjod/go_storefront/internal/domain"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyStarted = errors.New("cart provider already started")

// Provider holds the session-wide cart list and keeps it in sync with the
// cart collection through a live subscription. Every snapshot replaces the
// whole list.
type Provider struct {
	store      docstore.Store
	collection string
	cache      cache.CartCache

	lifecycle sync.Mutex

	mu          sync.RWMutex
	items       []domain.CartItem
	unsubscribe docstore.Unsubscribe
	closed      bool
	nextWatch   int
	watchers    map[int]chan []domain.CartItem
}

// Option configures a Provider.
type Option func(*Provider)

// WithCache persists every snapshot and seeds the list on Start.
func WithCache(c cache.CartCache) Option {
	return func(p *Provider) {
		p.cache = c
	}
}

func NewProvider(store docstore.Store, collection string, opts ...Option) *Provider {
	p := &Provider{
		store:      store,
		collection: collection,
		items:      []domain.CartItem{},
		watchers:   make(map[int]chan []domain.CartItem),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start opens the subscription. Close must be called to release it.
func (p *Provider) Start(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.RLock()
	started := p.unsubscribe != nil
	p.mu.RUnlock()
	if started {
		return ErrAlreadyStarted
	}

	p.seedFromCache(ctx)

	unsubscribe, err := p.store.Subscribe(context.WithoutCancel(ctx), p.collection, p.onSnapshot)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", p.collection, err)
	}

	p.mu.Lock()
	p.unsubscribe = unsubscribe
	p.closed = false
	p.mu.Unlock()
	return nil
}

// Close cancels the subscription and closes every watch channel.
func (p *Provider) Close() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.Lock()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.closed = true
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	p.mu.Lock()
	for id, ch := range p.watchers {
		close(ch)
		delete(p.watchers, id)
	}
	p.mu.Unlock()
}

func (p *Provider) seedFromCache(ctx context.Context) {
	if p.cache == nil {
		return
	}
	items, err := p.cache.Get(ctx, p.collection)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err)
		}
		return
	}
	p.SetItems(items)
}

func (p *Provider) onSnapshot(s docstore.Snapshot) {
	items := make([]domain.CartItem, 0, len(s.Documents))
	for _, d := range s.Documents {
		items = append(items, domain.CartItem{ID: d.ID, Fields: d.Fields})
	}
	p.SetItems(items)

	if p.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := p.cache.Set(ctx, p.collection, items); err != nil {
			log.Printf("cache set error: %v", err)
		}
	}
}

// Items returns a copy of the current cart list.
func (p *Provider) Items() []domain.CartItem {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.CartItem, len(p.items))
	copy(out, p.items)
	return out
}

// SetItems replaces the local list. The next snapshot overwrites it again.
func (p *Provider) SetItems(items []domain.CartItem) {
	if items == nil {
		items = []domain.CartItem{}
	}

	p.mu.Lock()
	p.items = items
	for _, ch := range p.watchers {
		publish(ch, items)
	}
	p.mu.Unlock()
}

// publish keeps only the newest list in the channel.
func publish(ch chan []domain.CartItem, items []domain.CartItem) {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	for {
		select {
		case ch <- out:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Watch returns a channel receiving the current list and then every
// replacement. Slow receivers only see the newest list. The channel is
// closed when ctx is done or the provider is closed. Watching a closed
// provider returns an already closed channel.
func (p *Provider) Watch(ctx context.Context) <-chan []domain.CartItem {
	ch := make(chan []domain.CartItem, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch
	}
	p.nextWatch++
	id := p.nextWatch
	p.watchers[id] = ch
	publish(ch, p.items)
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.watchers[id]; ok {
			delete(p.watchers, id)
			close(ch)
		}
	}()

	return ch
}

// ClearCart deletes every cart document concurrently and waits for all of
// them. The local list is not touched; it empties once the subscription
// observes the empty collection. Any failed delete fails the whole call,
// even though other deletes may already have been committed.
func (p *Provider) ClearCart(ctx context.Context) error {
	docs, err := p.store.List(ctx, p.collection)
	if err != nil {
		return fmt.Errorf("failed to list cart: %w", err)
	}

	var g errgroup.Group
	for _, d := range docs {
		id := d.ID
		g.Go(func() error {
			if err := p.store.Delete(ctx, p.collection, id); err != nil {
				return fmt.Errorf("failed to delete cart item %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("clear cart error: %v", err)
		return err
	}

	if p.cache != nil {
		if err := p.cache.Delete(ctx, p.collection); err != nil {
			log.Printf("cache delete error: %v", err)
		}
	}

	log.Printf("cart %s cleared (%d items)", p.collection, len(docs))
	return nil
}

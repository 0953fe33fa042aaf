package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/fjod/go_storefront/internal/docstore"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/validation"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownProduct = errors.New("unknown product")

// Collections names the store collection behind each catalog source.
type Collections struct {
	Original string
	Extra    string
}

func (c Collections) name(s domain.Source) string {
	if s == domain.SourceExtra {
		return c.Extra
	}
	return c.Original
}

// NewDraft returns the fixed record used when a product is created without
// caller-supplied values.
func NewDraft() domain.CatalogProduct {
	return domain.CatalogProduct{
		Title:     "Ny produkt",
		Price:     0,
		Breadtext: "Beskrivning saknas",
		Image:     "https://placehold.co/300x300.png",
		Quantity:  0,
	}
}

// Section is one rendered list of the editor screen.
type Section struct {
	Source   domain.Source           `json:"source"`
	Visible  bool                    `json:"visible"`
	Products []domain.CatalogProduct `json:"products"`
}

// Editor edits the original and extra catalogs. Field edits go to the edit
// cache; only Save writes to the store and then updates the committed list.
// Remote failures are logged and returned; the edit cache is never rolled back.
type Editor struct {
	store       docstore.Store
	collections Collections
	cache       *EditCache

	mu        sync.RWMutex
	committed map[domain.Source][]domain.CatalogProduct
	visible   map[domain.Source]bool
}

func NewEditor(store docstore.Store, collections Collections) *Editor {
	e := &Editor{
		store:       store,
		collections: collections,
		cache:       NewEditCache(),
		committed:   make(map[domain.Source][]domain.CatalogProduct),
		visible:     make(map[domain.Source]bool),
	}
	for _, s := range domain.Sources {
		e.committed[s] = []domain.CatalogProduct{}
		e.visible[s] = true
	}
	return e
}

// Load fetches both collections concurrently and seeds the edit cache. A
// failing collection is logged and left empty; the other one still loads.
func (e *Editor) Load(ctx context.Context) error {
	lists := make(map[domain.Source][]domain.CatalogProduct, len(domain.Sources))
	var mu sync.Mutex
	var errs []error

	var g errgroup.Group
	for _, s := range domain.Sources {
		g.Go(func() error {
			docs, err := e.store.List(ctx, e.collections.name(s))
			if err != nil {
				log.Printf("failed to fetch %s products: %v", s, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("fetch %s products: %w", s, err))
				mu.Unlock()
				return nil
			}
			products := make([]domain.CatalogProduct, 0, len(docs))
			for _, d := range docs {
				products = append(products, fromDocument(d))
			}
			mu.Lock()
			lists[s] = products
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var entries []Entry
	e.mu.Lock()
	for _, s := range domain.Sources {
		products, ok := lists[s]
		if !ok {
			products = []domain.CatalogProduct{}
		}
		e.committed[s] = products
		for _, p := range products {
			entries = append(entries, Entry{Product: p, Source: s})
		}
	}
	e.mu.Unlock()
	e.cache.Reset(entries)

	return errors.Join(errs...)
}

// AddProduct validates draft and creates it in the extra collection. The new
// product is appended to the extra list and the edit cache.
func (e *Editor) AddProduct(ctx context.Context, draft domain.CatalogProduct) (domain.CatalogProduct, error) {
	if err := validation.ValidateCatalogProduct(draft); err != nil {
		log.Printf("new product rejected: %v", err)
		return domain.CatalogProduct{}, err
	}

	draft.ID = ""
	id, err := e.store.Add(ctx, e.collections.Extra, toFields(draft))
	if err != nil {
		log.Printf("failed to add product: %v", err)
		return domain.CatalogProduct{}, fmt.Errorf("failed to add product: %w", err)
	}
	draft.ID = id

	e.mu.Lock()
	e.committed[domain.SourceExtra] = append(e.committed[domain.SourceExtra], draft)
	e.mu.Unlock()
	e.cache.Put(Entry{Product: draft, Source: domain.SourceExtra})
	return draft, nil
}

// EditField commits a finished edit of one field into the edit cache only.
// raw is parsed by the field's own parser; on failure the cache is unchanged.
func (e *Editor) EditField(id string, field domain.Field, raw string) (domain.CatalogProduct, error) {
	entry, ok, err := e.cache.Edit(id, func(p *domain.CatalogProduct) error {
		return field.Apply(p, raw)
	})
	if !ok {
		return domain.CatalogProduct{}, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	if err != nil {
		return entry.Product, fmt.Errorf("invalid %s: %w", field, err)
	}
	return entry.Product, nil
}

// Save validates the cached record and writes it to the collection it came
// from, then merges it into the committed list.
func (e *Editor) Save(ctx context.Context, id string) (domain.CatalogProduct, error) {
	entry, ok := e.cache.Get(id)
	if !ok {
		return domain.CatalogProduct{}, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}

	if err := validation.ValidateCatalogProduct(entry.Product); err != nil {
		log.Printf("save of %s rejected: %v", id, err)
		return domain.CatalogProduct{}, err
	}

	fields := toFields(entry.Product)
	if err := e.store.Update(ctx, e.collections.name(entry.Source), id, fields); err != nil {
		log.Printf("failed to save product %s: %v", id, err)
		return domain.CatalogProduct{}, fmt.Errorf("failed to save product: %w", err)
	}

	e.mu.Lock()
	list := e.committed[entry.Source]
	for i := range list {
		if list[i].ID == id {
			list[i] = entry.Product
		}
	}
	e.mu.Unlock()
	return entry.Product, nil
}

// Cached returns the pending record for id.
func (e *Editor) Cached(id string) (domain.CatalogProduct, bool) {
	entry, ok := e.cache.Get(id)
	return entry.Product, ok
}

// Committed returns a copy of the list last confirmed by the store.
func (e *Editor) Committed(s domain.Source) []domain.CatalogProduct {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.CatalogProduct, len(e.committed[s]))
	copy(out, e.committed[s])
	return out
}

func (e *Editor) SetVisible(s domain.Source, visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible[s] = visible
}

// Toggle flips the visibility of a section and returns the new state.
func (e *Editor) Toggle(s domain.Source) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible[s] = !e.visible[s]
	return e.visible[s]
}

func (e *Editor) Visible(s domain.Source) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.visible[s]
}

// View returns both sections in committed-list order with the edit cache's
// values. Hidden sections carry no products.
func (e *Editor) View() []Section {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sections := make([]Section, 0, len(domain.Sources))
	for _, s := range domain.Sources {
		sec := Section{Source: s, Visible: e.visible[s], Products: []domain.CatalogProduct{}}
		if sec.Visible {
			for _, p := range e.committed[s] {
				if entry, ok := e.cache.Get(p.ID); ok {
					p = entry.Product
				}
				sec.Products = append(sec.Products, p)
			}
		}
		sections = append(sections, sec)
	}
	return sections
}

func toFields(p domain.CatalogProduct) docstore.Fields {
	return docstore.Fields{
		"title":     p.Title,
		"price":     p.Price,
		"breadtext": p.Breadtext,
		"image":     p.Image,
		"quantity":  p.Quantity,
	}
}

func fromDocument(d docstore.Document) domain.CatalogProduct {
	p := domain.CatalogProduct{
		ID:        d.ID,
		Title:     domain.Text(d.Fields["title"]),
		Breadtext: domain.Text(d.Fields["breadtext"]),
		Image:     domain.Text(d.Fields["image"]),
	}
	if n, ok := domain.Number(d.Fields["price"]); ok {
		p.Price = n
	}
	if n, ok := domain.Number(d.Fields["quantity"]); ok {
		p.Quantity = int(n)
	}
	return p
}

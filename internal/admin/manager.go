package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fjod/go_storefront/internal/docstore"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/validation"
	"golang.org/x/sync/singleflight"
)

// Field error keys and messages shown next to the inputs.
const (
	KeyNewName  = "newName"
	KeyNewPrice = "newPrice"
	KeyName     = "namn"
	KeyPrice    = "pris"

	MsgNameRequired  = "Namn krävs"
	MsgPriceRequired = "Pris krävs"
	MsgInvalidPrice  = "Ogiltigt pris"
)

var ErrUnknownProduct = errors.New("unknown product")

// Update carries the fields to change. Nil fields are left alone.
type Update struct {
	Name  *string `json:"namn,omitempty"`
	Price *string `json:"pris,omitempty"`
}

// Manager owns the product list of the admin screen. The list is fetched
// once by Load and afterwards only changed by this manager's own writes.
type Manager struct {
	store      docstore.Store
	collection string

	mu       sync.RWMutex
	products []domain.AdminProduct
	sfg      singleflight.Group
}

func NewManager(store docstore.Store, collection string) *Manager {
	return &Manager{
		store:      store,
		collection: collection,
		products:   []domain.AdminProduct{},
	}
}

// Load fetches every product and replaces the local list. Concurrent calls
// share one fetch.
func (m *Manager) Load(ctx context.Context) error {
	_, err, _ := m.sfg.Do("load", func() (interface{}, error) {
		docs, err := m.store.List(ctx, m.collection)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch products: %w", err)
		}

		list := make([]domain.AdminProduct, 0, len(docs))
		for _, d := range docs {
			list = append(list, fromDocument(d))
		}

		m.mu.Lock()
		m.products = list
		m.mu.Unlock()
		return nil, nil
	})
	return err
}

// Products returns a copy of the local list.
func (m *Manager) Products() []domain.AdminProduct {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.AdminProduct, len(m.products))
	copy(out, m.products)
	return out
}

// ValidateNew checks the add form and returns per-field messages.
func ValidateNew(name, price string) validation.FieldErrors {
	errs := validation.FieldErrors{}
	if strings.TrimSpace(name) == "" {
		errs[KeyNewName] = MsgNameRequired
	}
	if _, err := domain.ParsePrice(price); err != nil {
		if errors.Is(err, domain.ErrPriceRequired) {
			errs[KeyNewPrice] = MsgPriceRequired
		} else {
			errs[KeyNewPrice] = MsgInvalidPrice
		}
	}
	return errs
}

// AddProduct validates the form, creates the document and appends it with
// the id assigned by the store. A validation failure returns
// validation.FieldErrors and makes no remote call.
func (m *Manager) AddProduct(ctx context.Context, name, price string) (domain.AdminProduct, error) {
	if errs := ValidateNew(name, price); len(errs) > 0 {
		return domain.AdminProduct{}, errs
	}
	p, _ := domain.ParsePrice(price)

	id, err := m.store.Add(ctx, m.collection, docstore.Fields{
		KeyName:  name,
		KeyPrice: p,
	})
	if err != nil {
		return domain.AdminProduct{}, fmt.Errorf("failed to add product: %w", err)
	}

	product := domain.AdminProduct{ID: id, Name: name, Price: p}
	m.mu.Lock()
	m.products = append(m.products, product)
	m.mu.Unlock()
	return product, nil
}

// UpdateProduct writes the changed fields and merges them into the local
// entry. An invalid price or blank name returns validation.FieldErrors
// without a remote call.
func (m *Manager) UpdateProduct(ctx context.Context, id string, upd Update) error {
	fields := docstore.Fields{}
	errs := validation.FieldErrors{}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			errs[KeyName] = MsgNameRequired
		} else {
			fields[KeyName] = *upd.Name
		}
	}
	if upd.Price != nil {
		p, err := domain.ParsePrice(*upd.Price)
		if err != nil {
			errs[KeyPrice] = MsgInvalidPrice
		} else {
			fields[KeyPrice] = p
		}
	}
	if len(errs) > 0 {
		return errs
	}
	if len(fields) == 0 {
		return nil
	}

	if err := m.store.Update(ctx, m.collection, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownProduct, id)
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	m.mu.Lock()
	for i := range m.products {
		if m.products[i].ID == id {
			applyFields(&m.products[i], fields)
		}
	}
	m.mu.Unlock()
	return nil
}

// DeleteProduct removes the document and then the local entry.
func (m *Manager) DeleteProduct(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, m.collection, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	m.mu.Lock()
	kept := m.products[:0]
	for _, p := range m.products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	m.products = kept
	m.mu.Unlock()
	return nil
}

func fromDocument(d docstore.Document) domain.AdminProduct {
	p := domain.AdminProduct{ID: d.ID}
	applyFields(&p, d.Fields)
	return p
}

func applyFields(p *domain.AdminProduct, fields docstore.Fields) {
	if v, ok := fields[KeyName]; ok {
		p.Name = domain.Text(v)
	}
	if v, ok := fields[KeyPrice]; ok {
		if n, ok := domain.Number(v); ok {
			p.Price = n
		}
	}
}

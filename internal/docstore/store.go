package docstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrEmptyID       = errors.New("document id is empty")
	ErrEmptyName     = errors.New("collection name is empty")
	ErrStoreClosed   = errors.New("document store is closed")
	ErrNilSubscriber = errors.New("subscriber callback is nil")
)

// Fields holds the field name -> value mapping of a document.
type Fields map[string]any

// Clone returns a shallow copy of the fields.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Document is a single record with a store-assigned identifier.
type Document struct {
	ID     string
	Fields Fields
}

// Snapshot is the full content of a collection at one point in time.
type Snapshot struct {
	Collection string
	Documents  []Document
}

// Unsubscribe cancels a live subscription. It blocks until no further
// callback is running and may be called more than once.
type Unsubscribe func()

// Store defines the operations consumed from the remote document store.
// Consumers depend on this interface, not on a concrete backend.
type Store interface {
	// List returns every document currently in the collection.
	List(ctx context.Context, collection string) ([]Document, error)

	// Add creates a document and returns the id assigned by the store.
	Add(ctx context.Context, collection string, fields Fields) (string, error)

	// Update shallow-merges fields into an existing document.
	// Returns ErrNotFound when the id does not exist.
	Update(ctx context.Context, collection, id string, fields Fields) error

	// Delete removes a document. Deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Subscribe delivers an initial snapshot and a full snapshot after every
	// change until the returned Unsubscribe is called or ctx is done.
	// Snapshots may coalesce; the latest state is always delivered.
	Subscribe(ctx context.Context, collection string, onChange func(Snapshot)) (Unsubscribe, error)
}

func checkCollection(collection string) error {
	if collection == "" {
		return ErrEmptyName
	}
	return nil
}

func checkDocument(collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if id == "" {
		return ErrEmptyID
	}
	return nil
}

package docstore

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("document store unavailable")

// BreakerStore guards a Store with a circuit breaker. Caller-side errors
// (not found, bad arguments, cancelled contexts) do not count as failures.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
}

// BreakerSettings controls when the breaker trips and how long it stays open.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func NewBreakerStore(next Store, st BreakerSettings) *BreakerStore {
	if st.ConsecutiveFailures == 0 {
		st.ConsecutiveFailures = 5
	}
	if st.OpenTimeout == 0 {
		st.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    st.Name,
		Timeout: st.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= st.ConsecutiveFailures
		},
		IsSuccessful: isCallerError,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("breaker %s: %s -> %s", name, from, to)
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

func isCallerError(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEmptyID) ||
		errors.Is(err, ErrEmptyName) ||
		errors.Is(err, context.Canceled)
}

func (b *BreakerStore) execute(fn func() (any, error)) (any, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return v, err
}

func (b *BreakerStore) List(ctx context.Context, collection string) ([]Document, error) {
	v, err := b.execute(func() (any, error) {
		return b.next.List(ctx, collection)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Document), nil
}

func (b *BreakerStore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	v, err := b.execute(func() (any, error) {
		return b.next.Add(ctx, collection, fields)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *BreakerStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.Update(ctx, collection, id, fields)
	})
	return err
}

func (b *BreakerStore) Delete(ctx context.Context, collection, id string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.Delete(ctx, collection, id)
	})
	return err
}

func (b *BreakerStore) Subscribe(ctx context.Context, collection string, onChange func(Snapshot)) (Unsubscribe, error) {
	return b.next.Subscribe(ctx, collection, onChange)
}

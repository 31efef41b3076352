// Package kv stores the order list in the client-local key-value store under
// the single logical key "orders".
package kv

import (
	"context"
	"errors"
	"sync"

	"github.com/wyshkit/orderflow/internal/order/domain"
	"github.com/wyshkit/orderflow/internal/platform/kvstore"
)

const ordersKey = "orders"

// OrderRepo guards the single orders record. Every mutation goes through
// Update under the repo's lock, so services sharing one OrderRepo instance
// can never clobber each other's writes; wire exactly one instance per
// store.
type OrderRepo struct {
	store kvstore.Store
	mu    sync.Mutex
}

func NewOrderRepo(store kvstore.Store) *OrderRepo {
	return &OrderRepo{store: store}
}

// List returns all stored orders. A missing or discarded-as-corrupt record
// falls back to the empty list.
func (r *OrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.store.Get(ctx, ordersKey, &orders)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Update applies mutate to the current order list and persists the result,
// holding the repo lock across the whole read-modify-write. Returning an
// error from mutate abandons the write.
func (r *OrderRepo) Update(ctx context.Context, mutate func(orders []domain.Order) ([]domain.Order, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders, err := r.List(ctx)
	if err != nil {
		return err
	}
	updated, err := mutate(orders)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, ordersKey, updated)
}

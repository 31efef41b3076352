package app

import (
	"context"

	"github.com/wyshkit/orderflow/internal/order/domain"
)

// OrderRepo persists the order list as one logical record. Orders are never
// deleted, so the repo has no delete operation. Mutations go through Update:
// the repo serializes the read-modify-write, so concurrent writers (this
// service, the preview workflow) always act on the latest list.
type OrderRepo interface {
	// List returns all stored orders, newest first. An empty store yields an
	// empty list.
	List(ctx context.Context) ([]domain.Order, error)
	// Update applies mutate to the current list and persists the result
	// atomically with respect to every other Update on the same repo. An
	// error from mutate abandons the write.
	Update(ctx context.Context, mutate func(orders []domain.Order) ([]domain.Order, error)) error
}

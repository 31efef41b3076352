package app

import (
	"context"

	"github.com/wyshkit/orderflow/internal/cart/domain"
)

type CartRepo interface {
	// Get returns the customer's cart, or an empty cart when none is stored.
	Get(ctx context.Context, customerID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
	// Watch emits the customer id of every cart record change until the
	// returned cancel func is called.
	Watch() (<-chan string, func())
}

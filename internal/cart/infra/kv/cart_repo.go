// Package kv stores carts in the client-local key-value store, one record
// per customer under "cart/<customerID>".
package kv

import (
	"context"
	"errors"
	"strings"

	"github.com/wyshkit/orderflow/internal/cart/domain"
	"github.com/wyshkit/orderflow/internal/platform/kvstore"
)

type CartRepo struct {
	store kvstore.Store
}

func NewCartRepo(store kvstore.Store) *CartRepo {
	return &CartRepo{store: store}
}

func key(customerID string) string {
	return "cart/" + customerID
}

// Get returns the stored cart. A missing or discarded-as-corrupt record
// falls back to the empty cart, which is the caller's default.
func (r *CartRepo) Get(ctx context.Context, customerID string) (domain.Cart, error) {
	var cart domain.Cart
	err := r.store.Get(ctx, key(customerID), &cart)
	if errors.Is(err, kvstore.ErrNotFound) {
		return domain.Cart{CustomerID: customerID}, nil
	}
	if err != nil {
		return domain.Cart{CustomerID: customerID}, err
	}
	return cart, nil
}

func (r *CartRepo) Save(ctx context.Context, cart domain.Cart) error {
	return r.store.Put(ctx, key(cart.CustomerID), cart)
}

// Watch narrows the store's change feed to cart records, emitting customer
// ids.
func (r *CartRepo) Watch() (<-chan string, func()) {
	changes, cancel := r.store.Subscribe()
	out := make(chan string, 16)
	go func() {
		defer close(out)
		for ch := range changes {
			if id, ok := strings.CutPrefix(ch.Key, "cart/"); ok {
				select {
				case out <- id:
				default:
					// best effort; a dropped signal only delays the reload
				}
			}
		}
	}()
	return out, cancel
}

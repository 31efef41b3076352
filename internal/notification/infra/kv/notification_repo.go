// Package kv persists notification feeds in the key-value store, one record
// per customer.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyshkit/orderflow/internal/notification/domain"
	"github.com/wyshkit/orderflow/internal/platform/kvstore"
)

type NotificationRepo struct {
	store kvstore.Store
}

func NewNotificationRepo(store kvstore.Store) *NotificationRepo {
	return &NotificationRepo{store: store}
}

func key(customerID string) string {
	return "notifications/" + customerID
}

// ListByCustomer returns the stored feed. A missing record means an empty
// feed, never an error.
func (r *NotificationRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Notification, error) {
	var feed []domain.Notification
	if err := r.store.Get(ctx, key(customerID), &feed); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load notifications %s: %w", customerID, err)
	}
	return feed, nil
}

func (r *NotificationRepo) Save(ctx context.Context, customerID string, feed []domain.Notification) error {
	if err := r.store.Put(ctx, key(customerID), feed); err != nil {
		return fmt.Errorf("save notifications %s: %w", customerID, err)
	}
	return nil
}

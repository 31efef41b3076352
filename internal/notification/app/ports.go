package app

import (
	"context"

	"github.com/wyshkit/orderflow/internal/notification/domain"
)

// Repo stores each customer's notification feed.
type Repo interface {
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Notification, error)
	Save(ctx context.Context, customerID string, feed []domain.Notification) error
}

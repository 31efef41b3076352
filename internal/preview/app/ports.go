package app

import (
	"context"

	"github.com/wyshkit/orderflow/internal/order/domain"
)

// OrderRepo is the durable order list. Transitions mutate it through Update,
// which serializes the read-modify-write against every other writer of the
// same record, so no transition is ever applied against a stale snapshot.
type OrderRepo interface {
	List(ctx context.Context) ([]domain.Order, error)
	Update(ctx context.Context, mutate func(orders []domain.Order) ([]domain.Order, error)) error
}

// Capturer finalizes a previously authorized payment for one order item.
// Invoked exactly once per approval transition; the coordinator side must
// treat a retried capture for an already-captured item as a safe no-op.
type Capturer interface {
	Capture(ctx context.Context, orderItemID string) error
}

type EventKind string

const (
	EventPreviewReady      EventKind = "preview_ready"
	EventPreviewApproved   EventKind = "preview_approved"
	EventRevisionRequested EventKind = "revision_requested"
)

type Event struct {
	Kind  EventKind
	Order domain.Order
	Item  domain.OrderItem
}

// Notifier receives workflow events after they commit. Delivery failures are
// the notifier's problem; the engine fires and forgets.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

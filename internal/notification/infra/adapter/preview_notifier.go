// Package adapter bridges preview workflow events into the notification
// feed.
package adapter

import (
	"context"
	"fmt"
	"log/slog"

	notifapp "github.com/wyshkit/orderflow/internal/notification/app"
	"github.com/wyshkit/orderflow/internal/notification/domain"
	previewapp "github.com/wyshkit/orderflow/internal/preview/app"
)

// WorkflowNotifier turns preview events into customer notifications. Pushing
// is best effort: a failed push is logged, never propagated back into the
// workflow transition.
type WorkflowNotifier struct {
	notifications *notifapp.Service
	log           *slog.Logger
}

func NewWorkflowNotifier(notifications *notifapp.Service, log *slog.Logger) *WorkflowNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &WorkflowNotifier{notifications: notifications, log: log}
}

func (n *WorkflowNotifier) Notify(ctx context.Context, ev previewapp.Event) {
	notif := domain.Notification{
		CustomerID:  ev.Order.CustomerID,
		OrderID:     ev.Order.ID,
		OrderItemID: ev.Item.ID,
	}

	switch ev.Kind {
	case previewapp.EventPreviewReady:
		notif.Kind = domain.KindPreviewReady
		notif.Title = "Your preview is ready"
		notif.Body = fmt.Sprintf("The preview for %s in order %s is ready for review.", ev.Item.Name, ev.Order.OrderNumber)
	case previewapp.EventPreviewApproved:
		notif.Kind = domain.KindPreviewApproved
		notif.Title = "Preview approved"
		notif.Body = fmt.Sprintf("%s in order %s has moved to production.", ev.Item.Name, ev.Order.OrderNumber)
	case previewapp.EventRevisionRequested:
		notif.Kind = domain.KindRevisionRequested
		notif.Title = "Revision requested"
		notif.Body = fmt.Sprintf("A revision was requested for %s in order %s.", ev.Item.Name, ev.Order.OrderNumber)
	default:
		return
	}

	if _, err := n.notifications.Push(ctx, notif); err != nil {
		n.log.Warn("notification push failed",
			slog.String("customer_id", ev.Order.CustomerID),
			slog.String("order_item_id", ev.Item.ID),
			slog.Any("err", err))
	}
}

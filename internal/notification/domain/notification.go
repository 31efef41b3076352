// Package domain holds the notification model. Notifications are a
// per-customer append-only feed; reading one marks it, deleting is not a
// thing the feed supports.
package domain

import "time"

type Kind string

const (
	KindPreviewReady      Kind = "preview_ready"
	KindPreviewApproved   Kind = "preview_approved"
	KindRevisionRequested Kind = "revision_requested"
)

type Notification struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	OrderID     string    `json:"order_id,omitempty"`
	OrderItemID string    `json:"order_item_id,omitempty"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

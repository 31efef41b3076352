package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order's aggregate state. While any item is under preview
// review it is derived from the item set, never set independently.
type Status string

const (
	// StatusPreviewPending: at least one item awaits preview work or review.
	StatusPreviewPending Status = "preview_pending"
	// StatusConfirmed: initial status of an order with nothing to review.
	StatusConfirmed Status = "confirmed"
	// StatusRevisionRequested: a customer rejected at least one preview.
	StatusRevisionRequested Status = "revision_requested"
	// StatusInProduction: every reviewable item is approved.
	StatusInProduction Status = "in_production"
)

// PreviewStatus is the per-item review state.
type PreviewStatus string

const (
	// PreviewNone is terminal: the item carries no personalizations and
	// never enters review.
	PreviewNone PreviewStatus = "NONE"
	// PreviewPending: waiting for the partner to produce a preview.
	PreviewPending PreviewStatus = "PENDING"
	// PreviewReady: a preview awaits the customer's verdict.
	PreviewReady PreviewStatus = "PREVIEW_READY"
	// PreviewApproved is terminal: the customer (or the deadline) signed off.
	PreviewApproved PreviewStatus = "PREVIEW_APPROVED"
	// RevisionRequested: the customer rejected the preview; a new upload
	// returns the item to PreviewReady.
	RevisionRequested PreviewStatus = "REVISION_REQUESTED"
)

type Personalization struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

type DeliveryAddress struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	House   string `json:"house"`
	Area    string `json:"area"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
	Label   string `json:"label,omitempty"`
}

type OrderItem struct {
	ID               string            `json:"id"`
	ProductRef       string            `json:"product_ref"`
	Name             string            `json:"name"`
	ImageURL         string            `json:"image_url,omitempty"`
	Quantity         int32             `json:"quantity"`
	UnitPrice        decimal.Decimal   `json:"unit_price"`
	TotalPrice       decimal.Decimal   `json:"total_price"`
	Personalizations []Personalization `json:"personalizations,omitempty"`

	PreviewStatus       PreviewStatus `json:"preview_status"`
	PreviewURLs         []string      `json:"preview_urls,omitempty"`
	PreviewGeneratedAt  *time.Time    `json:"preview_generated_at,omitempty"`
	PreviewApprovedAt   *time.Time    `json:"preview_approved_at,omitempty"`
	PreviewDeadline     *time.Time    `json:"preview_deadline,omitempty"`
	RevisionCount       int32         `json:"revision_count"`
	RevisionNotes       string        `json:"revision_notes,omitempty"`
	RevisionRequestedAt *time.Time    `json:"revision_requested_at,omitempty"`
	CustomizationFiles  []string      `json:"customization_files,omitempty"`
}

func (i OrderItem) NeedsPreview() bool {
	return len(i.Personalizations) > 0
}

// Order is created once from a cart snapshot and never deleted. Only status,
// updatedAt and metadata change afterwards; item preview fields advance
// through the workflow engine.
type Order struct {
	ID              string            `json:"id"`
	OrderNumber     string            `json:"order_number"`
	CustomerID      string            `json:"customer_id"`
	PartnerID       string            `json:"partner_id"`
	Status          Status            `json:"status"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DeliveryAddress DeliveryAddress   `json:"delivery_address"`
	PaymentMethod   string            `json:"payment_method"`
	TaxID           string            `json:"tax_id,omitempty"`
	IsBusinessOrder bool              `json:"is_business_order,omitempty"`
	Items           []OrderItem       `json:"items"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ItemByID returns a pointer into Items, or nil.
func (o *Order) ItemByID(itemID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// DeriveStatus computes the aggregate order status from the item set.
// Precedence: revision_requested > preview_pending > in_production. It is a
// pure function: recomputing it is always safe and never carries side
// effects.
func DeriveStatus(items []OrderItem) Status {
	anyUnderReview := false
	for _, item := range items {
		switch item.PreviewStatus {
		case RevisionRequested:
			return StatusRevisionRequested
		case PreviewPending, PreviewReady:
			anyUnderReview = true
		}
	}
	if anyUnderReview {
		return StatusPreviewPending
	}
	return StatusInProduction
}

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyshkit/orderflow/internal/order/domain"
	"github.com/wyshkit/orderflow/pkg/id"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrInvalidInput = errors.New("invalid order input")
)

type CreateOrderItem struct {
	ProductRef       string
	Name             string
	ImageURL         string
	Quantity         int32
	UnitPrice        decimal.Decimal
	Personalizations []domain.Personalization
}

type CreateOrderRequest struct {
	CustomerID      string
	PartnerID       string
	Items           []CreateOrderItem
	DeliveryAddress domain.DeliveryAddress
	PaymentMethod   string
	TaxID           string
}

// Service creates and queries orders. Writes go through the repo's Update,
// so every mutation is a read-modify-write against the latest durable list,
// serialized with every other writer of the same record.
type Service struct {
	repo OrderRepo
	now  func() time.Time
}

func NewService(repo OrderRepo) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock overrides the service clock. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreateOrder snapshots the request into a durable order. Items carrying
// personalizations start in PENDING preview review, the rest in NONE; the
// aggregate starts as preview_pending when anything needs review, else
// confirmed.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	if strings.TrimSpace(req.CustomerID) == "" || len(req.Items) == 0 {
		return domain.Order{}, ErrInvalidInput
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: item %d: quantity must be positive, got %d", ErrInvalidInput, i, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return domain.Order{}, fmt.Errorf("%w: item %d: unit price cannot be negative", ErrInvalidInput, i)
		}
	}

	now := s.now()
	needsPreview := false
	subtotal := decimal.Zero
	orderItems := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		qty := decimal.NewFromInt32(item.Quantity)
		lineTotal := item.UnitPrice.Mul(qty)
		for _, p := range item.Personalizations {
			lineTotal = lineTotal.Add(p.Price.Mul(qty))
		}
		subtotal = subtotal.Add(lineTotal)

		status := domain.PreviewNone
		if len(item.Personalizations) > 0 {
			status = domain.PreviewPending
			needsPreview = true
		}
		orderItems = append(orderItems, domain.OrderItem{
			ID:               id.New("order_item"),
			ProductRef:       item.ProductRef,
			Name:             item.Name,
			ImageURL:         item.ImageURL,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			TotalPrice:       lineTotal,
			Personalizations: item.Personalizations,
			PreviewStatus:    status,
		})
	}

	status := domain.StatusConfirmed
	if needsPreview {
		status = domain.StatusPreviewPending
	}

	var order domain.Order
	err := s.repo.Update(ctx, func(orders []domain.Order) ([]domain.Order, error) {
		order = domain.Order{
			ID:              id.New("order"),
			OrderNumber:     s.nextOrderNumber(orders, now),
			CustomerID:      req.CustomerID,
			PartnerID:       req.PartnerID,
			Status:          status,
			Subtotal:        subtotal,
			TotalAmount:     subtotal,
			CreatedAt:       now,
			UpdatedAt:       now,
			DeliveryAddress: req.DeliveryAddress,
			PaymentMethod:   req.PaymentMethod,
			TaxID:           req.TaxID,
			IsBusinessOrder: req.TaxID != "",
			Items:           orderItems,
		}
		// newest first
		return append([]domain.Order{order}, orders...), nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// GetOrder looks an order up by id or by its human-facing order number.
func (s *Service) GetOrder(ctx context.Context, idOrNumber string) (domain.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	for _, order := range orders {
		if order.ID == idOrNumber || order.OrderNumber == idOrNumber {
			return order, nil
		}
	}
	return domain.Order{}, ErrNotFound
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Order
	for _, order := range orders {
		if order.CustomerID == customerID {
			out = append(out, order)
		}
	}
	return out, nil
}

// UpdateStatus sets the aggregate status directly and merges metadata. Meant
// for transitions outside the preview workflow (backend reconciliation,
// cancellation notes); while items are under review the workflow engine owns
// the status.
func (s *Service) UpdateStatus(ctx context.Context, idOrNumber string, status domain.Status, metadata map[string]string) (domain.Order, error) {
	var updated domain.Order
	err := s.repo.Update(ctx, func(orders []domain.Order) ([]domain.Order, error) {
		for i := range orders {
			if orders[i].ID != idOrNumber && orders[i].OrderNumber != idOrNumber {
				continue
			}
			orders[i].Status = status
			orders[i].UpdatedAt = s.now()
			if len(metadata) > 0 {
				if orders[i].Metadata == nil {
					orders[i].Metadata = make(map[string]string, len(metadata))
				}
				for k, v := range metadata {
					orders[i].Metadata[k] = v
				}
			}
			updated = orders[i]
			return orders, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

// nextOrderNumber derives a human-facing number from the clock, suffixed
// until unique within the store. It only needs per-store uniqueness.
func (s *Service) nextOrderNumber(orders []domain.Order, now time.Time) string {
	base := fmt.Sprintf("ORD-%08d", now.UnixMilli()%100_000_000)
	candidate := base
	for suffix := 2; ; suffix++ {
		taken := false
		for _, order := range orders {
			if order.OrderNumber == candidate {
				taken = true
				break
			}
		}
		if !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	orderdomain "github.com/wyshkit/orderflow/internal/order/domain"
)

var (
	ErrEmptyCart = errors.New("cart is empty")

	// ErrCartClearFailed means the order was durably created but the cart
	// could not be emptied afterwards. The order is returned alongside it;
	// callers retry the clear, they do not treat checkout as failed.
	ErrCartClearFailed = errors.New("order created but cart clear failed")
)

type Personalization struct {
	ID    string
	Label string
	Price decimal.Decimal
}

type CartItem struct {
	ProductRef       string
	PartnerID        string
	Name             string
	ImageURL         string
	Quantity         int32
	UnitPrice        decimal.Decimal
	Personalizations []Personalization
}

type Cart struct {
	Items []CartItem
}

func (c Cart) PartnerID() string {
	if len(c.Items) == 0 {
		return ""
	}
	return c.Items[0].PartnerID
}

type CartReader interface {
	GetCart(ctx context.Context, customerID string) (Cart, error)
	ClearCart(ctx context.Context, customerID string) error
}

type PlaceRequest struct {
	CustomerID      string
	PartnerID       string
	Items           []CartItem
	DeliveryAddress orderdomain.DeliveryAddress
	PaymentMethod   string
	TaxID           string
}

type OrderPlacer interface {
	Place(ctx context.Context, req PlaceRequest) (orderdomain.Order, error)
}

// Service turns a cart snapshot into an order. Order creation and cart
// clearing are two separate durable operations on purpose.
type Service struct {
	cart   CartReader
	orders OrderPlacer
	log    *slog.Logger
}

func NewService(cart CartReader, orders OrderPlacer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{cart: cart, orders: orders, log: log}
}

func (s *Service) Checkout(ctx context.Context, customerID string, addr orderdomain.DeliveryAddress, paymentMethod, taxID string) (orderdomain.Order, error) {
	cart, err := s.cart.GetCart(ctx, customerID)
	if err != nil {
		return orderdomain.Order{}, err
	}
	if len(cart.Items) == 0 {
		return orderdomain.Order{}, ErrEmptyCart
	}

	order, err := s.orders.Place(ctx, PlaceRequest{
		CustomerID:      customerID,
		PartnerID:       cart.PartnerID(),
		Items:           cart.Items,
		DeliveryAddress: addr,
		PaymentMethod:   paymentMethod,
		TaxID:           taxID,
	})
	if err != nil {
		return orderdomain.Order{}, err
	}

	if err := s.cart.ClearCart(ctx, customerID); err != nil {
		// the order is already durable; do not report checkout as failed
		s.log.Warn("cart clear after checkout failed",
			slog.String("customer_id", customerID),
			slog.String("order_id", order.ID),
			slog.Any("err", err))
		return order, fmt.Errorf("%w: %v", ErrCartClearFailed, err)
	}
	return order, nil
}

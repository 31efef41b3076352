package adapter

import (
	"context"

	"github.com/wyshkit/orderflow/internal/checkout/app"
	orderapp "github.com/wyshkit/orderflow/internal/order/app"
	orderdomain "github.com/wyshkit/orderflow/internal/order/domain"
)

// OrderServicePlacer adapts the order service to the checkout OrderPlacer port.
type OrderServicePlacer struct {
	svc *orderapp.Service
}

func NewOrderServicePlacer(svc *orderapp.Service) *OrderServicePlacer {
	return &OrderServicePlacer{svc: svc}
}

var _ app.OrderPlacer = (*OrderServicePlacer)(nil)

func (p *OrderServicePlacer) Place(ctx context.Context, req app.PlaceRequest) (orderdomain.Order, error) {
	items := make([]orderapp.CreateOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		personalizations := make([]orderdomain.Personalization, 0, len(item.Personalizations))
		for _, pers := range item.Personalizations {
			personalizations = append(personalizations, orderdomain.Personalization{
				ID:    pers.ID,
				Label: pers.Label,
				Price: pers.Price,
			})
		}
		items = append(items, orderapp.CreateOrderItem{
			ProductRef:       item.ProductRef,
			Name:             item.Name,
			ImageURL:         item.ImageURL,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			Personalizations: personalizations,
		})
	}

	return p.svc.CreateOrder(ctx, orderapp.CreateOrderRequest{
		CustomerID:      req.CustomerID,
		PartnerID:       req.PartnerID,
		Items:           items,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		TaxID:           req.TaxID,
	})
}

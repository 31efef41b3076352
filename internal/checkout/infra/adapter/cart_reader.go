package adapter

import (
	"context"

	cartapp "github.com/wyshkit/orderflow/internal/cart/app"
	"github.com/wyshkit/orderflow/internal/checkout/app"
)

// CartServiceReader adapts the cart manager to the checkout CartReader port.
type CartServiceReader struct {
	svc *cartapp.Service
}

func NewCartServiceReader(svc *cartapp.Service) *CartServiceReader {
	return &CartServiceReader{svc: svc}
}

var _ app.CartReader = (*CartServiceReader)(nil)

func (r *CartServiceReader) GetCart(ctx context.Context, customerID string) (app.Cart, error) {
	cart, err := r.svc.GetCart(ctx, customerID)
	if err != nil {
		return app.Cart{}, err
	}

	items := make([]app.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		personalizations := make([]app.Personalization, 0, len(item.Personalizations))
		for _, p := range item.Personalizations {
			personalizations = append(personalizations, app.Personalization{
				ID:    p.ID,
				Label: p.Label,
				Price: p.Price,
			})
		}
		items = append(items, app.CartItem{
			ProductRef:       item.ProductRef,
			PartnerID:        item.PartnerID,
			Name:             item.Name,
			ImageURL:         item.ImageURL,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			Personalizations: personalizations,
		})
	}
	return app.Cart{Items: items}, nil
}

func (r *CartServiceReader) ClearCart(ctx context.Context, customerID string) error {
	return r.svc.Clear(ctx, customerID)
}

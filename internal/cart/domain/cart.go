package domain

import "github.com/shopspring/decimal"

// Personalization is a customer-selected customization attached to an item.
// Its presence is what later puts the order item through preview review.
type Personalization struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

type CartItem struct {
	ID               string            `json:"id"`
	ProductRef       string            `json:"product_ref"`
	PartnerID        string            `json:"partner_id"`
	Name             string            `json:"name"`
	ImageURL         string            `json:"image_url,omitempty"`
	UnitPrice        decimal.Decimal   `json:"unit_price"`
	Quantity         int32             `json:"quantity"`
	Personalizations []Personalization `json:"personalizations,omitempty"`
}

func (i CartItem) NeedsPreview() bool {
	return len(i.Personalizations) > 0
}

// Cart is the pre-order basket. A non-empty cart holds items from exactly
// one partner; quantity 0 is never stored (it means removal).
type Cart struct {
	CustomerID string     `json:"customer_id"`
	Items      []CartItem `json:"items"`
}

// PartnerID returns the single partner owning the cart, or "" when empty.
func (c Cart) PartnerID() string {
	if len(c.Items) == 0 {
		return ""
	}
	return c.Items[0].PartnerID
}

func (c Cart) Count() int32 {
	var n int32
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		qty := decimal.NewFromInt32(item.Quantity)
		line := item.UnitPrice.Mul(qty)
		for _, p := range item.Personalizations {
			line = line.Add(p.Price.Mul(qty))
		}
		total = total.Add(line)
	}
	return total
}

// SinglePartner reports whether every item shares one partner id. This is
// the invariant checked at every mutation boundary.
func (c Cart) SinglePartner() bool {
	if len(c.Items) == 0 {
		return true
	}
	first := c.Items[0].PartnerID
	for _, item := range c.Items[1:] {
		if item.PartnerID != first {
			return false
		}
	}
	return true
}

package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/wyshkit/orderflow/internal/cart/domain"
	"github.com/wyshkit/orderflow/pkg/id"
)

var ErrInvalidItem = errors.New("invalid cart item")

// PartnerConflict is the expected, caller-resolvable outcome of adding an
// item from a different partner. It is a result, not a failure: the cart is
// untouched and the caller decides between ReplaceCart and abandoning the add.
type PartnerConflict struct {
	CurrentPartnerID  string `json:"current_partner_id"`
	IncomingPartnerID string `json:"incoming_partner_id"`
}

type AddResult struct {
	Cart     domain.Cart
	Conflict *PartnerConflict
}

// Service is the cart manager. Mutations are optimistic: the in-memory view
// changes before the durable write, and a failed write re-reads the store so
// the view never diverges from durable state.
type Service struct {
	repo CartRepo
	log  *slog.Logger

	mu    sync.Mutex
	views map[string]domain.Cart
}

func NewService(repo CartRepo, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:  repo,
		log:   log,
		views: make(map[string]domain.Cart),
	}
}

func (s *Service) GetCart(ctx context.Context, customerID string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(ctx, customerID)
}

// AddItem inserts the item, merging quantities for the same product from the
// same partner. Adding across partners yields a PartnerConflict result and
// leaves the cart untouched.
func (s *Service) AddItem(ctx context.Context, customerID string, item domain.CartItem) (AddResult, error) {
	if strings.TrimSpace(item.ProductRef) == "" || strings.TrimSpace(item.PartnerID) == "" {
		return AddResult{}, ErrInvalidItem
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.currentLocked(ctx, customerID)
	if err != nil {
		return AddResult{}, err
	}

	if current := cart.PartnerID(); current != "" && current != item.PartnerID {
		return AddResult{
			Cart: cart,
			Conflict: &PartnerConflict{
				CurrentPartnerID:  current,
				IncomingPartnerID: item.PartnerID,
			},
		}, nil
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductRef == item.ProductRef && cart.Items[i].PartnerID == item.PartnerID {
			cart.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		if item.ID == "" {
			item.ID = id.New("cart_item")
		}
		cart.Items = append(cart.Items, item)
	}

	saved, err := s.persistLocked(ctx, cart)
	return AddResult{Cart: saved}, err
}

// UpdateQuantity sets the item's quantity exactly; qty <= 0 removes the item.
// An unknown item id is a no-op.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, itemID string, qty int32) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.currentLocked(ctx, customerID)
	if err != nil {
		return cart, err
	}

	if qty <= 0 {
		return s.removeLocked(ctx, cart, itemID)
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items[i].Quantity = qty
			return s.persistLocked(ctx, cart)
		}
	}
	return cart, nil
}

// RemoveItem removes the item unconditionally; an absent id is success.
func (s *Service) RemoveItem(ctx context.Context, customerID, itemID string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.currentLocked(ctx, customerID)
	if err != nil {
		return cart, err
	}
	return s.removeLocked(ctx, cart, itemID)
}

// Clear empties the cart. Called after a successful checkout.
func (s *Service) Clear(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.persistLocked(ctx, domain.Cart{CustomerID: customerID})
	return err
}

// ReplaceCart resolves a partner conflict in favor of the incoming item: the
// cart is cleared and the item becomes its sole member.
func (s *Service) ReplaceCart(ctx context.Context, customerID string, item domain.CartItem) (domain.Cart, error) {
	if strings.TrimSpace(item.ProductRef) == "" || strings.TrimSpace(item.PartnerID) == "" {
		return domain.Cart{}, ErrInvalidItem
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if item.ID == "" {
		item.ID = id.New("cart_item")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := domain.Cart{CustomerID: customerID, Items: []domain.CartItem{item}}
	return s.persistLocked(ctx, cart)
}

// WatchChanges drops cached views whose backing record changed, so writes
// from outside this service are picked up on the next read. The service's
// own writes invalidate too; the next read just reloads what it wrote.
// Returns when ctx is cancelled or the change feed closes.
func (s *Service) WatchChanges(ctx context.Context) {
	changes, cancel := s.repo.Watch()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case customerID, ok := <-changes:
			if !ok {
				return
			}
			s.mu.Lock()
			delete(s.views, customerID)
			s.mu.Unlock()
		}
	}
}

func (s *Service) removeLocked(ctx context.Context, cart domain.Cart, itemID string) (domain.Cart, error) {
	kept := cart.Items[:0:0]
	for _, it := range cart.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(cart.Items) {
		// absent id, nothing to persist
		return cart, nil
	}
	cart.Items = kept
	return s.persistLocked(ctx, cart)
}

// currentLocked returns the optimistic view, loading it from the store on
// first use.
func (s *Service) currentLocked(ctx context.Context, customerID string) (domain.Cart, error) {
	if cart, ok := s.views[customerID]; ok {
		return cart, nil
	}
	cart, err := s.repo.Get(ctx, customerID)
	if err != nil {
		return domain.Cart{CustomerID: customerID}, err
	}
	cart.CustomerID = customerID
	s.views[customerID] = cart
	return cart, nil
}

// persistLocked applies the mutation optimistically, then writes through. A
// failed write reconciles the view from durable state and reports the
// failure; the optimistic change is discarded, never left dangling.
func (s *Service) persistLocked(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if !cart.SinglePartner() {
		return s.views[cart.CustomerID], ErrInvalidItem
	}
	s.views[cart.CustomerID] = cart

	if err := s.repo.Save(ctx, cart); err != nil {
		authoritative, readErr := s.repo.Get(ctx, cart.CustomerID)
		if readErr != nil {
			delete(s.views, cart.CustomerID)
			s.log.Error("cart reconcile read failed", slog.String("customer_id", cart.CustomerID), slog.Any("err", readErr))
			return domain.Cart{CustomerID: cart.CustomerID}, err
		}
		authoritative.CustomerID = cart.CustomerID
		s.views[cart.CustomerID] = authoritative
		return authoritative, err
	}
	return cart, nil
}

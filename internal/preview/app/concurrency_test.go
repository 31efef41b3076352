package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	orderapp "github.com/wyshkit/orderflow/internal/order/app"
	"github.com/wyshkit/orderflow/internal/order/domain"
	orderkv "github.com/wyshkit/orderflow/internal/order/infra/kv"
	"github.com/wyshkit/orderflow/internal/platform/kvstore"
	"github.com/wyshkit/orderflow/internal/preview/app"
)

// stallStore parks the first read after arming, holding whichever
// read-modify-write issued it in flight until released.
type stallStore struct {
	kvstore.Store
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallStore) Get(ctx context.Context, key string, dest any) error {
	err := s.Store.Get(ctx, key, dest)
	if s.armed.Load() {
		s.once.Do(func() {
			close(s.entered)
			<-s.release
		})
	}
	return err
}

func TestTransitionDoesNotEraseConcurrentOrder(t *testing.T) {
	ctx := context.Background()
	base := kvstore.NewMemory(nil)
	t.Cleanup(func() { _ = base.Close() })
	stall := &stallStore{Store: base, entered: make(chan struct{}), release: make(chan struct{})}

	repo := orderkv.NewOrderRepo(stall)
	previews := app.NewService(repo, newFakeCapturer(), 48*time.Hour, nil)
	orders := orderapp.NewService(repo)

	first, err := orders.CreateOrder(ctx, orderapp.CreateOrderRequest{
		CustomerID: "cust-1",
		PartnerID:  "P1",
		Items: []orderapp.CreateOrderItem{{
			ProductRef: "mug", Name: "Custom Mug", Quantity: 1,
			UnitPrice: decimal.NewFromInt(500),
			Personalizations: []domain.Personalization{
				{ID: "p1", Label: "Engraving"},
			},
		}},
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	itemID := first.Items[0].ID

	// park the transition between its read and its write
	stall.armed.Store(true)
	genDone := make(chan error, 1)
	go func() {
		_, err := previews.GeneratePreview(ctx, itemID, []string{"u"})
		genDone <- err
	}()
	<-stall.entered

	var second domain.Order
	createDone := make(chan error, 1)
	go func() {
		o, err := orders.CreateOrder(ctx, orderapp.CreateOrderRequest{
			CustomerID: "cust-2",
			PartnerID:  "P2",
			Items: []orderapp.CreateOrderItem{{
				ProductRef: "card", Name: "Card", Quantity: 1,
				UnitPrice: decimal.NewFromInt(50),
			}},
			PaymentMethod: "upi",
		})
		second = o
		createDone <- err
	}()

	// the create must wait for the in-flight transition, not interleave
	select {
	case <-createDone:
		t.Fatal("order creation completed while a transition held the order list")
	case <-time.After(50 * time.Millisecond):
	}

	close(stall.release)
	if err := <-genDone; err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := <-createDone; err != nil {
		t.Fatalf("create second: %v", err)
	}

	// both writes survive: the second order exists and the transition stuck
	if _, err := orders.GetOrder(ctx, second.ID); err != nil {
		t.Fatalf("order %s vanished after the transition committed: %v", second.ID, err)
	}
	stored, err := orders.GetOrder(ctx, first.ID)
	if err != nil {
		t.Fatalf("get first: %v", err)
	}
	if got := stored.ItemByID(itemID).PreviewStatus; got != domain.PreviewReady {
		t.Fatalf("expected PREVIEW_READY, got %s", got)
	}
}

func TestConcurrentApprovalCapturesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.createPersonalizedOrder(t)
	itemID := order.Items[0].ID

	if _, err := f.svc.GeneratePreview(ctx, itemID, []string{"u"}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	var g errgroup.Group
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := f.svc.Approve(ctx, itemID)
			results <- err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	close(results)

	won, lost := 0, 0
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, app.ErrInvalidTransition):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != 7 {
		t.Fatalf("expected exactly one winner, got %d winners %d losers", won, lost)
	}
	if got := f.capturer.count(itemID); got != 1 {
		t.Fatalf("capture fired %d times under contention, want exactly 1", got)
	}
}

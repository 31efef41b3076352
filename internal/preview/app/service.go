package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyshkit/orderflow/internal/order/domain"
	"github.com/wyshkit/orderflow/pkg/metrics"
)

var (
	ErrItemNotFound = errors.New("order item not found")
	ErrNoPreviewURL = errors.New("at least one preview url is required")

	// ErrInvalidTransition means the state machine precondition was
	// violated. The transition is rejected, never silently applied.
	ErrInvalidTransition = errors.New("invalid preview transition")
)

// CaptureError reports a payment-capture failure AFTER the approval
// committed. The approval stands; capture is retried out of band.
type CaptureError struct {
	OrderItemID string
	Err         error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("payment capture failed for item %s: %v", e.OrderItemID, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Service is the per-item preview state machine:
//
//	PENDING -> PREVIEW_READY -> PREVIEW_APPROVED (terminal)
//	                         -> REVISION_REQUESTED -> PREVIEW_READY
//
// Every transition is a read-validate-write through the repo's Update, so it
// runs against the latest durable state, serialized with every other writer
// of the order list, and recomputes the order's aggregate status from the
// item set.
type Service struct {
	repo     OrderRepo
	capturer Capturer
	deadline time.Duration
	log      *slog.Logger

	notifier Notifier
	workflow *metrics.Workflow
	now      func() time.Time
}

func NewService(repo OrderRepo, capturer Capturer, deadline time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		capturer: capturer,
		deadline: deadline,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier attaches a workflow event listener.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetMetrics attaches transition/capture counters.
func (s *Service) SetMetrics(w *metrics.Workflow) { s.workflow = w }

// SetClock overrides the service clock. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// GeneratePreview attaches preview renderings to the item and opens the
// review window. Valid from PENDING and, for re-uploads after a rejection,
// from REVISION_REQUESTED; the revision counter does not change on the
// re-entry edge.
func (s *Service) GeneratePreview(ctx context.Context, orderItemID string, urls []string) (domain.Order, error) {
	if len(urls) == 0 {
		return domain.Order{}, ErrNoPreviewURL
	}

	order, err := s.transition(ctx, "generate_preview", orderItemID, func(item *domain.OrderItem) error {
		if item.PreviewStatus != domain.PreviewPending && item.PreviewStatus != domain.RevisionRequested {
			return s.reject("generate_preview", orderItemID, item.PreviewStatus)
		}
		now := s.now()
		deadline := now.Add(s.deadline)
		item.PreviewStatus = domain.PreviewReady
		item.PreviewURLs = urls
		item.PreviewGeneratedAt = &now
		item.PreviewDeadline = &deadline
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.emit(ctx, EventPreviewReady, order, orderItemID)
	return order, nil
}

// Approve moves the item into its terminal approved state and then invokes
// the payment-capture coordinator exactly once. A capture failure is
// surfaced as *CaptureError but the committed approval is never rolled back.
func (s *Service) Approve(ctx context.Context, orderItemID string) (domain.Order, error) {
	order, err := s.transition(ctx, "approve", orderItemID, func(item *domain.OrderItem) error {
		if item.PreviewStatus != domain.PreviewReady {
			return s.reject("approve", orderItemID, item.PreviewStatus)
		}
		now := s.now()
		item.PreviewStatus = domain.PreviewApproved
		item.PreviewApprovedAt = &now
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.emit(ctx, EventPreviewApproved, order, orderItemID)

	if err := s.capturer.Capture(ctx, orderItemID); err != nil {
		s.countCapture("error")
		s.log.Error("payment capture failed after approval",
			slog.String("order_item_id", orderItemID),
			slog.String("order_id", order.ID),
			slog.Any("err", err))
		return order, &CaptureError{OrderItemID: orderItemID, Err: err}
	}
	s.countCapture("ok")
	return order, nil
}

// RequestRevision records the customer's rejection of the current preview.
// The rejected renderings stay attached for reference; only this edge
// increments the revision counter.
func (s *Service) RequestRevision(ctx context.Context, orderItemID, notes string) (domain.Order, error) {
	order, err := s.transition(ctx, "request_revision", orderItemID, func(item *domain.OrderItem) error {
		if item.PreviewStatus != domain.PreviewReady {
			return s.reject("request_revision", orderItemID, item.PreviewStatus)
		}
		now := s.now()
		item.PreviewStatus = domain.RevisionRequested
		item.RevisionCount++
		item.RevisionNotes = notes
		item.RevisionRequestedAt = &now
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.emit(ctx, EventRevisionRequested, order, orderItemID)
	return order, nil
}

// ExpiredReadyItems returns the ids of items whose review window has lapsed.
func (s *Service) ExpiredReadyItems(ctx context.Context) ([]string, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var expired []string
	for _, order := range orders {
		for _, item := range order.Items {
			if item.PreviewStatus == domain.PreviewReady &&
				item.PreviewDeadline != nil && now.After(*item.PreviewDeadline) {
				expired = append(expired, item.ID)
			}
		}
	}
	return expired, nil
}

// transition applies mutate to the item inside the repo's read-modify-write,
// recomputes the order's aggregate status, and returns the updated order.
// The precondition check runs inside mutate, so it always sees the exact
// state the write will be applied to.
func (s *Service) transition(ctx context.Context, transition, orderItemID string, mutate func(item *domain.OrderItem) error) (domain.Order, error) {
	var updated domain.Order
	err := s.repo.Update(ctx, func(orders []domain.Order) ([]domain.Order, error) {
		for oi := range orders {
			for ii := range orders[oi].Items {
				if orders[oi].Items[ii].ID != orderItemID {
					continue
				}
				if err := mutate(&orders[oi].Items[ii]); err != nil {
					return nil, err
				}
				orders[oi].Status = domain.DeriveStatus(orders[oi].Items)
				orders[oi].UpdatedAt = s.now()
				updated = orders[oi]
				return orders, nil
			}
		}
		return nil, ErrItemNotFound
	})
	switch {
	case err == nil:
		s.countTransition(transition, "ok")
		return updated, nil
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrItemNotFound):
		// reject already counted; a missing item is not a storage failure
		return domain.Order{}, err
	default:
		s.countTransition(transition, "error")
		return domain.Order{}, err
	}
}

func (s *Service) reject(transition, orderItemID string, current domain.PreviewStatus) error {
	s.countTransition(transition, "rejected")
	s.log.Warn("preview transition rejected",
		slog.String("transition", transition),
		slog.String("order_item_id", orderItemID),
		slog.String("current_status", string(current)))
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, transition, current)
}

func (s *Service) emit(ctx context.Context, kind EventKind, order domain.Order, orderItemID string) {
	if s.notifier == nil {
		return
	}
	item := order.ItemByID(orderItemID)
	if item == nil {
		return
	}
	s.notifier.Notify(ctx, Event{Kind: kind, Order: order, Item: *item})
}

func (s *Service) countTransition(transition, result string) {
	if s.workflow != nil {
		s.workflow.Transitions.WithLabelValues(transition, result).Inc()
	}
}

func (s *Service) countCapture(result string) {
	if s.workflow != nil {
		s.workflow.Captures.WithLabelValues(result).Inc()
	}
}

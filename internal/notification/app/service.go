package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wyshkit/orderflow/internal/notification/domain"
	"github.com/wyshkit/orderflow/pkg/id"
)

var (
	ErrNotFound     = errors.New("notification not found")
	ErrInvalidInput = errors.New("invalid notification input")
)

// Service maintains per-customer notification feeds, newest first.
type Service struct {
	repo Repo
	log  *slog.Logger
	now  func() time.Time

	mu sync.Mutex
}

func NewService(repo Repo, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Push appends a notification to the customer's feed. The id and timestamp
// are assigned here; callers fill in the rest.
func (s *Service) Push(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if strings.TrimSpace(n.CustomerID) == "" || strings.TrimSpace(n.Title) == "" {
		return domain.Notification{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.repo.ListByCustomer(ctx, n.CustomerID)
	if err != nil {
		return domain.Notification{}, err
	}

	n.ID = id.New("notification")
	n.CreatedAt = s.now()
	feed = append([]domain.Notification{n}, feed...)

	if err := s.repo.Save(ctx, n.CustomerID, feed); err != nil {
		return domain.Notification{}, fmt.Errorf("save feed: %w", err)
	}
	return n, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]domain.Notification, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// MarkRead flags one notification as read. Marking an already-read entry is
// a no-op that still succeeds.
func (s *Service) MarkRead(ctx context.Context, customerID, notificationID string) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return domain.Notification{}, err
	}
	for i := range feed {
		if feed[i].ID != notificationID {
			continue
		}
		if feed[i].Read {
			return feed[i], nil
		}
		feed[i].Read = true
		if err := s.repo.Save(ctx, customerID, feed); err != nil {
			return domain.Notification{}, fmt.Errorf("save feed: %w", err)
		}
		return feed[i], nil
	}
	return domain.Notification{}, ErrNotFound
}

// UnreadCount reports how many feed entries are still unread.
func (s *Service) UnreadCount(ctx context.Context, customerID string) (int, error) {
	feed, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}
	unread := 0
	for _, n := range feed {
		if !n.Read {
			unread++
		}
	}
	return unread, nil
}

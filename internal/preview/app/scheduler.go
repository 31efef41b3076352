package app

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler auto-approves previews whose review window lapsed, so an
// unresponsive customer cannot block production indefinitely. It polls; the
// deadline itself is a timestamp comparison, not a suspended timer.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	log      *slog.Logger
}

func NewScheduler(svc *Service, interval time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{svc: svc, interval: interval, log: log}
}

// Run polls until ctx is cancelled. There is no pending work to cancel:
// stopping between ticks is always safe.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error("deadline scan failed", slog.Any("err", err))
			}
		}
	}
}

// RunOnce scans for lapsed PREVIEW_READY items and approves each as if the
// customer had done it. Items that changed state since the scan are skipped
// (the approve precondition re-checks current state), so a second pass is a
// no-op and capture fires at most once per item.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	expired, err := s.svc.ExpiredReadyItems(ctx)
	if err != nil {
		return 0, err
	}

	approved := 0
	for _, itemID := range expired {
		_, err := s.svc.Approve(ctx, itemID)
		switch {
		case err == nil:
			approved++
			s.log.Info("preview auto-approved past deadline", slog.String("order_item_id", itemID))
		case errors.Is(err, ErrInvalidTransition):
			// state moved on between scan and approve, nothing to do
		default:
			var capErr *CaptureError
			if errors.As(err, &capErr) {
				// the approval committed; only the capture needs a retry
				approved++
				s.log.Warn("auto-approval committed but capture failed",
					slog.String("order_item_id", itemID), slog.Any("err", capErr.Err))
				continue
			}
			s.log.Error("auto-approval failed", slog.String("order_item_id", itemID), slog.Any("err", err))
		}
	}
	return approved, nil
}

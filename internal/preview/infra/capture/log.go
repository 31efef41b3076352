package capture

import (
	"context"
	"log/slog"
)

// LogCoordinator stands in for the real coordinator in dev mode: it records
// the capture and reports success.
type LogCoordinator struct {
	log *slog.Logger
}

func NewLogCoordinator(log *slog.Logger) *LogCoordinator {
	if log == nil {
		log = slog.Default()
	}
	return &LogCoordinator{log: log}
}

func (c *LogCoordinator) Capture(ctx context.Context, orderItemID string) error {
	c.log.Info("payment capture (dev mode)", slog.String("order_item_id", orderItemID))
	return nil
}

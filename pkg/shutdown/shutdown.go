// Package shutdown ties process lifecycle to OS signals.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// WithSignals derives a context that is cancelled on SIGINT or SIGTERM.
// Cancelling the returned func releases the signal watcher.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(ch)
		select {
		case <-ctx.Done():
			return
		case <-ch:
			cancel()
		}
	}()

	return ctx, cancel
}

// Graceful returns a fresh deadline context for shutdown work. It is
// deliberately detached from the signal context, which is already cancelled
// by the time draining starts.
func Graceful(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

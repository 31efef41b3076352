package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	cartapp "github.com/wyshkit/orderflow/internal/cart/app"
	cartkv "github.com/wyshkit/orderflow/internal/cart/infra/kv"
	checkoutapp "github.com/wyshkit/orderflow/internal/checkout/app"
	checkoutadapter "github.com/wyshkit/orderflow/internal/checkout/infra/adapter"
	httpapi "github.com/wyshkit/orderflow/internal/http"
	notifapp "github.com/wyshkit/orderflow/internal/notification/app"
	notifadapter "github.com/wyshkit/orderflow/internal/notification/infra/adapter"
	notifkv "github.com/wyshkit/orderflow/internal/notification/infra/kv"
	orderapp "github.com/wyshkit/orderflow/internal/order/app"
	orderkv "github.com/wyshkit/orderflow/internal/order/infra/kv"
	"github.com/wyshkit/orderflow/internal/platform/kvstore"
	previewapp "github.com/wyshkit/orderflow/internal/preview/app"
	"github.com/wyshkit/orderflow/internal/preview/infra/capture"
	"github.com/wyshkit/orderflow/pkg/config"
	"github.com/wyshkit/orderflow/pkg/logger"
	"github.com/wyshkit/orderflow/pkg/metrics"
	"github.com/wyshkit/orderflow/pkg/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	log := logger.New(logger.Options{
		Service:   "orderflow",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
	})
	slog.SetDefault(log)

	root := context.Background()
	ctx, cancel := shutdown.WithSignals(root)
	defer cancel()

	store, err := kvstore.OpenSqlite(cfg.StorePath, log)
	if err != nil {
		log.Error("store open failed", slog.String("path", cfg.StorePath), slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close()

	var capturer previewapp.Capturer
	if cfg.CaptureURL != "" {
		capturer = capture.NewHTTPCoordinator(cfg.CaptureURL)
	} else {
		log.Warn("no capture url configured, captures are logged only")
		capturer = capture.NewLogCoordinator(log)
	}

	// one repo instance: its lock serializes every writer of the order list
	orderRepo := orderkv.NewOrderRepo(store)

	carts := cartapp.NewService(cartkv.NewCartRepo(store), log)
	orders := orderapp.NewService(orderRepo)
	checkout := checkoutapp.NewService(
		checkoutadapter.NewCartServiceReader(carts),
		checkoutadapter.NewOrderServicePlacer(orders),
		log,
	)
	notifications := notifapp.NewService(notifkv.NewNotificationRepo(store), log)

	previews := previewapp.NewService(orderRepo, capturer, cfg.PreviewDeadline, log)
	previews.SetNotifier(notifadapter.NewWorkflowNotifier(notifications, log))
	previews.SetMetrics(metrics.NewWorkflow(nil))

	api := httpapi.NewServer(httpapi.Deps{
		Carts:         carts,
		Checkout:      checkout,
		Orders:        orders,
		Previews:      previews,
		Notifications: notifications,
		Log:           log,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		carts.WatchChanges(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sched := previewapp.NewScheduler(previews, cfg.PreviewPollInterval, log)
		log.Info("deadline scheduler starting", slog.Duration("interval", cfg.PreviewPollInterval))
		sched.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := shutdown.Graceful(10 * time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()
	log.Info("bye")
}

package main

import (
	"context"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lenshaus/storefront-core/internal/cart"
	"github.com/lenshaus/storefront-core/internal/catalog"
	"github.com/lenshaus/storefront-core/internal/checkout"
	"github.com/lenshaus/storefront-core/internal/notify"
	"github.com/lenshaus/storefront-core/internal/rx"
	"github.com/lenshaus/storefront-core/internal/session"
	"github.com/lenshaus/storefront-core/internal/wishlist"
	"github.com/lenshaus/storefront-core/pkg/api"
	"github.com/lenshaus/storefront-core/pkg/config"
	"github.com/lenshaus/storefront-core/pkg/logger"
	"github.com/lenshaus/storefront-core/pkg/metrics"
	"github.com/lenshaus/storefront-core/pkg/storage"
)

// tokenBridge lets the API client read the bearer token from a session store
// that is itself constructed on top of the client.
type tokenBridge struct {
	mu  sync.Mutex
	src api.TokenSource
}

func (b *tokenBridge) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.src == nil {
		return ""
	}
	return b.src.Token()
}

func (b *tokenBridge) bind(src api.TokenSource) {
	b.mu.Lock()
	b.src = src
	b.mu.Unlock()
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.Storage, logg)
	if err != nil {
		logg.Error(ctx, "failed to open local storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(ctx, "error closing local storage", err)
		}
	}()

	notices := notify.NewQueue(cfg.Notify)

	var sess *session.Store
	bridge := &tokenBridge{}
	apiMetrics := metrics.NewAPIMetrics(prometheus.DefaultRegisterer)
	client, err := api.NewClient(api.Params{
		Config:  cfg.API,
		Logger:  logg,
		Metrics: apiMetrics,
		Tokens:  bridge,
		OnUnauthorized: func() {
			if sess != nil {
				sess.ForcedLogout()
			}
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to build api client", err)
		os.Exit(1)
	}

	sess, err = session.NewStore(session.Params{API: client, Storage: store, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to build session store", err)
		os.Exit(1)
	}
	bridge.bind(sess)

	cartStore, err := cart.NewStore(ctx, cart.Params{
		API:           client,
		Storage:       store,
		Logger:        logg,
		Authenticated: sess.Authenticated,
	})
	if err != nil {
		logg.Error(ctx, "failed to build cart store", err)
		os.Exit(1)
	}

	wishlistStore, err := wishlist.NewStore(wishlist.Params{API: client, Session: sess, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to build wishlist store", err)
		os.Exit(1)
	}

	rxStore, err := rx.NewStore(cfg.Rx, store, logg)
	if err != nil {
		logg.Error(ctx, "failed to build prescription store", err)
		os.Exit(1)
	}

	catalogStore, err := catalog.NewStore(catalog.Params{API: client, Logger: logg, Config: cfg.Catalog})
	if err != nil {
		logg.Error(ctx, "failed to build catalog store", err)
		os.Exit(1)
	}

	if _, err := checkout.NewService(checkout.Params{
		API:     client,
		Cart:    cartStore,
		Rx:      rxStore,
		Session: sess,
		Logger:  logg,
		Config:  cfg.Cart,
	}); err != nil {
		logg.Error(ctx, "failed to build checkout service", err)
		os.Exit(1)
	}

	sess.Subscribe(func(event session.Event) {
		switch event.Type {
		case session.EventLogin:
			if _, err := cartStore.SyncOnLogin(ctx); err != nil {
				notices.PushError(err)
			}
			if _, err := wishlistStore.Refresh(ctx); err != nil {
				notices.PushError(err)
			}
		case session.EventLogout:
			wishlistStore.DropLocal()
		}
	})

	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"api":     cfg.API.BaseURL,
		"storage": cfg.Storage.Driver,
	})
	logg.Info(ctx, "storefront core ready")

	if identity := sess.Restore(ctx); identity != nil {
		logg.Info(logg.WithUserID(ctx, identity.ID), "session restored")
	} else {
		logg.Info(ctx, "starting anonymous")
	}

	products, err := catalogStore.Products(ctx)
	if err != nil {
		logg.Error(ctx, "catalog warm-up failed", err)
	}
	categories, _ := catalogStore.Categories(ctx)
	banners, _ := catalogStore.Banners(ctx)

	snapshot := cartStore.Snapshot()
	logg.Info(logg.WithFields(ctx, map[string]any{
		"products":   len(products),
		"categories": len(categories),
		"banners":    len(banners),
		"cart_lines": len(snapshot.Lines),
		"cart_count": snapshot.Count,
		"wishlist":   len(wishlistStore.Entries()),
		"notices":    len(notices.Active()),
	}), "storefront state")
}

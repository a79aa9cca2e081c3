// Package catalog is a fetch-through read cache over the browse endpoints.
// It is also the cart's source of last-known prices. A network failure falls
// back to the cached copy when one exists.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lenshaus/storefront-core/pkg/config"
	pkgerrors "github.com/lenshaus/storefront-core/pkg/errors"
	"github.com/lenshaus/storefront-core/pkg/logger"
	"github.com/lenshaus/storefront-core/pkg/types"
)

type catalogAPI interface {
	ListProducts(ctx context.Context) ([]types.Product, error)
	GetProduct(ctx context.Context, productID string) (*types.Product, error)
	ListCategories(ctx context.Context) ([]types.Category, error)
	ListBanners(ctx context.Context) ([]types.Banner, error)
}

// Store caches catalog reads for the configured TTL.
type Store struct {
	mu      sync.Mutex
	backend catalogAPI
	logger  *logger.Logger
	ttl     time.Duration
	now     func() time.Time

	products     []types.Product
	productsAt   time.Time
	productByID  map[string]types.Product
	categories   []types.Category
	categoriesAt time.Time
	banners      []types.Banner
	bannersAt    time.Time
}

// Params groups the catalog store dependencies.
type Params struct {
	API    catalogAPI
	Logger *logger.Logger
	Config config.CatalogConfig
}

func NewStore(params Params) (*Store, error) {
	if params.API == nil {
		return nil, fmt.Errorf("catalog api is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	ttl := params.Config.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{
		backend:     params.API,
		logger:      params.Logger,
		ttl:         ttl,
		now:         time.Now,
		productByID: make(map[string]types.Product),
	}, nil
}

// Products returns the catalog, refreshing when the cache is stale.
func (s *Store) Products(ctx context.Context) ([]types.Product, error) {
	s.mu.Lock()
	if s.products != nil && s.now().Sub(s.productsAt) < s.ttl {
		cached := cloneProducts(s.products)
		s.mu.Unlock()
		return cached, nil
	}
	stale := cloneProducts(s.products)
	s.mu.Unlock()

	fresh, err := s.backend.ListProducts(ctx)
	if err != nil {
		if stale != nil && pkgerrors.MetadataFor(pkgerrors.As(err).Code()).Retryable {
			s.logger.Warn(s.logger.WithOperation(ctx, "list_products"), "serving stale catalog: "+err.Error())
			return stale, nil
		}
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "catalog refresh abandoned")
	}

	s.mu.Lock()
	s.products = fresh
	s.productsAt = s.now()
	for _, product := range fresh {
		s.productByID[product.ID] = product
	}
	out := cloneProducts(s.products)
	s.mu.Unlock()
	return out, nil
}

// Product returns one product, serving the cached copy when present.
func (s *Store) Product(ctx context.Context, productID string) (*types.Product, error) {
	s.mu.Lock()
	if cached, ok := s.productByID[productID]; ok && s.now().Sub(s.productsAt) < s.ttl {
		s.mu.Unlock()
		return &cached, nil
	}
	s.mu.Unlock()

	product, err := s.backend.GetProduct(ctx, productID)
	if err != nil {
		s.mu.Lock()
		cached, ok := s.productByID[productID]
		s.mu.Unlock()
		if ok && pkgerrors.MetadataFor(pkgerrors.As(err).Code()).Retryable {
			return &cached, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.productByID[product.ID] = *product
	s.mu.Unlock()
	return product, nil
}

// LastKnownPrice reports the cached effective price for the product.
func (s *Store) LastKnownPrice(productID string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.productByID[productID]
	if !ok {
		return decimal.Zero, false
	}
	return product.EffectivePrice(), true
}

// Categories returns the category tree, refreshing when stale.
func (s *Store) Categories(ctx context.Context) ([]types.Category, error) {
	s.mu.Lock()
	if s.categories != nil && s.now().Sub(s.categoriesAt) < s.ttl {
		cached := make([]types.Category, len(s.categories))
		copy(cached, s.categories)
		s.mu.Unlock()
		return cached, nil
	}
	stale := make([]types.Category, len(s.categories))
	copy(stale, s.categories)
	hadCache := s.categories != nil
	s.mu.Unlock()

	fresh, err := s.backend.ListCategories(ctx)
	if err != nil {
		if hadCache && pkgerrors.MetadataFor(pkgerrors.As(err).Code()).Retryable {
			return stale, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.categories = fresh
	s.categoriesAt = s.now()
	out := make([]types.Category, len(fresh))
	copy(out, fresh)
	s.mu.Unlock()
	return out, nil
}

// Banners returns the marketing banners, refreshing when stale.
func (s *Store) Banners(ctx context.Context) ([]types.Banner, error) {
	s.mu.Lock()
	if s.banners != nil && s.now().Sub(s.bannersAt) < s.ttl {
		cached := make([]types.Banner, len(s.banners))
		copy(cached, s.banners)
		s.mu.Unlock()
		return cached, nil
	}
	stale := make([]types.Banner, len(s.banners))
	copy(stale, s.banners)
	hadCache := s.banners != nil
	s.mu.Unlock()

	fresh, err := s.backend.ListBanners(ctx)
	if err != nil {
		if hadCache && pkgerrors.MetadataFor(pkgerrors.As(err).Code()).Retryable {
			return stale, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.banners = fresh
	s.bannersAt = s.now()
	out := make([]types.Banner, len(fresh))
	copy(out, fresh)
	s.mu.Unlock()
	return out, nil
}

func cloneProducts(products []types.Product) []types.Product {
	if products == nil {
		return nil
	}
	out := make([]types.Product, len(products))
	copy(out, products)
	return out
}

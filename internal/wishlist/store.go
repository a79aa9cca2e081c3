// Package wishlist mirrors the authenticated identity's wishlist. It is
// meaningless while anonymous: reads come back empty and mutations fail with
// NOT_AUTHENTICATED so the caller can redirect to sign-in.
package wishlist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/lenshaus/storefront-core/pkg/errors"
	"github.com/lenshaus/storefront-core/pkg/logger"
	"github.com/lenshaus/storefront-core/pkg/types"
)

type wishlistAPI interface {
	FetchWishlist(ctx context.Context) ([]types.WishlistEntry, error)
	AddWishlist(ctx context.Context, productID string) error
	RemoveWishlist(ctx context.Context, productID string) error
}

type identitySource interface {
	Current() (*types.Identity, bool)
}

// Store is the wishlist state container.
type Store struct {
	mu      sync.Mutex
	backend wishlistAPI
	session identitySource
	logger  *logger.Logger

	// ownerID scopes the mirror; entries from one identity are never served
	// to another on the same device.
	ownerID string
	entries []types.WishlistEntry
}

// Params groups the wishlist store dependencies.
type Params struct {
	API     wishlistAPI
	Session identitySource
	Logger  *logger.Logger
}

func NewStore(params Params) (*Store, error) {
	if params.API == nil {
		return nil, fmt.Errorf("wishlist api is required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session source is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Store{
		backend: params.API,
		session: params.Session,
		logger:  params.Logger,
	}, nil
}

// Entries returns the mirrored wishlist for the current identity, empty when
// anonymous or when the mirror belongs to someone else.
func (s *Store) Entries() []types.WishlistEntry {
	identity, ok := s.session.Current()
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownerID != identity.ID {
		return nil
	}
	out := make([]types.WishlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Contains reports whether the product is wishlisted.
func (s *Store) Contains(productID string) bool {
	for _, entry := range s.Entries() {
		if entry.ProductID == productID {
			return true
		}
	}
	return false
}

// Refresh pulls the identity's wishlist. Anonymous callers get an empty list
// without an error; a rejected token surfaces as AUTH_ERROR.
func (s *Store) Refresh(ctx context.Context) ([]types.WishlistEntry, error) {
	identity, ok := s.session.Current()
	if !ok {
		return nil, nil
	}
	entries, err := s.backend.FetchWishlist(ctx)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "wishlist refresh abandoned")
	}

	s.mu.Lock()
	s.ownerID = identity.ID
	s.entries = entries
	out := make([]types.WishlistEntry, len(entries))
	copy(out, entries)
	s.mu.Unlock()
	return out, nil
}

// Add wishlists the product. Adding an already-present product is a no-op.
func (s *Store) Add(ctx context.Context, productID string) error {
	identity, err := s.requireIdentity()
	if err != nil {
		return err
	}
	if strings.TrimSpace(productID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if s.Contains(productID) {
		return nil
	}
	if err := s.backend.AddWishlist(ctx, productID); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "wishlist add abandoned")
	}

	s.mu.Lock()
	// A stale mirror from a previous identity must never leak into this one.
	if s.ownerID != identity.ID {
		s.entries = nil
	}
	s.ownerID = identity.ID
	s.entries = append(s.entries, types.WishlistEntry{
		ProductID: productID,
		OwnerID:   identity.ID,
		AddedAt:   time.Now().UTC(),
	})
	s.mu.Unlock()
	return nil
}

// Remove drops the product. Removing an absent product is a no-op.
func (s *Store) Remove(ctx context.Context, productID string) error {
	_, err := s.requireIdentity()
	if err != nil {
		return err
	}
	if !s.Contains(productID) {
		return nil
	}
	if err := s.backend.RemoveWishlist(ctx, productID); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "wishlist remove abandoned")
	}

	s.mu.Lock()
	kept := s.entries[:0]
	for _, entry := range s.entries {
		if entry.ProductID != productID {
			kept = append(kept, entry)
		}
	}
	s.entries = kept
	s.mu.Unlock()
	return nil
}

// DropLocal empties the mirror, for the logout transition.
func (s *Store) DropLocal() {
	s.mu.Lock()
	s.ownerID = ""
	s.entries = nil
	s.mu.Unlock()
}

func (s *Store) requireIdentity() (*types.Identity, error) {
	identity, ok := s.session.Current()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "wishlist requires sign-in")
	}
	return identity, nil
}

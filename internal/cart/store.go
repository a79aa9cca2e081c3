// Package cart keeps the ordered set of cart lines, deduplicated by product
// and customization signature. The device copy is the source of truth; the
// identity's remote cart is reconciled into it on login and kept in sync best
// effort after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/lenshaus/storefront-core/pkg/errors"
	"github.com/lenshaus/storefront-core/pkg/logger"
	"github.com/lenshaus/storefront-core/pkg/storage"
	"github.com/lenshaus/storefront-core/pkg/types"
)

// Line is one distinct product+customization entry.
type Line struct {
	ProductID     string            `json:"product"`
	Name          string            `json:"name"`
	Quantity      int               `json:"quantity"`
	UnitPrice     decimal.Decimal   `json:"unitPrice"`
	Customization map[string]string `json:"customization,omitempty"`
}

// Key identifies the line for update/remove calls.
func (l Line) Key() string {
	return lineKey(l.ProductID, l.Customization)
}

// Subtotal is quantity times the last known unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Signature canonicalizes a customization map for de-duplication. An asset
// reference key stored under a customization attribute participates like any
// other attribute.
func Signature(customization map[string]string) string {
	if len(customization) == 0 {
		return ""
	}
	keys := make([]string, 0, len(customization))
	for key := range customization {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+customization[key])
	}
	return strings.Join(parts, ";")
}

func lineKey(productID string, customization map[string]string) string {
	sig := Signature(customization)
	if sig == "" {
		return productID
	}
	return productID + "|" + sig
}

// Snapshot is the read model handed to the UI after every call.
type Snapshot struct {
	Lines    []Line
	Count    int
	Subtotal decimal.Decimal
}

// Subscriber receives the snapshot after each mutation, outside the lock.
type Subscriber func(Snapshot)

type syncAPI interface {
	FetchCart(ctx context.Context) ([]types.RemoteCartLine, error)
	SaveCart(ctx context.Context, lines []types.RemoteCartLine) error
}

// Store is the cart state container.
type Store struct {
	mu      sync.Mutex
	backend syncAPI
	storage storage.Store
	logger  *logger.Logger
	// authed gates remote sync; the device cart works anonymously.
	authed func() bool

	lines []Line
	subs  []Subscriber
}

// Params groups the cart store dependencies.
type Params struct {
	API           syncAPI
	Storage       storage.Store
	Logger        *logger.Logger
	Authenticated func() bool
}

// NewStore loads any persisted device cart and returns the container.
func NewStore(ctx context.Context, params Params) (*Store, error) {
	if params.API == nil {
		return nil, fmt.Errorf("cart api is required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage backend is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	authed := params.Authenticated
	if authed == nil {
		authed = func() bool { return false }
	}

	s := &Store{
		backend: params.API,
		storage: params.Storage,
		logger:  params.Logger,
		authed:  authed,
	}
	s.load(ctx)
	return s, nil
}

// Subscribe registers a snapshot listener.
func (s *Store) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Snapshot returns the current read model.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// AddItem appends a line, or bumps the quantity of the matching line when one
// exists. Quantities below one are coerced to one.
func (s *Store) AddItem(ctx context.Context, product types.Product, quantity int, customization map[string]string) (Snapshot, error) {
	if strings.TrimSpace(product.ID) == "" {
		return s.Snapshot(), pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	key := lineKey(product.ID, customization)
	found := false
	for i := range s.lines {
		if s.lines[i].Key() == key {
			s.lines[i].Quantity += quantity
			s.lines[i].UnitPrice = product.EffectivePrice()
			found = true
			break
		}
	}
	if !found {
		s.lines = append(s.lines, Line{
			ProductID:     product.ID,
			Name:          product.Name,
			Quantity:      quantity,
			UnitPrice:     product.EffectivePrice(),
			Customization: cloneAttrs(customization),
		})
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.afterMutation(ctx, snapshot)
	return snapshot, nil
}

// UpdateQuantity replaces the line's quantity. Zero or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, key string, quantity int) (Snapshot, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, key)
	}

	s.mu.Lock()
	found := false
	for i := range s.lines {
		if s.lines[i].Key() == key {
			s.lines[i].Quantity = quantity
			found = true
			break
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if !found {
		return snapshot, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	s.afterMutation(ctx, snapshot)
	return snapshot, nil
}

// RemoveItem drops the line. Unknown keys are a no-op with no side effects.
func (s *Store) RemoveItem(ctx context.Context, key string) (Snapshot, error) {
	s.mu.Lock()
	kept := s.lines[:0]
	for _, line := range s.lines {
		if line.Key() != key {
			kept = append(kept, line)
		}
	}
	removed := len(kept) != len(s.lines)
	s.lines = kept
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if removed {
		s.afterMutation(ctx, snapshot)
	}
	return snapshot, nil
}

// Clear empties the cart, unconditionally of prior state.
func (s *Store) Clear(ctx context.Context) Snapshot {
	s.mu.Lock()
	s.lines = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.afterMutation(ctx, snapshot)
	return snapshot
}

// MergeRemote folds the identity's saved cart into the device cart by summing
// quantities on matching (product, customization). Nothing is dropped.
func (s *Store) MergeRemote(ctx context.Context, remote []types.RemoteCartLine) Snapshot {
	s.mu.Lock()
	for _, incoming := range remote {
		key := lineKey(incoming.ProductID, incoming.Customization)
		found := false
		for i := range s.lines {
			if s.lines[i].Key() == key {
				s.lines[i].Quantity += incoming.Quantity
				found = true
				break
			}
		}
		if !found {
			s.lines = append(s.lines, Line{
				ProductID:     incoming.ProductID,
				Quantity:      incoming.Quantity,
				UnitPrice:     incoming.UnitPrice,
				Customization: cloneAttrs(incoming.Customization),
			})
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.notify(snapshot)
	return snapshot
}

// SyncOnLogin reconciles the device cart with the identity's remote cart:
// fetch, additive merge, then push the merged result back.
func (s *Store) SyncOnLogin(ctx context.Context) (Snapshot, error) {
	remote, err := s.backend.FetchCart(ctx)
	if err != nil {
		return s.Snapshot(), err
	}
	if ctx.Err() != nil {
		return s.Snapshot(), pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "cart sync abandoned")
	}
	snapshot := s.MergeRemote(ctx, remote)
	if err := s.backend.SaveCart(ctx, toRemote(snapshot.Lines)); err != nil {
		s.logger.Warn(s.logger.WithOperation(ctx, "cart_sync"), "push merged cart failed: "+err.Error())
	}
	return snapshot, nil
}

func (s *Store) snapshotLocked() Snapshot {
	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	count := 0
	subtotal := decimal.Zero
	for _, line := range lines {
		count += line.Quantity
		subtotal = subtotal.Add(line.Subtotal())
	}
	return Snapshot{Lines: lines, Count: count, Subtotal: subtotal}
}

func (s *Store) afterMutation(ctx context.Context, snapshot Snapshot) {
	s.persist(ctx, snapshot)
	if s.authed() {
		if err := s.backend.SaveCart(ctx, toRemote(snapshot.Lines)); err != nil {
			s.logger.Warn(s.logger.WithOperation(ctx, "cart_sync"), "remote cart save failed: "+err.Error())
		}
	}
	s.notify(snapshot)
}

func (s *Store) persist(ctx context.Context, snapshot Snapshot) {
	encoded, err := json.Marshal(snapshot.Lines)
	if err != nil {
		s.logger.Error(ctx, "encode cart state", err)
		return
	}
	if err := s.storage.Set(ctx, stateKey(), string(encoded)); err != nil {
		s.logger.Error(ctx, "persist cart state", err)
	}
}

func (s *Store) load(ctx context.Context) {
	raw, err := s.storage.Get(ctx, stateKey())
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Error(ctx, "read cart state", err)
		return
	}
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		s.logger.Error(ctx, "decode cart state", err)
		return
	}
	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()
}

func (s *Store) notify(snapshot Snapshot) {
	s.mu.Lock()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snapshot)
	}
}

func toRemote(lines []Line) []types.RemoteCartLine {
	remote := make([]types.RemoteCartLine, 0, len(lines))
	for _, line := range lines {
		remote = append(remote, types.RemoteCartLine{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			Customization: cloneAttrs(line.Customization),
		})
	}
	return remote
}

func cloneAttrs(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func stateKey() string {
	return storage.Key("cart", "state")
}

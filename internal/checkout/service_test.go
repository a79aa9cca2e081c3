package checkout

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lenshaus/storefront-core/internal/cart"
	"github.com/lenshaus/storefront-core/internal/rx"
	pkgerrors "github.com/lenshaus/storefront-core/pkg/errors"
	"github.com/lenshaus/storefront-core/pkg/logger"
	"github.com/lenshaus/storefront-core/pkg/types"
)

type stubOrderAPI struct {
	confirmation *types.OrderConfirmation
	submitErr    error
	submitted    []types.OrderSubmission
}

func (s *stubOrderAPI) SubmitOrder(ctx context.Context, order types.OrderSubmission) (*types.OrderConfirmation, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.submitted = append(s.submitted, order)
	return s.confirmation, nil
}

type stubCart struct {
	snapshot cart.Snapshot
	cleared  bool
}

func (s *stubCart) Snapshot() cart.Snapshot {
	return s.snapshot
}

func (s *stubCart) Clear(ctx context.Context) cart.Snapshot {
	s.cleared = true
	s.snapshot = cart.Snapshot{}
	return s.snapshot
}

type stubRx struct {
	payloads []rx.Payload
	swept    bool
	sweepErr error
}

func (s *stubRx) All(ctx context.Context) ([]rx.Payload, error) {
	return s.payloads, nil
}

func (s *stubRx) Sweep(ctx context.Context) (int, error) {
	s.swept = true
	if s.sweepErr != nil {
		return 0, s.sweepErr
	}
	return len(s.payloads), nil
}

type stubSession struct {
	identity *types.Identity
}

func (s *stubSession) Current() (*types.Identity, bool) {
	if s.identity == nil {
		return nil, false
	}
	return s.identity, true
}

func shipping() types.ShippingDetails {
	return types.ShippingDetails{
		FullName: "Amira Haddad",
		Phone:    "+201001234567",
		Address:  "12 Nile Corniche",
		City:     "Cairo",
		Country:  "EG",
	}
}

func cartWith(productID string, qty int) cart.Snapshot {
	line := cart.Line{ProductID: productID, Quantity: qty, UnitPrice: decimal.NewFromInt(100)}
	return cart.Snapshot{
		Lines:    []cart.Line{line},
		Count:    qty,
		Subtotal: line.Subtotal(),
	}
}

func newTestService(t *testing.T, backend *stubOrderAPI, cartSrc *stubCart, rxSrc *stubRx, sess *stubSession) *Service {
	t.Helper()
	svc, err := NewService(Params{
		API:     backend,
		Cart:    cartSrc,
		Rx:      rxSrc,
		Session: sess,
		Logger:  logger.New(logger.Options{Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func TestSubmitRequiresAuthentication(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubOrderAPI{}, &stubCart{snapshot: cartWith("p1", 1)}, &stubRx{}, &stubSession{})

	_, err := svc.Submit(context.Background(), shipping())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotAuthenticated))
}

func TestSubmitRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	sess := &stubSession{identity: &types.Identity{ID: "u1"}}
	svc := newTestService(t, &stubOrderAPI{}, &stubCart{}, &stubRx{}, sess)

	_, err := svc.Submit(context.Background(), shipping())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSubmitValidatesShipping(t *testing.T) {
	t.Parallel()

	sess := &stubSession{identity: &types.Identity{ID: "u1"}}
	svc := newTestService(t, &stubOrderAPI{}, &stubCart{snapshot: cartWith("p1", 1)}, &stubRx{}, sess)

	_, err := svc.Submit(context.Background(), types.ShippingDetails{FullName: "A"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	typed := pkgerrors.As(err)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Contains(t, details, "Address")
}

func TestSubmitSuccessClearsCartAndSweepsPrescriptions(t *testing.T) {
	t.Parallel()

	backend := &stubOrderAPI{confirmation: &types.OrderConfirmation{OrderID: "o1", Status: "pending"}}
	cartSrc := &stubCart{snapshot: cartWith("p1", 2)}
	rxSrc := &stubRx{payloads: []rx.Payload{{OwnerKey: "p1", Filename: "scan.png", MIME: "image/png", Encoded: "aGk="}}}
	sess := &stubSession{identity: &types.Identity{ID: "u1"}}
	svc := newTestService(t, backend, cartSrc, rxSrc, sess)

	confirmation, err := svc.Submit(context.Background(), shipping())
	require.NoError(t, err)
	require.Equal(t, "o1", confirmation.OrderID)

	require.True(t, cartSrc.cleared)
	require.True(t, rxSrc.swept)

	require.Len(t, backend.submitted, 1)
	order := backend.submitted[0]
	require.NotEmpty(t, order.Reference)
	require.Len(t, order.Prescription, 1)
	require.Equal(t, "p1", order.Prescription[0].OwnerKey)
	require.True(t, order.Total.Equal(decimal.NewFromInt(200)))
	require.Equal(t, "USD", order.Currency)
}

func TestSubmitSkipsPrescriptionsForProductsNotInCart(t *testing.T) {
	t.Parallel()

	backend := &stubOrderAPI{confirmation: &types.OrderConfirmation{OrderID: "o1"}}
	rxSrc := &stubRx{payloads: []rx.Payload{{OwnerKey: "other-product", Filename: "old.png"}}}
	sess := &stubSession{identity: &types.Identity{ID: "u1"}}
	svc := newTestService(t, backend, &stubCart{snapshot: cartWith("p1", 1)}, rxSrc, sess)

	_, err := svc.Submit(context.Background(), shipping())
	require.NoError(t, err)
	require.Empty(t, backend.submitted[0].Prescription)
}

func TestSubmitFailureLeavesCartAndStash(t *testing.T) {
	t.Parallel()

	backend := &stubOrderAPI{submitErr: pkgerrors.New(pkgerrors.CodeNetwork, "down")}
	cartSrc := &stubCart{snapshot: cartWith("p1", 1)}
	rxSrc := &stubRx{}
	sess := &stubSession{identity: &types.Identity{ID: "u1"}}
	svc := newTestService(t, backend, cartSrc, rxSrc, sess)

	_, err := svc.Submit(context.Background(), shipping())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNetwork))
	require.False(t, cartSrc.cleared)
	require.False(t, rxSrc.swept)
}

func TestSweepFailureDoesNotFailTheOrder(t *testing.T) {
	t.Parallel()

	backend := &stubOrderAPI{confirmation: &types.OrderConfirmation{OrderID: "o1"}}
	cartSrc := &stubCart{snapshot: cartWith("p1", 1)}
	rxSrc := &stubRx{sweepErr: pkgerrors.New(pkgerrors.CodeDependency, "storage busy")}
	sess := &stubSession{identity: &types.Identity{ID: "u1"}}
	svc := newTestService(t, backend, cartSrc, rxSrc, sess)

	confirmation, err := svc.Submit(context.Background(), shipping())
	require.NoError(t, err)
	require.Equal(t, "o1", confirmation.OrderID)
	require.True(t, cartSrc.cleared)
}

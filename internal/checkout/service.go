// Package checkout assembles the order submission and hands it to the
// backend. Prescription payloads are dereferenced here, at submission time,
// and swept from the device once the order is accepted.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/lenshaus/storefront-core/internal/cart"
	"github.com/lenshaus/storefront-core/internal/rx"
	"github.com/lenshaus/storefront-core/pkg/config"
	pkgerrors "github.com/lenshaus/storefront-core/pkg/errors"
	"github.com/lenshaus/storefront-core/pkg/logger"
	"github.com/lenshaus/storefront-core/pkg/types"
)

type orderAPI interface {
	SubmitOrder(ctx context.Context, order types.OrderSubmission) (*types.OrderConfirmation, error)
}

type cartSource interface {
	Snapshot() cart.Snapshot
	Clear(ctx context.Context) cart.Snapshot
}

type rxSource interface {
	All(ctx context.Context) ([]rx.Payload, error)
	Sweep(ctx context.Context) (int, error)
}

type identitySource interface {
	Current() (*types.Identity, bool)
}

// Service is the checkout hand-off.
type Service struct {
	backend  orderAPI
	cart     cartSource
	rx       rxSource
	session  identitySource
	logger   *logger.Logger
	validate *validator.Validate
	currency string
}

// Params groups the checkout dependencies.
type Params struct {
	API     orderAPI
	Cart    cartSource
	Rx      rxSource
	Session identitySource
	Logger  *logger.Logger
	Config  config.CartConfig
}

func NewService(params Params) (*Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("order api is required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart source is required")
	}
	if params.Rx == nil {
		return nil, fmt.Errorf("prescription store is required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session source is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	currency := params.Config.Currency
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		backend:  params.API,
		cart:     params.Cart,
		rx:       params.Rx,
		session:  params.Session,
		logger:   params.Logger,
		validate: validator.New(),
		currency: currency,
	}, nil
}

// Submit sends the current cart as an order. On acceptance the cart is
// cleared and the prescription stash swept; cleanup failures are logged but
// never fail the completed order.
func (s *Service) Submit(ctx context.Context, shipping types.ShippingDetails) (*types.OrderConfirmation, error) {
	if _, ok := s.session.Current(); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "checkout requires sign-in")
	}
	if err := s.validate.Struct(shipping); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			details := make(map[string]string, len(fieldErrors))
			for _, fe := range fieldErrors {
				details[fe.Field()] = fe.Tag()
			}
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping details").WithDetails(details)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping details")
	}

	snapshot := s.cart.Snapshot()
	if len(snapshot.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	blobs, err := s.collectPrescriptions(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	order := types.OrderSubmission{
		Reference:    uuid.NewString(),
		Lines:        toRemote(snapshot.Lines),
		Shipping:     shipping,
		Total:        snapshot.Subtotal,
		Currency:     s.currency,
		Prescription: blobs,
	}

	confirmation, err := s.backend.SubmitOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	s.cleanup(ctx, confirmation.OrderID)
	return confirmation, nil
}

// collectPrescriptions dereferences the stashed payloads owned by products in
// the cart.
func (s *Service) collectPrescriptions(ctx context.Context, snapshot cart.Snapshot) ([]types.PrescriptionBlob, error) {
	payloads, err := s.rx.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, nil
	}

	inCart := make(map[string]bool, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		inCart[line.ProductID] = true
	}

	blobs := make([]types.PrescriptionBlob, 0, len(payloads))
	for _, payload := range payloads {
		if !inCart[payload.OwnerKey] {
			continue
		}
		blobs = append(blobs, types.PrescriptionBlob{
			OwnerKey: payload.OwnerKey,
			Filename: payload.Filename,
			MIME:     payload.MIME,
			Encoded:  payload.Encoded,
		})
	}
	return blobs, nil
}

func (s *Service) cleanup(ctx context.Context, orderID string) {
	var errs error
	s.cart.Clear(ctx)
	if _, err := s.rx.Sweep(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		s.logger.Error(s.logger.WithField(ctx, "order_id", orderID), "post-checkout cleanup incomplete", errs)
	}
}

func toRemote(lines []cart.Line) []types.RemoteCartLine {
	remote := make([]types.RemoteCartLine, 0, len(lines))
	for _, line := range lines {
		remote = append(remote, types.RemoteCartLine{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			Customization: line.Customization,
		})
	}
	return remote
}

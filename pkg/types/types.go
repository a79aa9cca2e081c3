package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Envelope is the wire shape every backend endpoint responds with.
type Envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Token   string          `json:"token,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Identity is the authenticated user record returned by the API.
type Identity struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	CategoryID  string          `json:"category"`
	ImageCover  string          `json:"imageCover"`
	Images      []string        `json:"images"`
	Description string          `json:"description"`
	InStock     bool            `json:"inStock"`
}

// EffectivePrice is the unit price after any discount.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.Discount.IsPositive() {
		return p.Price.Sub(p.Discount)
	}
	return p.Price
}

type Category struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image"`
}

type Banner struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
	Image string `json:"image"`
	Link  string `json:"link"`
}

// RemoteCartLine is the cart line shape exchanged with the cart sync endpoints.
type RemoteCartLine struct {
	ProductID     string            `json:"product"`
	Quantity      int               `json:"quantity"`
	UnitPrice     decimal.Decimal   `json:"unitPrice"`
	Customization map[string]string `json:"customization,omitempty"`
}

type WishlistEntry struct {
	ProductID string    `json:"product"`
	OwnerID   string    `json:"user"`
	AddedAt   time.Time `json:"addedAt"`
}

// OrderSubmission is the checkout hand-off payload. Prescription payloads are
// dereferenced and inlined here, never uploaded before order time.
type OrderSubmission struct {
	Reference    string             `json:"reference"`
	Lines        []RemoteCartLine   `json:"items"`
	Shipping     ShippingDetails    `json:"shipping"`
	Total        decimal.Decimal    `json:"total"`
	Currency     string             `json:"currency"`
	Prescription []PrescriptionBlob `json:"prescriptions,omitempty"`
}

type ShippingDetails struct {
	FullName string `json:"fullName" validate:"required,min=2"`
	Phone    string `json:"phone" validate:"required,min=5"`
	Address  string `json:"address" validate:"required,min=5"`
	City     string `json:"city" validate:"required"`
	Country  string `json:"country" validate:"required"`
}

// PrescriptionBlob is an inline-encoded prescription file attached to an order.
type PrescriptionBlob struct {
	OwnerKey string `json:"ownerKey"`
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Encoded  string `json:"data"`
}

// OrderConfirmation is returned by the order submission endpoint.
type OrderConfirmation struct {
	OrderID   string          `json:"_id"`
	Reference string          `json:"reference"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
}

package api

import (
	"context"
	"net/http"

	"github.com/lenshaus/storefront-core/pkg/types"
)

// FetchCart pulls the identity's saved cart from the backend.
func (c *Client) FetchCart(ctx context.Context) ([]types.RemoteCartLine, error) {
	envelope, err := c.do(ctx, "fetch_cart", http.MethodGet, "/cart", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Items []types.RemoteCartLine `json:"items"`
	}
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// SaveCart replaces the identity's saved cart with the given lines.
func (c *Client) SaveCart(ctx context.Context, lines []types.RemoteCartLine) error {
	body := map[string]any{"items": lines}
	_, err := c.do(ctx, "save_cart", http.MethodPut, "/cart", body)
	return err
}

// FetchWishlist pulls the identity's wishlist.
func (c *Client) FetchWishlist(ctx context.Context) ([]types.WishlistEntry, error) {
	envelope, err := c.do(ctx, "fetch_wishlist", http.MethodGet, "/wishlist", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Items []types.WishlistEntry `json:"items"`
	}
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// AddWishlist adds the product to the identity's wishlist.
func (c *Client) AddWishlist(ctx context.Context, productID string) error {
	body := map[string]string{"product": productID}
	_, err := c.do(ctx, "add_wishlist", http.MethodPost, "/wishlist", body)
	return err
}

// RemoveWishlist removes the product from the identity's wishlist.
func (c *Client) RemoveWishlist(ctx context.Context, productID string) error {
	_, err := c.do(ctx, "remove_wishlist", http.MethodDelete, "/wishlist/"+productID, nil)
	return err
}

// SubmitOrder hands the assembled order to the backend, which performs the
// actual prescription upload and payment hand-off.
func (c *Client) SubmitOrder(ctx context.Context, order types.OrderSubmission) (*types.OrderConfirmation, error) {
	envelope, err := c.do(ctx, "submit_order", http.MethodPost, "/orders", order)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Order types.OrderConfirmation `json:"order"`
	}
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return &payload.Order, nil
}

package api

import (
	"context"
	"net/http"

	"github.com/lenshaus/storefront-core/pkg/types"
)

// ListProducts fetches the browsable catalog.
func (c *Client) ListProducts(ctx context.Context) ([]types.Product, error) {
	envelope, err := c.do(ctx, "list_products", http.MethodGet, "/products", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Products []types.Product `json:"products"`
	}
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, productID string) (*types.Product, error) {
	envelope, err := c.do(ctx, "get_product", http.MethodGet, "/products/"+productID, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Product types.Product `json:"product"`
	}
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return &payload.Product, nil
}

// ListCategories fetches the category tree.
func (c *Client) ListCategories(ctx context.Context) ([]types.Category, error) {
	envelope, err := c.do(ctx, "list_categories", http.MethodGet, "/categories", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Categories []types.Category `json:"categories"`
	}
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return payload.Categories, nil
}

// ListBanners fetches the marketing banners for the landing surfaces.
func (c *Client) ListBanners(ctx context.Context) ([]types.Banner, error) {
	envelope, err := c.do(ctx, "list_banners", http.MethodGet, "/banners", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Banners []types.Banner `json:"banners"`
	}
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return payload.Banners, nil
}

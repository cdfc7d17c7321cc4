package httpapi

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/way7creation/catalogx"
)

const cartAddPath = "/api/cart/add"

// CartClient adds products to the shopping cart. It implements
// catalogx.CartService.
type CartClient struct {
	client *Client
}

// NewCartClient creates a cart service over the given API client.
func NewCartClient(client *Client) *CartClient {
	return &CartClient{client: client}
}

type cartAddRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type cartAddResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AddToCart implements catalogx.CartService.
func (c *CartClient) AddToCart(ctx context.Context, productID int64, quantity int) error {
	if productID <= 0 {
		return errors.Newf("invalid product id %d", productID)
	}
	if quantity < 1 {
		quantity = 1
	}

	var resp cartAddResponse
	err := c.client.postJSON(ctx, cartAddPath, cartAddRequest{
		ProductID: productID,
		Quantity:  quantity,
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.WithSecondaryError(
			catalogx.ErrProtocol,
			errors.Newf("cart add rejected: %s", resp.Message),
		)
	}
	return nil
}

package coinbase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Account is one currency wallet.
type Account struct {
	ID        string          `json:"id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Available decimal.Decimal `json:"available"`
	Hold      decimal.Decimal `json:"hold"`
}

// OrderRequest is a market order. Exactly one of Size or Funds is set.
type OrderRequest struct {
	Type      string           `json:"type"`
	Side      string           `json:"side"`
	ProductID string           `json:"product_id"`
	Size      *decimal.Decimal `json:"size,omitempty"`
	Funds     *decimal.Decimal `json:"funds,omitempty"`
}

// Order is the exchange's view of a placed order.
type Order struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Side      string          `json:"side"`
	Size      decimal.Decimal `json:"size"`
	Funds     decimal.Decimal `json:"funds"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Accounts lists every wallet of the API key's profile.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &accounts); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// PlaceMarketOrder submits a market order.
func (c *Client) PlaceMarketOrder(ctx context.Context, product, side string, size, funds decimal.Decimal) (Order, error) {
	req := OrderRequest{Type: "market", Side: side, ProductID: product}
	if !size.IsZero() {
		req.Size = &size
	}
	if !funds.IsZero() {
		req.Funds = &funds
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return Order{}, fmt.Errorf("place order: %w", err)
	}
	return order, nil
}

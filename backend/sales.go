package backend

import (
	"context"
	"time"

	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/pkg/errors"
)

const salesPath = "/sales"

type SaleItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice,omitempty"`
}

type Sale struct {
	ID            string     `json:"id"`
	Items         []SaleItem `json:"items"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"paymentMethod"`
	SoldBy        string     `json:"soldBy,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Checkout registers the cart as a sale
func (a *API) Checkout(ctx context.Context, cart *Cart, paymentMethod string) (*Sale, error) {
	req, err := cart.Request(paymentMethod)
	if err != nil {
		return nil, err
	}
	env, err := apiclient.Post[Sale](ctx, a.client, salesPath, req)
	if err != nil {
		return nil, errors.Wrap(err, "[API Checkout]")
	}
	return &env.Data, nil
}

func (a *API) ListSales(ctx context.Context, r DateRange) ([]Sale, error) {
	env, err := apiclient.Get[[]Sale](ctx, a.client, salesPath, r.values())
	if err != nil {
		return nil, errors.Wrap(err, "[API ListSales]")
	}
	return env.Data, nil
}

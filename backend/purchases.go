package backend

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/pkg/errors"
)

const purchasesPath = "/purchases"

type PurchaseItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitCost  float64 `json:"unitCost"`
}

type Purchase struct {
	ID        string         `json:"id"`
	Supplier  string         `json:"supplier"`
	Items     []PurchaseItem `json:"items"`
	Total     float64        `json:"total"`
	CreatedAt time.Time      `json:"createdAt"`
}

// PurchaseInput restocks products from a supplier
type PurchaseInput struct {
	Supplier string         `json:"supplier"`
	Items    []PurchaseItem `json:"items"`
}

func (in *PurchaseInput) Validate() error {
	in.Supplier = strings.TrimSpace(in.Supplier)
	if in.Supplier == "" {
		return invalid("el proveedor es obligatorio")
	}
	if len(in.Items) == 0 {
		return invalid("la compra no tiene productos")
	}
	for _, it := range in.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if it.UnitCost < 0 {
			return invalid("el costo no puede ser negativo")
		}
	}
	return nil
}

// Total of the input lines
func (in PurchaseInput) Total() float64 {
	total := 0.0
	for _, it := range in.Items {
		total += it.UnitCost * float64(it.Quantity)
	}
	return roundCents(total)
}

func (a *API) ListPurchases(ctx context.Context, r DateRange) ([]Purchase, error) {
	env, err := apiclient.Get[[]Purchase](ctx, a.client, purchasesPath, r.values())
	if err != nil {
		return nil, errors.Wrap(err, "[API ListPurchases]")
	}
	return env.Data, nil
}

func (a *API) CreatePurchase(ctx context.Context, in PurchaseInput) (*Purchase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	env, err := apiclient.Post[Purchase](ctx, a.client, purchasesPath, in)
	if err != nil {
		return nil, errors.Wrap(err, "[API CreatePurchase]")
	}
	return &env.Data, nil
}

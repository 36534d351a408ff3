package backend

import (
	"context"
	"strings"

	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/pkg/errors"
)

const productsPath = "/products"

// LowStockThreshold marks products that need restocking
const LowStockThreshold = 5

type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	SKU      string  `json:"sku"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Category string  `json:"category,omitempty"`
}

func (p Product) LowStock() bool {
	return p.Stock <= LowStockThreshold
}

// ProductInput is the create/update body
type ProductInput struct {
	Name     string  `json:"name"`
	SKU      string  `json:"sku"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Category string  `json:"category,omitempty"`
}

// Validate checks the fields the backend would reject anyway
func (in *ProductInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Category = strings.TrimSpace(in.Category)
	switch {
	case in.Name == "":
		return invalid("el nombre es obligatorio")
	case in.SKU == "":
		return invalid("el SKU es obligatorio")
	case in.Price < 0:
		return invalid("el precio no puede ser negativo")
	case in.Stock < 0:
		return invalid("el stock no puede ser negativo")
	}
	return nil
}

func (a *API) ListProducts(ctx context.Context, q PageQuery) (Page[Product], error) {
	q = q.normalised()
	env, err := apiclient.Get[[]Product](ctx, a.client, productsPath, q.values())
	if err != nil {
		return Page[Product]{}, errors.Wrap(err, "[API ListProducts]")
	}
	return pageOf(env, q), nil
}

func (a *API) GetProduct(ctx context.Context, id string) (*Product, error) {
	env, err := apiclient.Get[Product](ctx, a.client, itemPath(productsPath, id), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[API GetProduct]")
	}
	return &env.Data, nil
}

func (a *API) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	env, err := apiclient.Post[Product](ctx, a.client, productsPath, in)
	if err != nil {
		return nil, errors.Wrap(err, "[API CreateProduct]")
	}
	return &env.Data, nil
}

func (a *API) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	env, err := apiclient.Put[Product](ctx, a.client, itemPath(productsPath, id), in)
	if err != nil {
		return nil, errors.Wrap(err, "[API UpdateProduct]")
	}
	return &env.Data, nil
}

func (a *API) DeleteProduct(ctx context.Context, id string) error {
	if err := apiclient.Delete(ctx, a.client, itemPath(productsPath, id)); err != nil {
		return errors.Wrap(err, "[API DeleteProduct]")
	}
	return nil
}

package backend

import (
	"context"

	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type DayTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type ProductTotal struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"`
}

// Report is the aggregate the backend computes for sales or purchases
type Report struct {
	Total       float64        `json:"total"`
	Count       int            `json:"count"`
	ByDay       []DayTotal     `json:"byDay,omitempty"`
	TopProducts []ProductTotal `json:"topProducts,omitempty"`
}

// Summary is the dashboard overview
type Summary struct {
	Range        DateRange
	Sales        Report
	Purchases    Report
	ProductCount int
	LowStock     []Product
}

// Balance is sales minus purchases over the range
func (s Summary) Balance() float64 {
	return roundCents(s.Sales.Total - s.Purchases.Total)
}

func (a *API) SalesReport(ctx context.Context, r DateRange) (*Report, error) {
	env, err := apiclient.Get[Report](ctx, a.client, "/reports/sales", r.values())
	if err != nil {
		return nil, errors.Wrap(err, "[API SalesReport]")
	}
	return &env.Data, nil
}

func (a *API) PurchasesReport(ctx context.Context, r DateRange) (*Report, error) {
	env, err := apiclient.Get[Report](ctx, a.client, "/reports/purchases", r.values())
	if err != nil {
		return nil, errors.Wrap(err, "[API PurchasesReport]")
	}
	return &env.Data, nil
}

// DashboardSummary fetches the reports and product counts concurrently.
// The first failure cancels the remaining calls.
func (a *API) DashboardSummary(ctx context.Context, r DateRange) (*Summary, error) {
	summary := &Summary{Range: r}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rep, err := a.SalesReport(gctx, r)
		if err != nil {
			return err
		}
		summary.Sales = *rep
		return nil
	})
	g.Go(func() error {
		rep, err := a.PurchasesReport(gctx, r)
		if err != nil {
			return err
		}
		summary.Purchases = *rep
		return nil
	})
	g.Go(func() error {
		page, err := a.ListProducts(gctx, PageQuery{Page: 1, Limit: MaxPageSize})
		if err != nil {
			return err
		}
		summary.ProductCount = page.Total
		for _, p := range page.Items {
			if p.LowStock() {
				summary.LowStock = append(summary.LowStock, p)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "[API DashboardSummary]")
	}
	return summary, nil
}

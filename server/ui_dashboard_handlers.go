package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/aqua-control/backend"
	"github.com/jrsteele09/aqua-control/guard"
	"github.com/jrsteele09/aqua-control/notify"
	"github.com/jrsteele09/aqua-control/roles"
	"golang.org/x/sync/errgroup"
)

// rangePreset is an option of the period selector
type rangePreset struct {
	Value string
	Label string
}

var rangePresets = []rangePreset{
	{Value: backend.RangeToday, Label: "Hoy"},
	{Value: backend.Range7d, Label: "Últimos 7 días"},
	{Value: backend.Range30d, Label: "Últimos 30 días"},
	{Value: backend.RangeMonth, Label: "Este mes"},
}

// nowTime is the clock used for relative date ranges
var nowTime = time.Now

type dashboardView struct {
	Summary *backend.Summary
	Preset  string
	Presets []rangePreset
}

// DashboardHandler renders the landing page (GET /dashboard). The summary is only loaded
// for roles that may see reports.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := dashboardView{Preset: presetOf(r), Presets: rangePresets}

		if guard.Check(r.Context(), roles.ReportsRoles) == guard.DecisionAuthorized {
			summary, err := s.requestAPI(r).DashboardSummary(r.Context(), backend.PresetRange(view.Preset, nowTime()))
			if err != nil && s.handleAPIError(w, r, err) {
				return
			}
			view.Summary = summary
		}
		s.renderPage(w, r, "dashboard", "Inicio", "dashboard.html", view)
	}
}

type reportsView struct {
	Range     backend.DateRange
	Preset    string
	Presets   []rangePreset
	Sales     *backend.Report
	Purchases *backend.Report
}

// ReportsHandler renders sales and purchase reports (GET /reports?range= or ?from=&to=)
func (s *Server) ReportsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := reportsView{Preset: presetOf(r), Presets: rangePresets}

		dateRange, err := rangeFrom(r)
		if err != nil {
			s.toast(r, notify.LevelError, userMessage(err))
			dateRange = backend.PresetRange(view.Preset, nowTime())
		}
		view.Range = dateRange

		api := s.requestAPI(r)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			view.Sales, err = api.SalesReport(ctx, dateRange)
			return err
		})
		g.Go(func() (err error) {
			view.Purchases, err = api.PurchasesReport(ctx, dateRange)
			return err
		})
		if err := g.Wait(); err != nil && s.handleAPIError(w, r, err) {
			return
		}
		s.renderPage(w, r, "reports", "Reportes", "reports.html", view)
	}
}

func presetOf(r *http.Request) string {
	if preset := r.URL.Query().Get("range"); preset != "" {
		return preset
	}
	return backend.Range30d
}

// rangeFrom reads ?from=&to= when present, otherwise the ?range= preset
func rangeFrom(r *http.Request) (backend.DateRange, error) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" && to == "" {
		return backend.PresetRange(presetOf(r), nowTime()), nil
	}
	return backend.ParseRange(from, to)
}

// productCatalog loads every product for the checkout and purchase forms
func productCatalog(ctx context.Context, api *backend.API) ([]backend.Product, error) {
	page, err := api.ListProducts(ctx, backend.PageQuery{Page: 1, Limit: backend.MaxPageSize})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/jrsteele09/aqua-control/backend"
	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
	"github.com/jrsteele09/aqua-control/internal/utils"
	"github.com/jrsteele09/aqua-control/roles"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	*httptest.Server
	roleCalls    atomic.Int32
	lastBody     map[string]any
	failReports  bool
	lastQuery    string
	deletedPaths []string
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{}
	products := []backend.Product{
		{ID: "p1", Name: "Gafas", SKU: "GAF-1", Price: 12.5, Stock: 2},
		{ID: "p2", Name: "Gorro", SKU: "GOR-1", Price: 4.99, Stock: 40},
	}

	decode := func(r *http.Request) {
		f.lastBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		f.lastQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{"data": products, "count": 42})
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range products {
			if p.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, map[string]any{"data": p})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Producto no encontrado"})
	})
	mux.HandleFunc("POST /products", func(w http.ResponseWriter, r *http.Request) {
		decode(r)
		if f.lastBody["sku"] == "GAF-1" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"El SKU ya existe"}})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": "p3", "name": f.lastBody["name"]}})
	})
	mux.HandleFunc("PUT /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		decode(r)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": r.PathValue("id"), "name": f.lastBody["name"]}})
	})
	mux.HandleFunc("DELETE /{collection}/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.deletedPaths = append(f.deletedPaths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /sales", func(w http.ResponseWriter, r *http.Request) {
		decode(r)
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
			"id": "s1", "total": f.lastBody["total"], "paymentMethod": f.lastBody["paymentMethod"],
		}})
	})
	mux.HandleFunc("GET /sales", func(w http.ResponseWriter, r *http.Request) {
		f.lastQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "s1", "total": 10}}})
	})
	mux.HandleFunc("POST /purchases", func(w http.ResponseWriter, r *http.Request) {
		decode(r)
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": "c1", "supplier": f.lastBody["supplier"]}})
	})
	mux.HandleFunc("GET /reports/{kind}", func(w http.ResponseWriter, r *http.Request) {
		if f.failReports && r.PathValue("kind") == "purchases" {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "db down"})
			return
		}
		total := 1500.0
		if r.PathValue("kind") == "purchases" {
			total = 600.25
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"total": total, "count": 12}})
	})
	mux.HandleFunc("GET /roles", func(w http.ResponseWriter, r *http.Request) {
		f.roleCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
			{"id": 1, "name": "Administrador"},
			{"id": 3, "name": "Asistente"},
		}})
	})
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		decode(r)
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": "u9", "email": f.lastBody["email"]}})
	})
	mux.HandleFunc("PUT /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		decode(r)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": r.PathValue("id"), "active": false}})
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newAPI(f *fakeBackend) *backend.API {
	return backend.New(apiclient.New(f.URL), time.Hour)
}

func TestListProducts(t *testing.T) {
	f := newFakeBackend(t)
	api := newAPI(f)

	page, err := api.ListProducts(context.Background(), backend.PageQuery{Page: 2, Limit: 500, Search: "gaf"})
	require.NoError(t, err)
	require.Equal(t, "limit=100&page=2&search=gaf", f.lastQuery)
	require.Len(t, page.Items, 2)
	require.Equal(t, 42, page.Total)
	require.Equal(t, 1, page.TotalPages())
	require.True(t, page.Items[0].LowStock())

	page, err = api.ListProducts(context.Background(), backend.PageQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Page)
	require.Equal(t, backend.DefaultPageSize, page.Limit)
	require.Equal(t, 3, page.TotalPages())
	require.True(t, page.HasNext())
	require.False(t, page.HasPrev())
}

func TestProductCRUD(t *testing.T) {
	f := newFakeBackend(t)
	api := newAPI(f)
	ctx := context.Background()

	p, err := api.GetProduct(ctx, "p2")
	require.NoError(t, err)
	require.Equal(t, "Gorro", p.Name)

	_, err = api.GetProduct(ctx, "missing")
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)

	created, err := api.CreateProduct(ctx, backend.ProductInput{Name: " Aletas ", SKU: "ALE-1", Price: 30, Stock: 5})
	require.NoError(t, err)
	require.Equal(t, "p3", created.ID)
	require.Equal(t, "Aletas", f.lastBody["name"])

	_, err = api.CreateProduct(ctx, backend.ProductInput{Name: "Gafas", SKU: "GAF-1"})
	require.Equal(t, apiclient.KindValidation, apiclient.KindOf(err))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "El SKU ya existe", apiErr.Message)

	_, err = api.CreateProduct(ctx, backend.ProductInput{Name: "x", SKU: "y", Price: -1})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	updated, err := api.UpdateProduct(ctx, "p1", backend.ProductInput{Name: "Gafas Pro", SKU: "GAF-1"})
	require.NoError(t, err)
	require.Equal(t, "Gafas Pro", updated.Name)

	require.NoError(t, api.DeleteProduct(ctx, "p1"))
	require.Equal(t, []string{"/products/p1"}, f.deletedPaths)
}

func TestCheckout(t *testing.T) {
	f := newFakeBackend(t)
	api := newAPI(f)

	cart := backend.NewCart()
	require.NoError(t, cart.Add(backend.Product{ID: "p2", Price: 4.99, Stock: 40}, 2))

	sale, err := api.Checkout(context.Background(), cart, backend.PaymentCash)
	require.NoError(t, err)
	require.Equal(t, "s1", sale.ID)
	require.Equal(t, 9.98, sale.Total)
	require.Equal(t, "efectivo", f.lastBody["paymentMethod"])
	items := f.lastBody["items"].([]any)
	require.Len(t, items, 1)
	require.Equal(t, "p2", items[0].(map[string]any)["productId"])

	_, err = api.Checkout(context.Background(), backend.NewCart(), backend.PaymentCash)
	require.ErrorIs(t, err, backend.ErrEmptyCart)
}

func TestSalesAndPurchases(t *testing.T) {
	f := newFakeBackend(t)
	api := newAPI(f)
	ctx := context.Background()

	r, err := backend.ParseRange("2025-01-01", "2025-01-31")
	require.NoError(t, err)
	sales, err := api.ListSales(ctx, r)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Equal(t, "from=2025-01-01&to=2025-01-31", f.lastQuery)

	in := backend.PurchaseInput{Supplier: "Acme", Items: []backend.PurchaseItem{{ProductID: "p1", Quantity: 10, UnitCost: 6.2}}}
	require.Equal(t, 62.0, in.Total())
	purchase, err := api.CreatePurchase(ctx, in)
	require.NoError(t, err)
	require.Equal(t, "Acme", purchase.Supplier)

	_, err = api.CreatePurchase(ctx, backend.PurchaseInput{Supplier: "Acme"})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDashboardSummary(t *testing.T) {
	f := newFakeBackend(t)
	api := newAPI(f)
	r := backend.PresetRange(backend.Range7d, time.Now())

	s, err := api.DashboardSummary(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 1500.0, s.Sales.Total)
	require.Equal(t, 600.25, s.Purchases.Total)
	require.Equal(t, 899.75, s.Balance())
	require.Equal(t, 42, s.ProductCount)
	require.Len(t, s.LowStock, 1)
	require.Equal(t, "p1", s.LowStock[0].ID)

	f.failReports = true
	_, err = api.DashboardSummary(context.Background(), r)
	require.Equal(t, apiclient.KindServerError, apiclient.KindOf(err))
}

func TestDashboardSummaryNotifiesOnlyTheFailure(t *testing.T) {
	hung := func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /reports/sales", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "db down"})
	})
	mux.HandleFunc("GET /reports/purchases", hung)
	mux.HandleFunc("GET /products", hung)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	var (
		mu    sync.Mutex
		kinds []apiclient.ErrorKind
	)
	client := apiclient.New(srv.URL, apiclient.WithNotifier(func(_ context.Context, err *apiclient.Error) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, err.Kind)
	}))

	_, err := backend.New(client, time.Hour).DashboardSummary(context.Background(), backend.PresetRange(backend.Range7d, time.Now()))
	require.Equal(t, apiclient.KindServerError, apiclient.KindOf(err))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []apiclient.ErrorKind{apiclient.KindServerError}, kinds)
}

func TestListRolesIsCached(t *testing.T) {
	f := newFakeBackend(t)
	api := newAPI(f)

	for range 3 {
		list, err := api.ListRoles(context.Background())
		require.NoError(t, err)
		require.Equal(t, []roles.Role{{ID: 1, Name: roles.Administrador}, {ID: 3, Name: roles.Asistente}}, list)
	}
	require.Equal(t, int32(1), f.roleCalls.Load())
}

func TestUsers(t *testing.T) {
	f := newFakeBackend(t)
	api := newAPI(f)
	ctx := context.Background()

	u, err := api.CreateUser(ctx, backend.UserInput{Name: "Ana", Email: "ana@aqua.test", Password: "secreto", RoleIDs: []int{3}})
	require.NoError(t, err)
	require.Equal(t, "u9", u.ID)
	require.True(t, u.IsActive())

	_, err = api.CreateUser(ctx, backend.UserInput{Name: "Ana", Email: "ana@aqua.test", Password: "123"})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	u, err = api.UpdateUser(ctx, "u9", backend.UserUpdate{Active: utils.Ptr(false)})
	require.NoError(t, err)
	require.False(t, u.IsActive())
	require.Equal(t, map[string]any{"active": false}, f.lastBody)

	_, err = api.UpdateUser(ctx, "u9", backend.UserUpdate{RoleIDs: utils.Ptr([]int{})})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	require.NoError(t, api.DeleteUser(ctx, "u9"))
	require.Equal(t, []string{"/users/u9"}, f.deletedPaths)
}

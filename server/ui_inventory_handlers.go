package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/aqua-control/backend"
	"github.com/jrsteele09/aqua-control/notify"
)

type productsView struct {
	Page   backend.Page[backend.Product]
	Search string
}

// ProductsListHandler renders the inventory (GET /products?page=&q=)
func (s *Server) ProductsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := pageQuery(r)
		page, err := s.requestAPI(r).ListProducts(r.Context(), q)
		if err != nil && s.handleAPIError(w, r, err) {
			return
		}
		s.renderPage(w, r, "products", "Productos", "products.html", productsView{Page: page, Search: q.Search})
	}
}

// ProductCreateHandler handles POST /products
func (s *Server) ProductCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := productForm(r)
		if err == nil {
			var p *backend.Product
			if p, err = s.requestAPI(r).CreateProduct(r.Context(), in); err == nil {
				s.toast(r, notify.LevelSuccess, fmt.Sprintf("Producto %q creado", p.Name))
			}
		}
		s.finishForm(w, r, RouteProducts, err)
	}
}

// ProductUpdateHandler handles POST /products/{id}
func (s *Server) ProductUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := productForm(r)
		if err == nil {
			if _, err = s.requestAPI(r).UpdateProduct(r.Context(), r.PathValue("id"), in); err == nil {
				s.toast(r, notify.LevelSuccess, "Producto actualizado")
			}
		}
		s.finishForm(w, r, RouteProducts, err)
	}
}

// ProductDeleteHandler handles POST /products/{id}/delete
func (s *Server) ProductDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.requestAPI(r).DeleteProduct(r.Context(), r.PathValue("id"))
		if err == nil {
			s.toast(r, notify.LevelSuccess, "Producto eliminado")
		}
		s.finishForm(w, r, RouteProducts, err)
	}
}

type checkoutView struct {
	Products       []backend.Product
	PaymentMethods []string
}

// CheckoutPageHandler renders the point of sale (GET /checkout)
func (s *Server) CheckoutPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := productCatalog(r.Context(), s.requestAPI(r))
		if err != nil && s.handleAPIError(w, r, err) {
			return
		}
		s.renderPage(w, r, "checkout", "Punto de venta", "checkout.html", checkoutView{
			Products:       products,
			PaymentMethods: backend.PaymentMethods,
		})
	}
}

// CheckoutSubmitHandler registers a sale (POST /checkout). The form repeats product_id and
// quantity once per product; lines with quantity zero are ignored.
func (s *Server) CheckoutSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sale, err := s.checkout(r)
		if err == nil {
			s.toast(r, notify.LevelSuccess, fmt.Sprintf("Venta registrada por $%.2f", sale.Total))
		}
		s.finishForm(w, r, RouteCheckout, err)
	}
}

func (s *Server) checkout(r *http.Request) (*backend.Sale, error) {
	lines, err := formLines(r)
	if err != nil {
		return nil, err
	}
	api := s.requestAPI(r)
	cart := backend.NewCart()
	for _, line := range lines {
		product, err := api.GetProduct(r.Context(), line.productID)
		if err != nil {
			return nil, err
		}
		if err := cart.Add(*product, line.quantity); err != nil {
			return nil, err
		}
	}
	return api.Checkout(r.Context(), cart, r.PostFormValue("payment_method"))
}

type purchasesView struct {
	From      string
	To        string
	Purchases []backend.Purchase
	Products  []backend.Product
}

// PurchasesPageHandler lists purchases of a period (GET /purchases?from=&to=)
func (s *Server) PurchasesPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dateRange, err := rangeFrom(r)
		if err != nil {
			s.toast(r, notify.LevelError, userMessage(err))
			dateRange = backend.PresetRange(backend.Range30d, nowTime())
		}
		view := purchasesView{
			From: dateRange.From.Format("2006-01-02"),
			To:   dateRange.To.Format("2006-01-02"),
		}

		api := s.requestAPI(r)
		if view.Purchases, err = api.ListPurchases(r.Context(), dateRange); err != nil && s.handleAPIError(w, r, err) {
			return
		}
		if view.Products, err = productCatalog(r.Context(), api); err != nil && s.handleAPIError(w, r, err) {
			return
		}
		s.renderPage(w, r, "purchases", "Compras", "purchases.html", view)
	}
}

// PurchaseCreateHandler registers a restock (POST /purchases)
func (s *Server) PurchaseCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := purchaseForm(r)
		if err == nil {
			var p *backend.Purchase
			if p, err = s.requestAPI(r).CreatePurchase(r.Context(), in); err == nil {
				s.toast(r, notify.LevelSuccess, fmt.Sprintf("Compra registrada por $%.2f", p.Total))
			}
		}
		s.finishForm(w, r, RoutePurchases, err)
	}
}

// finishForm redirects back to path after a form post, reporting err as a toast
func (s *Server) finishForm(w http.ResponseWriter, r *http.Request, path string, err error) {
	if err != nil {
		s.redirectWithError(w, r, path, err)
		return
	}
	redirectSuccess(w, r, path)
}

func pageQuery(r *http.Request) backend.PageQuery {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return backend.PageQuery{Page: page, Limit: limit, Search: strings.TrimSpace(r.URL.Query().Get("q"))}
}

func productForm(r *http.Request) (backend.ProductInput, error) {
	if err := r.ParseForm(); err != nil {
		return backend.ProductInput{}, formError("formulario inválido")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(r.PostFormValue("price")), 64)
	if err != nil {
		return backend.ProductInput{}, formError("el precio no es un número válido")
	}
	stock, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("stock")))
	if err != nil {
		return backend.ProductInput{}, formError("el stock no es un número válido")
	}
	return backend.ProductInput{
		Name:     r.PostFormValue("name"),
		SKU:      r.PostFormValue("sku"),
		Category: r.PostFormValue("category"),
		Price:    price,
		Stock:    stock,
	}, nil
}

type formLine struct {
	productID string
	quantity  int
	unitCost  float64
}

// formLines pairs the repeated product_id, quantity and (optional) unit_cost fields
func formLines(r *http.Request) ([]formLine, error) {
	if err := r.ParseForm(); err != nil {
		return nil, formError("formulario inválido")
	}
	ids := r.PostForm["product_id"]
	quantities := r.PostForm["quantity"]
	costs := r.PostForm["unit_cost"]
	if len(ids) != len(quantities) {
		return nil, formError("formulario inválido")
	}

	lines := make([]formLine, 0, len(ids))
	for i, id := range ids {
		qty, err := strconv.Atoi(strings.TrimSpace(quantities[i]))
		if err != nil || qty < 0 {
			return nil, backend.ErrInvalidQuantity
		}
		if qty == 0 {
			continue
		}
		line := formLine{productID: id, quantity: qty}
		if i < len(costs) {
			if line.unitCost, err = strconv.ParseFloat(strings.TrimSpace(costs[i]), 64); err != nil {
				return nil, formError("el costo no es un número válido")
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func purchaseForm(r *http.Request) (backend.PurchaseInput, error) {
	lines, err := formLines(r)
	if err != nil {
		return backend.PurchaseInput{}, err
	}
	in := backend.PurchaseInput{Supplier: r.PostFormValue("supplier")}
	for _, line := range lines {
		in.Items = append(in.Items, backend.PurchaseItem{
			ProductID: line.productID,
			Quantity:  line.quantity,
			UnitCost:  line.unitCost,
		})
	}
	return in, nil
}

func formError(msg string) error {
	return &backend.InputError{Message: msg}
}

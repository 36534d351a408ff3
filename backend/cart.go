package backend

import (
	"fmt"
	"math"

	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
)

// Payment methods accepted at checkout
const (
	PaymentCash     = "efectivo"
	PaymentCard     = "tarjeta"
	PaymentTransfer = "transferencia"
)

var PaymentMethods = []string{PaymentCash, PaymentCard, PaymentTransfer}

var (
	ErrEmptyCart         = invalid("el carrito está vacío")
	ErrInvalidQuantity   = invalid("la cantidad debe ser mayor a cero")
	ErrInsufficientStock = invalid("stock insuficiente")
	ErrPaymentMethod     = invalid("método de pago inválido")
)

// CartLine is one product in the cart
type CartLine struct {
	Product  Product
	Quantity int
}

func (l CartLine) Subtotal() float64 {
	return roundCents(l.Product.Price * float64(l.Quantity))
}

// Cart is the point-of-sale basket. Lines keep insertion order.
type Cart struct {
	lines []CartLine
}

func NewCart() *Cart {
	return &Cart{}
}

// Add puts qty more units of p in the cart
func (c *Cart) Add(p Product, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if i := c.index(p.ID); i >= 0 {
		return c.set(i, p, c.lines[i].Quantity+qty)
	}
	if qty > p.Stock {
		return stockError(p, qty)
	}
	c.lines = append(c.lines, CartLine{Product: p, Quantity: qty})
	return nil
}

// SetQuantity replaces the quantity of a line; zero removes it
func (c *Cart) SetQuantity(productID string, qty int) error {
	i := c.index(productID)
	if i < 0 {
		return apperrors.Wrapf(apperrors.ErrNotFound, "producto %s no está en el carrito", productID)
	}
	if qty == 0 {
		c.Remove(productID)
		return nil
	}
	if qty < 0 {
		return ErrInvalidQuantity
	}
	return c.set(i, c.lines[i].Product, qty)
}

func (c *Cart) Remove(productID string) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Total() float64 {
	total := 0.0
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return roundCents(total)
}

// Validate re-checks every line against the product stock it was added with
func (c *Cart) Validate() error {
	if c.Empty() {
		return ErrEmptyCart
	}
	for _, l := range c.lines {
		if l.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if l.Quantity > l.Product.Stock {
			return stockError(l.Product, l.Quantity)
		}
	}
	return nil
}

// CheckoutRequest is the POST /sales body
type CheckoutRequest struct {
	Items         []SaleItem `json:"items"`
	PaymentMethod string     `json:"paymentMethod"`
	Total         float64    `json:"total"`
}

// Request builds the checkout body after validating the cart and payment method
func (c *Cart) Request(paymentMethod string) (CheckoutRequest, error) {
	if err := c.Validate(); err != nil {
		return CheckoutRequest{}, err
	}
	if !validPaymentMethod(paymentMethod) {
		return CheckoutRequest{}, ErrPaymentMethod
	}
	req := CheckoutRequest{PaymentMethod: paymentMethod, Total: c.Total()}
	for _, l := range c.lines {
		req.Items = append(req.Items, SaleItem{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
		})
	}
	return req, nil
}

func (c *Cart) set(i int, p Product, qty int) error {
	if qty > p.Stock {
		return stockError(p, qty)
	}
	c.lines[i] = CartLine{Product: p, Quantity: qty}
	return nil
}

func (c *Cart) index(productID string) int {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

func stockError(p Product, qty int) error {
	return fmt.Errorf("%w: %s (disponible %d, solicitado %d)", ErrInsufficientStock, p.Name, p.Stock, qty)
}

func validPaymentMethod(m string) bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

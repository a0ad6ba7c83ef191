package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"anypos-register/internal/gateway/middleware"
	"anypos-register/internal/models"
	"anypos-register/internal/services/pos"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Register is the cart and checkout of this till, implemented by pos.Service.
type Register interface {
	Cart(ctx context.Context) pos.Cart
	AddItem(ctx context.Context, p models.Product) (pos.Cart, error)
	SetQuantity(ctx context.Context, productID int64, n int) (pos.Cart, error)
	RemoveItem(ctx context.Context, productID int64) (pos.Cart, error)
	Clear(ctx context.Context) (pos.Cart, error)
	Submit(ctx context.Context, token string, req pos.SubmitRequest) (*pos.CheckoutResult, error)
	TaxRate() decimal.Decimal
}

type ProductLookup interface {
	Product(ctx context.Context, token string, id int64) (*models.Product, error)
}

type POSHTTPHandler struct {
	register Register
	products ProductLookup
}

func NewPOSHTTPHandler(register Register, products ProductLookup) *POSHTTPHandler {
	return &POSHTTPHandler{
		register: register,
		products: products,
	}
}

// Request structs
type AddItemToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required,min=1"`
	Quantity  int   `json:"quantity,omitempty"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CheckoutRequest struct {
	PaymentMethod   string           `json:"payment_method" binding:"required"`
	AmountPaid      *decimal.Decimal `json:"amount_paid"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	CustomerID      *int64           `json:"customer_id,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
}

// Response views. Money goes out fixed to two decimals.
type CartLineView struct {
	ProductID int64       `json:"product_id"`
	Code      string      `json:"code,omitempty"`
	Name      string      `json:"name"`
	UnitPrice json.Number `json:"unit_price"`
	Quantity  int         `json:"quantity"`
	LineTotal json.Number `json:"line_total"`
}

type TotalsView struct {
	Subtotal        json.Number `json:"subtotal"`
	DiscountPercent string      `json:"discount_percent"`
	Discount        json.Number `json:"discount"`
	TaxRate         string      `json:"tax_rate"`
	Tax             json.Number `json:"tax"`
	Total           json.Number `json:"total"`
}

type CartView struct {
	Lines     []CartLineView `json:"lines"`
	ItemCount int            `json:"item_count"`
	Totals    TotalsView     `json:"totals"`
}

type CheckoutView struct {
	ReferenceNumber string               `json:"reference_number"`
	SaleID          int64                `json:"sale_id"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
	Totals          TotalsView           `json:"totals"`
	AmountPaid      json.Number          `json:"amount_paid"`
	Change          json.Number          `json:"change"`
}

func totalsView(t pos.Totals) TotalsView {
	return TotalsView{
		Subtotal:        models.Money(t.Subtotal),
		DiscountPercent: t.DiscountPercent.String(),
		Discount:        models.Money(t.DiscountAmount),
		TaxRate:         t.TaxRate.String(),
		Tax:             models.Money(t.Tax),
		Total:           models.Money(t.Total),
	}
}

func (h *POSHTTPHandler) cartView(cart pos.Cart, discount decimal.Decimal) (CartView, error) {
	totals, err := pos.ComputeTotals(cart, discount, h.register.TaxRate())
	if err != nil {
		return CartView{}, err
	}
	lines := make([]CartLineView, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		lines = append(lines, CartLineView{
			ProductID: l.ProductID,
			Code:      l.Code,
			Name:      l.Name,
			UnitPrice: models.Money(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: models.Money(l.Total()),
		})
	}
	return CartView{Lines: lines, ItemCount: cart.ItemCount(), Totals: totalsView(totals)}, nil
}

func (h *POSHTTPHandler) respondCart(c *gin.Context, status int, message string, cart pos.Cart) {
	view, err := h.cartView(cart, decimal.Zero)
	if err != nil {
		handleAPIError(c, err)
		return
	}
	c.JSON(status, successResponse(message, view))
}

// parseDiscount reads the optional ?discount= percentage.
func parseDiscount(c *gin.Context) (decimal.Decimal, bool) {
	raw := c.Query("discount")
	if raw == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid discount"))
		return decimal.Zero, false
	}
	return d, true
}

// --- Cart Handlers ---

func (h *POSHTTPHandler) GetCart(c *gin.Context) {
	discount, ok := parseDiscount(c)
	if !ok {
		return
	}

	view, err := h.cartView(h.register.Cart(c.Request.Context()), discount)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Cart retrieved successfully", view))
}

func (h *POSHTTPHandler) AddItemToCart(c *gin.Context) {
	var req AddItemToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	token, ok := credentialToken(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	product, err := h.products.Product(ctx, token, req.ProductID)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	cart, err := h.register.AddItem(ctx, *product)
	if err != nil {
		handleAPIError(c, err)
		return
	}
	if req.Quantity > 1 {
		current := 0
		for _, l := range cart.Lines {
			if l.ProductID == product.ID {
				current = l.Quantity
			}
		}
		if cart, err = h.register.SetQuantity(ctx, product.ID, current+req.Quantity-1); err != nil {
			handleAPIError(c, err)
			return
		}
	}

	h.respondCart(c, http.StatusOK, "Item added to cart", cart)
}

func (h *POSHTTPHandler) UpdateCartItem(c *gin.Context) {
	productID, ok := parseIDParam(c, "product_id", "product")
	if !ok {
		return
	}
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		c.JSON(http.StatusBadRequest, errorResponse("Quantity is required"))
		return
	}

	cart, err := h.register.SetQuantity(c.Request.Context(), productID, *req.Quantity)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	h.respondCart(c, http.StatusOK, "Cart item updated", cart)
}

func (h *POSHTTPHandler) RemoveCartItem(c *gin.Context) {
	productID, ok := parseIDParam(c, "product_id", "product")
	if !ok {
		return
	}

	cart, err := h.register.RemoveItem(c.Request.Context(), productID)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	h.respondCart(c, http.StatusOK, "Item removed from cart", cart)
}

func (h *POSHTTPHandler) ClearCart(c *gin.Context) {
	cart, err := h.register.Clear(c.Request.Context())
	if err != nil {
		handleAPIError(c, err)
		return
	}

	h.respondCart(c, http.StatusOK, "Cart cleared", cart)
}

// --- Checkout ---

func (h *POSHTTPHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	if req.AmountPaid == nil {
		c.JSON(http.StatusBadRequest, errorResponse("Amount paid is required"))
		return
	}
	cred, ok := middleware.GetCredential(c)
	if !ok {
		credentialToken(c)
		return
	}

	ctx, cancel := requestContext(c, 30*time.Second)
	defer cancel()

	result, err := h.register.Submit(ctx, cred.Token, pos.SubmitRequest{
		PaymentMethod:   req.PaymentMethod,
		AmountPaid:      *req.AmountPaid,
		DiscountPercent: req.DiscountPercent,
		CustomerID:      req.CustomerID,
		Notes:           req.Notes,
		Cashier:         cred.Username,
	})
	if err != nil {
		handleAPIError(c, err)
		return
	}

	method := result.Sale.PaymentMethod
	if method == "" {
		method, _ = models.ParsePaymentMethod(req.PaymentMethod)
	}
	c.JSON(http.StatusCreated, successResponse("Sale completed", CheckoutView{
		ReferenceNumber: result.ReferenceNumber,
		SaleID:          result.Sale.ID,
		PaymentMethod:   method,
		Totals:          totalsView(result.Totals),
		AmountPaid:      models.Money(result.AmountPaid),
		Change:          models.Money(result.Change),
	}))
}

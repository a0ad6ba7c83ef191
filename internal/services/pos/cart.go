package pos

import (
	"anypos-register/internal/apperror"
	"anypos-register/internal/models"

	"github.com/shopspring/decimal"
)

var (
	hundred        = decimal.NewFromInt(100)
	DefaultTaxRate = decimal.NewFromFloat(0.10)
)

type CartLine struct {
	ProductID int64           `json:"product_id"`
	Code      string          `json:"code,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart keeps one line per product in insertion order. Every retained line
// has quantity >= 1.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func (c *Cart) index(productID int64) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem bumps the quantity of an existing line or appends a new one at
// quantity 1, capturing the product's current price.
func (c *Cart) AddItem(p models.Product) {
	if i := c.index(p.ID); i >= 0 {
		c.Lines[i].Quantity++
		return
	}
	c.Lines = append(c.Lines, CartLine{
		ProductID: p.ID,
		Code:      p.Code,
		Name:      p.Name,
		UnitPrice: p.SellingPrice,
		Quantity:  1,
	})
}

// SetQuantity removes the line when n <= 0. Stock is not checked here; the
// API rejects oversold sales.
func (c *Cart) SetQuantity(productID int64, n int) {
	if n <= 0 {
		c.RemoveItem(productID)
		return
	}
	if i := c.index(productID); i >= 0 {
		c.Lines[i].Quantity = n
	}
}

func (c *Cart) RemoveItem(productID int64) {
	if i := c.index(productID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

func (c *Cart) Clear() {
	c.Lines = nil
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	if c.Lines == nil {
		return Cart{}
	}
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}

type Totals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
}

// Rounded returns the totals fixed to two decimals for display.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:        t.Subtotal.Round(2),
		DiscountPercent: t.DiscountPercent,
		DiscountAmount:  t.DiscountAmount.Round(2),
		TaxRate:         t.TaxRate,
		Tax:             t.Tax.Round(2),
		Total:           t.Total.Round(2),
	}
}

// ComputeTotals applies the discount to the subtotal and tax to the
// discounted amount. Nothing is rounded here.
func ComputeTotals(cart Cart, discountPercent, taxRate decimal.Decimal) (Totals, error) {
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return Totals{}, apperror.NewInvalidAmount("Discount must be between 0 and 100 percent")
	}
	if taxRate.IsNegative() {
		return Totals{}, apperror.NewInvalidAmount("Tax rate cannot be negative")
	}

	subtotal := cart.Subtotal()
	discount := subtotal.Mul(discountPercent).Div(hundred)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate)

	return Totals{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  discount,
		TaxRate:         taxRate,
		Tax:             tax,
		Total:           taxable.Add(tax),
	}, nil
}

// ValidatePayment returns the change due, or InsufficientPayment when the
// tendered amount is short of total.
func ValidatePayment(amountPaid, total decimal.Decimal) (decimal.Decimal, error) {
	if amountPaid.LessThan(total) {
		return decimal.Zero, apperror.ErrInsufficientPayment
	}
	return amountPaid.Sub(total), nil
}

package pos

import (
	"errors"
	"testing"

	"anypos-register/internal/apperror"
	"anypos-register/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func product(id int64, name, price string) models.Product {
	return models.Product{ID: id, Code: name, Name: name, SellingPrice: dec(price), IsActive: true}
}

func TestCartAddItemMergesLines(t *testing.T) {
	var c Cart
	c.AddItem(product(1, "coffee", "10.00"))
	c.AddItem(product(2, "bagel", "5.00"))
	c.AddItem(product(1, "coffee", "10.00"))

	require.Len(t, c.Lines, 2)
	assert.Equal(t, int64(1), c.Lines[0].ProductID)
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.Equal(t, 1, c.Lines[1].Quantity)
	assert.Equal(t, 3, c.ItemCount())
}

func TestCartSetQuantity(t *testing.T) {
	var c Cart
	c.AddItem(product(1, "coffee", "10.00"))
	c.AddItem(product(2, "bagel", "5.00"))

	c.SetQuantity(1, 4)
	assert.Equal(t, 4, c.Lines[0].Quantity)

	c.SetQuantity(99, 3)
	assert.Len(t, c.Lines, 2)

	c.SetQuantity(1, 0)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(2), c.Lines[0].ProductID)

	c.SetQuantity(2, -1)
	assert.True(t, c.IsEmpty())
}

func TestCartRemoveItem(t *testing.T) {
	var c Cart
	c.AddItem(product(1, "coffee", "10.00"))
	c.RemoveItem(42)
	assert.Len(t, c.Lines, 1)
	c.RemoveItem(1)
	assert.True(t, c.IsEmpty())
}

func TestCartCloneIsIndependent(t *testing.T) {
	var c Cart
	c.AddItem(product(1, "coffee", "10.00"))
	clone := c.Clone()
	c.SetQuantity(1, 7)
	assert.Equal(t, 1, clone.Lines[0].Quantity)
}

func TestComputeTotalsReferenceScenario(t *testing.T) {
	var c Cart
	c.AddItem(product(1, "coffee", "10.00"))
	c.AddItem(product(1, "coffee", "10.00"))
	c.AddItem(product(2, "bagel", "5.00"))

	totals, err := ComputeTotals(c, dec("10"), DefaultTaxRate)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(dec("25.00")), totals.Subtotal.String())
	assert.True(t, totals.DiscountAmount.Equal(dec("2.50")), totals.DiscountAmount.String())
	assert.True(t, totals.Tax.Equal(dec("2.25")), totals.Tax.String())
	assert.True(t, totals.Total.Equal(dec("24.75")), totals.Total.String())

	change, err := ValidatePayment(dec("30.00"), totals.Total)
	require.NoError(t, err)
	assert.True(t, change.Equal(dec("5.25")), change.String())
}

func TestComputeTotalsDoesNotRoundPerLine(t *testing.T) {
	var c Cart
	c.AddItem(product(1, "gum", "0.333"))
	c.SetQuantity(1, 3)

	totals, err := ComputeTotals(c, decimal.Zero, DefaultTaxRate)
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.Equal(dec("0.999")))
	assert.True(t, totals.Tax.Equal(dec("0.0999")))
	assert.Equal(t, "1.10", totals.Rounded().Total.StringFixed(2))
}

func TestComputeTotalsLinearity(t *testing.T) {
	var c Cart
	c.AddItem(product(1, "a", "19.99"))
	c.SetQuantity(1, 3)
	c.AddItem(product(2, "b", "0.05"))

	for _, pct := range []string{"0", "12.5", "33", "100"} {
		p := dec(pct)
		totals, err := ComputeTotals(c, p, DefaultTaxRate)
		require.NoError(t, err)

		sub := c.Subtotal()
		wantDiscount := sub.Mul(p).Div(dec("100"))
		wantTax := sub.Sub(wantDiscount).Mul(DefaultTaxRate)
		assert.True(t, totals.DiscountAmount.Equal(wantDiscount), pct)
		assert.True(t, totals.Tax.Equal(wantTax), pct)
		assert.True(t, totals.Total.Equal(sub.Sub(wantDiscount).Add(wantTax)), pct)
	}
}

func TestComputeTotalsRejectsDiscountOutOfRange(t *testing.T) {
	var c Cart
	c.AddItem(product(1, "coffee", "10.00"))

	for _, pct := range []string{"-1", "100.01"} {
		_, err := ComputeTotals(c, dec(pct), DefaultTaxRate)
		var ve *apperror.ValidationError
		require.True(t, errors.As(err, &ve), pct)
		assert.Equal(t, apperror.KindInvalidAmount, ve.Kind)
	}
}

func TestValidatePayment(t *testing.T) {
	_, err := ValidatePayment(dec("24.74"), dec("24.75"))
	assert.ErrorIs(t, err, apperror.ErrInsufficientPayment)

	change, err := ValidatePayment(dec("24.75"), dec("24.75"))
	require.NoError(t, err)
	assert.True(t, change.IsZero())
}

package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentCheque PaymentMethod = "cheque"
	PaymentOnline PaymentMethod = "online"
	PaymentCredit PaymentMethod = "credit"
)

var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentCheque, PaymentOnline, PaymentCredit}

// ParsePaymentMethod accepts any casing; ok is false for unknown methods.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range PaymentMethods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
	SaleRefunded  SaleStatus = "refunded"
)

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   Timestamp `json:"created_at"`
}

type Product struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	CategoryID      *int64          `json:"category_id,omitempty"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	QuantityInStock int             `json:"quantity_in_stock"`
	MinimumStock    int             `json:"minimum_stock"`
	Barcode         *string         `json:"barcode,omitempty"`
	IsActive        bool            `json:"is_active"`
}

// SaleItemRequest is one line of a sale submission.
type SaleItemRequest struct {
	ProductID int64       `json:"product_id"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unit_price"`
}

// SaleRequest is the body of POST /sales. Amounts are json.Number so they go
// over the wire as plain numbers fixed to two decimals.
type SaleRequest struct {
	CustomerID    *int64            `json:"customer_id,omitempty"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Discount      json.Number       `json:"discount"`
	Tax           json.Number       `json:"tax"`
	AmountPaid    json.Number       `json:"amount_paid"`
	Notes         *string           `json:"notes,omitempty"`
	Items         []SaleItemRequest `json:"items"`
}

type Sale struct {
	ID              int64           `json:"id"`
	ReferenceNumber string          `json:"reference_number"`
	CustomerID      *int64          `json:"customer_id,omitempty"`
	CashierID       int64           `json:"cashier_id"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	Change          decimal.Decimal `json:"change"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Status          SaleStatus      `json:"status"`
	CreatedAt       Timestamp       `json:"created_at"`
}

// Money renders d the way amounts are sent to the API.
func Money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

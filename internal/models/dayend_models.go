package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DayEndSession mirrors one cash-drawer session as the API reports it.
type DayEndSession struct {
	ID              int64           `json:"id"`
	CashierID       int64           `json:"cashier_id"`
	TotalSalesCount int             `json:"total_sales_count"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	TotalTax        decimal.Decimal `json:"total_tax"`
	CashSales       decimal.Decimal `json:"cash_sales"`
	CardSales       decimal.Decimal `json:"card_sales"`
	ChequeSales     decimal.Decimal `json:"cheque_sales"`
	OnlineSales     decimal.Decimal `json:"online_sales"`
	CreditSales     decimal.Decimal `json:"credit_sales"`
	ExpectedCash    decimal.Decimal `json:"expected_cash"`
	ActualCash      decimal.Decimal `json:"actual_cash"`
	CashVariance    decimal.Decimal `json:"cash_variance"`
	OpeningBalance  decimal.Decimal `json:"opening_balance"`
	ClosingBalance  decimal.Decimal `json:"closing_balance"`
	IsClosed        bool            `json:"is_closed"`
	OpenedAt        Timestamp       `json:"opened_at"`
	ClosedAt        *Timestamp      `json:"closed_at,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
}

// SalesFor returns the bucket a payment method is attributed to.
func (s *DayEndSession) SalesFor(m PaymentMethod) decimal.Decimal {
	switch m {
	case PaymentCash:
		return s.CashSales
	case PaymentCard:
		return s.CardSales
	case PaymentCheque:
		return s.ChequeSales
	case PaymentOnline:
		return s.OnlineSales
	case PaymentCredit:
		return s.CreditSales
	}
	return decimal.Zero
}

// AddSale attributes amount to the session's payment-method bucket.
func (s *DayEndSession) AddSale(m PaymentMethod, amount, discount, tax decimal.Decimal) {
	switch m {
	case PaymentCash:
		s.CashSales = s.CashSales.Add(amount)
	case PaymentCard:
		s.CardSales = s.CardSales.Add(amount)
	case PaymentCheque:
		s.ChequeSales = s.ChequeSales.Add(amount)
	case PaymentOnline:
		s.OnlineSales = s.OnlineSales.Add(amount)
	case PaymentCredit:
		s.CreditSales = s.CreditSales.Add(amount)
	}
	s.TotalSalesCount++
	s.TotalRevenue = s.TotalRevenue.Add(amount)
	s.TotalDiscount = s.TotalDiscount.Add(discount)
	s.TotalTax = s.TotalTax.Add(tax)
}

type DayEndOpenRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Notes          *string         `json:"notes,omitempty"`
}

// MarshalJSON sends the balance as a plain number, like SaleRequest amounts.
func (r DayEndOpenRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OpeningBalance json.Number `json:"opening_balance"`
		Notes          *string     `json:"notes,omitempty"`
	}{Money(r.OpeningBalance), r.Notes})
}

type DayEndCloseRequest struct {
	ActualCash decimal.Decimal `json:"actual_cash"`
	Notes      *string         `json:"notes,omitempty"`
}

func (r DayEndCloseRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActualCash json.Number `json:"actual_cash"`
		Notes      *string     `json:"notes,omitempty"`
	}{Money(r.ActualCash), r.Notes})
}

// DayEndSummary is the shape of GET /dayend/{id}/summary.
type DayEndSummary struct {
	ID                 int64                    `json:"id"`
	CashierID          int64                    `json:"cashier_id"`
	OpenedAt           Timestamp                `json:"opened_at"`
	ClosedAt           *Timestamp               `json:"closed_at,omitempty"`
	IsClosed           bool                     `json:"is_closed"`
	SalesSummary       DayEndSalesSummary       `json:"sales_summary"`
	PaymentBreakdown   DayEndPaymentBreakdown   `json:"payment_breakdown"`
	CashReconciliation DayEndCashReconciliation `json:"cash_reconciliation"`
	Notes              *string                  `json:"notes,omitempty"`
}

type DayEndSalesSummary struct {
	TotalSales    int             `json:"total_sales"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	TotalTax      decimal.Decimal `json:"total_tax"`
}

type DayEndPaymentBreakdown struct {
	Cash   decimal.Decimal `json:"cash"`
	Card   decimal.Decimal `json:"card"`
	Cheque decimal.Decimal `json:"cheque"`
	Online decimal.Decimal `json:"online"`
	Credit decimal.Decimal `json:"credit"`
}

type DayEndCashReconciliation struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ExpectedCash   decimal.Decimal `json:"expected_cash"`
	ActualCash     decimal.Decimal `json:"actual_cash"`
	Variance       decimal.Decimal `json:"variance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// SummaryOf builds the summary view from a session.
func SummaryOf(s DayEndSession) DayEndSummary {
	return DayEndSummary{
		ID:        s.ID,
		CashierID: s.CashierID,
		OpenedAt:  s.OpenedAt,
		ClosedAt:  s.ClosedAt,
		IsClosed:  s.IsClosed,
		SalesSummary: DayEndSalesSummary{
			TotalSales:    s.TotalSalesCount,
			TotalRevenue:  s.TotalRevenue,
			TotalDiscount: s.TotalDiscount,
			TotalTax:      s.TotalTax,
		},
		PaymentBreakdown: DayEndPaymentBreakdown{
			Cash:   s.CashSales,
			Card:   s.CardSales,
			Cheque: s.ChequeSales,
			Online: s.OnlineSales,
			Credit: s.CreditSales,
		},
		CashReconciliation: DayEndCashReconciliation{
			OpeningBalance: s.OpeningBalance,
			ExpectedCash:   s.ExpectedCash,
			ActualCash:     s.ActualCash,
			Variance:       s.CashVariance,
			ClosingBalance: s.ClosingBalance,
		},
		Notes: s.Notes,
	}
}

package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"anypos-register/internal/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// ZReport is the end-of-day print of one day-end session.
type ZReport struct {
	Company     string
	RegisterID  string
	Summary     models.DayEndSummary
	GeneratedAt time.Time
}

func (r ZReport) Filename() string {
	return fmt.Sprintf("z-report-%d-%s.pdf", r.Summary.ID, r.Summary.OpenedAt.Format("2006-01-02"))
}

// RenderZReportPDF lays the session totals out on one A4 page.
func RenderZReportPDF(r ZReport) ([]byte, error) {
	s := r.Summary
	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.SetTitle(fmt.Sprintf("Z-Report #%d", s.ID), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 8, safeReportValue(r.Company), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 13)
	title := "Z-Report (Day-End Summary)"
	if !s.IsClosed {
		title = "X-Report (Session Still Open)"
	}
	pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Session: #%d | Register: %s | Cashier: %d", s.ID, safeReportValue(r.RegisterID), s.CashierID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Opened: %s", formatReportDateTime(s.OpenedAt.Time)), "", 1, "L", false, 0, "")
	closed := "-"
	if s.ClosedAt != nil {
		closed = formatReportDateTime(s.ClosedAt.Time)
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Closed: %s", closed), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated At: %s", formatReportDateTime(generated)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	section(pdf, "Sales Summary")
	row(pdf, "Transactions", fmt.Sprintf("%d", s.SalesSummary.TotalSales))
	row(pdf, "Revenue", formatMoney(s.SalesSummary.TotalRevenue))
	row(pdf, "Discounts", formatMoney(s.SalesSummary.TotalDiscount))
	row(pdf, "Tax", formatMoney(s.SalesSummary.TotalTax))
	pdf.Ln(3)

	section(pdf, "Payment Breakdown")
	row(pdf, "Cash", formatMoney(s.PaymentBreakdown.Cash))
	row(pdf, "Card", formatMoney(s.PaymentBreakdown.Card))
	row(pdf, "Cheque", formatMoney(s.PaymentBreakdown.Cheque))
	row(pdf, "Online", formatMoney(s.PaymentBreakdown.Online))
	row(pdf, "Credit", formatMoney(s.PaymentBreakdown.Credit))
	pdf.Ln(3)

	rec := s.CashReconciliation
	section(pdf, "Cash Reconciliation")
	row(pdf, "Opening Balance", formatMoney(rec.OpeningBalance))
	row(pdf, "Expected Cash", formatMoney(rec.ExpectedCash))
	if s.IsClosed {
		row(pdf, "Actual Cash", formatMoney(rec.ActualCash))
		row(pdf, "Variance", fmt.Sprintf("%s (%s)", formatMoney(rec.Variance), VarianceLabel(rec.Variance)))
		row(pdf, "Closing Balance", formatMoney(rec.ClosingBalance))
	}

	if s.Notes != nil && strings.TrimSpace(*s.Notes) != "" {
		pdf.Ln(3)
		section(pdf, "Notes")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, *s.Notes, "1", "L", false)
	}

	var buffer bytes.Buffer
	if err := pdf.Output(&buffer); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	return buffer.Bytes(), nil
}

// VarianceLabel names the direction of a cash variance.
func VarianceLabel(v decimal.Decimal) string {
	switch v.Sign() {
	case 1:
		return "over"
	case -1:
		return "short"
	default:
		return "balanced"
	}
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, title, "1", 1, "L", false, 0, "")
}

func row(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 7, label, "1", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, value, "1", 1, "R", false, 0, "")
}

func safeReportValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatReportDateTime(value time.Time) string {
	return value.Format("02 Jan 2006 15:04")
}

func formatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

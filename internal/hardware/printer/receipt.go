package printer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type ReceiptLine struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

type Receipt struct {
	Reference     string
	Date          time.Time
	Cashier       string
	Lines         []ReceiptLine
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	AmountPaid    decimal.Decimal
	Change        decimal.Decimal
	PaymentMethod string
}

type Status struct {
	Type      string `json:"type"`
	Available bool   `json:"available"`
}

// Service owns the till printer. Jobs are serialized so a receipt and a
// drawer kick never interleave on the wire.
type Service struct {
	mu      sync.Mutex
	device  Device
	width   int
	company string
}

func NewService(device Device, width int, company string) *Service {
	if width <= 0 {
		width = 32
	}
	return &Service{device: device, width: width, company: company}
}

func (s *Service) PrintReceipt(ctx context.Context, r Receipt) error {
	return s.write(ctx, RenderReceipt(r, s.company, s.width))
}

func (s *Service) OpenCashDrawer(ctx context.Context) error {
	return s.write(ctx, DrawerPulse(DrawerPin0))
}

func (s *Service) TestPrint(ctx context.Context) error {
	return s.PrintReceipt(ctx, Receipt{
		Reference: "TEST-001",
		Date:      time.Now(),
		Cashier:   "Test Cashier",
		Lines: []ReceiptLine{
			{Name: "Test Item 1", Quantity: 2, UnitPrice: decimal.NewFromInt(10), Total: decimal.NewFromInt(20)},
			{Name: "Test Item 2", Quantity: 1, UnitPrice: decimal.RequireFromString("15.50"), Total: decimal.RequireFromString("15.50")},
		},
		Subtotal:      decimal.RequireFromString("35.50"),
		Tax:           decimal.RequireFromString("3.55"),
		Total:         decimal.RequireFromString("39.05"),
		AmountPaid:    decimal.NewFromInt(50),
		Change:        decimal.RequireFromString("10.95"),
		PaymentMethod: "cash",
	})
}

func (s *Service) Status(ctx context.Context) Status {
	return Status{Type: s.device.Kind(), Available: s.device.Available(ctx)}
}

func (s *Service) write(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device.Write(ctx, data)
}

// RenderReceipt lays out a sale receipt for a paper width in characters.
func RenderReceipt(r Receipt, company string, width int) []byte {
	doc := NewDocument(width)

	if company == "" {
		company = "ANYPOS"
	}
	doc.Align(AlignCenter).Size(FontDouble).Line(company).Size(FontNormal)
	doc.Rule('-')

	doc.Align(AlignLeft)
	doc.Linef("Receipt: %s", r.Reference)
	date := r.Date
	if date.IsZero() {
		date = time.Now()
	}
	doc.Linef("Date: %s", date.Format("2006-01-02 15:04:05"))
	doc.Rule('-')

	nameWidth := width - 20
	if nameWidth < 8 {
		nameWidth = 8
	}
	for _, l := range r.Lines {
		name := l.Name
		if len(name) > nameWidth {
			name = name[:nameWidth]
		}
		doc.Linef("%-*s %3d %7s %8s", nameWidth, name, l.Quantity, l.UnitPrice.StringFixed(2), l.Total.StringFixed(2))
	}
	doc.Rule('-')

	doc.Columns("Subtotal:", r.Subtotal.StringFixed(2))
	if r.Discount.IsPositive() {
		doc.Columns("Discount:", "-"+r.Discount.StringFixed(2))
	}
	if r.Tax.IsPositive() {
		doc.Columns("Tax:", r.Tax.StringFixed(2))
	}
	doc.Bold(true).Columns("TOTAL:", r.Total.StringFixed(2)).Bold(false)
	doc.Rule('-')

	doc.Columns("Paid:", r.AmountPaid.StringFixed(2))
	if r.Change.IsPositive() {
		doc.Columns("Change:", r.Change.StringFixed(2))
	}
	doc.Columns("Method:", strings.ToUpper(r.PaymentMethod))
	doc.Rule('-')

	doc.Align(AlignCenter)
	if r.Cashier != "" {
		doc.Line(fmt.Sprintf("Cashier: %s", r.Cashier))
	}
	doc.Line("Thank you for your business!")
	doc.Feed(3).Cut()

	return doc.Bytes()
}

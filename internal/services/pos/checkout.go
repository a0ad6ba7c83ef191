package pos

import (
	"context"
	"log"
	"sync"
	"time"

	"anypos-register/internal/apperror"
	"anypos-register/internal/events"
	"anypos-register/internal/hardware/printer"
	"anypos-register/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleRecorder submits a sale to the POS API.
type SaleRecorder interface {
	CreateSale(ctx context.Context, token string, req models.SaleRequest, idempotencyKey string) (*models.Sale, error)
}

// SaleAttributor credits a recorded sale to the open day-end session.
type SaleAttributor interface {
	AttachSale(ctx context.Context, token string, sale models.Sale) error
}

type ReceiptPrinter interface {
	PrintReceipt(ctx context.Context, r printer.Receipt) error
	OpenCashDrawer(ctx context.Context) error
}

// StockCache drops cached product views whose stock a sale changed.
type StockCache interface {
	Invalidate(ctx context.Context, productIDs ...int64)
}

// CartStore persists the register's cart across restarts.
type CartStore interface {
	LoadCart(ctx context.Context, registerID string) (*Cart, error)
	SaveCart(ctx context.Context, registerID string, cart Cart) error
}

type SubmitRequest struct {
	PaymentMethod   string
	AmountPaid      decimal.Decimal
	DiscountPercent decimal.Decimal
	CustomerID      *int64
	Notes           *string
	Cashier         string
}

type CheckoutResult struct {
	ReferenceNumber string          `json:"reference_number"`
	Sale            models.Sale     `json:"sale"`
	Totals          Totals          `json:"totals"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	Change          decimal.Decimal `json:"change"`
}

type Options struct {
	RegisterID string
	// TaxRate nil means DefaultTaxRate; a zero rate is kept.
	TaxRate    *decimal.Decimal
	Carts      CartStore
	Sales      SaleRecorder
	Ledger     SaleAttributor
	Publisher  events.Publisher
	Printer    ReceiptPrinter
	Stock      StockCache
}

// Service is the register's cart and checkout. Cart state is guarded by mu;
// the API call in Submit runs without holding it, and submitting blocks
// concurrent submits and cart edits until the call returns.
type Service struct {
	mu         sync.Mutex
	cart       Cart
	loaded     bool
	submitting bool

	registerID string
	taxRate    decimal.Decimal
	carts      CartStore
	sales      SaleRecorder
	ledger     SaleAttributor
	publisher  events.Publisher
	printer    ReceiptPrinter
	stock      StockCache
}

func NewService(opts Options) *Service {
	s := &Service{
		registerID: opts.RegisterID,
		taxRate:    DefaultTaxRate,
		carts:      opts.Carts,
		sales:      opts.Sales,
		ledger:     opts.Ledger,
		publisher:  opts.Publisher,
		printer:    opts.Printer,
		stock:      opts.Stock,
	}
	if opts.TaxRate != nil {
		s.taxRate = *opts.TaxRate
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	return s
}

func (s *Service) TaxRate() decimal.Decimal {
	return s.taxRate
}

// load restores the persisted cart on first use. Caller holds mu.
func (s *Service) load(ctx context.Context) {
	if s.loaded || s.carts == nil {
		s.loaded = true
		return
	}
	cart, err := s.carts.LoadCart(ctx, s.registerID)
	if err != nil {
		log.Printf("Failed to restore cart for register %s: %v", s.registerID, err)
	} else if cart != nil {
		s.cart = *cart
	}
	s.loaded = true
}

// persist saves the cart. A store failure only costs durability across a
// restart, so it is logged. Caller holds mu.
func (s *Service) persist(ctx context.Context) {
	if s.carts == nil {
		return
	}
	if err := s.carts.SaveCart(ctx, s.registerID, s.cart); err != nil {
		log.Printf("Failed to persist cart for register %s: %v", s.registerID, err)
	}
}

func (s *Service) mutate(ctx context.Context, fn func(c *Cart)) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return Cart{}, apperror.ErrSubmitInProgress
	}
	s.load(ctx)
	fn(&s.cart)
	s.persist(ctx)
	return s.cart.Clone(), nil
}

func (s *Service) Cart(ctx context.Context) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
	return s.cart.Clone()
}

func (s *Service) AddItem(ctx context.Context, p models.Product) (Cart, error) {
	return s.mutate(ctx, func(c *Cart) { c.AddItem(p) })
}

func (s *Service) SetQuantity(ctx context.Context, productID int64, n int) (Cart, error) {
	return s.mutate(ctx, func(c *Cart) { c.SetQuantity(productID, n) })
}

func (s *Service) RemoveItem(ctx context.Context, productID int64) (Cart, error) {
	return s.mutate(ctx, func(c *Cart) { c.RemoveItem(productID) })
}

func (s *Service) Clear(ctx context.Context) (Cart, error) {
	return s.mutate(ctx, func(c *Cart) { c.Clear() })
}

func (s *Service) Totals(ctx context.Context, discountPercent decimal.Decimal) (Totals, error) {
	return ComputeTotals(s.Cart(ctx), discountPercent, s.taxRate)
}

// BuildSaleRequest converts a cart and its totals into the API payload.
// Amounts are fixed to two decimals here and nowhere earlier.
func BuildSaleRequest(cart Cart, totals Totals, method models.PaymentMethod, amountPaid decimal.Decimal, customerID *int64, notes *string) models.SaleRequest {
	items := make([]models.SaleItemRequest, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		items = append(items, models.SaleItemRequest{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: models.Money(l.UnitPrice),
		})
	}
	return models.SaleRequest{
		CustomerID:    customerID,
		PaymentMethod: method,
		Discount:      models.Money(totals.DiscountAmount),
		Tax:           models.Money(totals.Tax),
		AmountPaid:    models.Money(amountPaid),
		Notes:         notes,
		Items:         items,
	}
}

// Submit records the cart as a sale. On success the cart is cleared; on any
// failure it is left as it was and the recorder's error is returned as is.
func (s *Service) Submit(ctx context.Context, token string, req SubmitRequest) (*CheckoutResult, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, apperror.ErrSubmitInProgress
	}
	s.load(ctx)
	cart := s.cart.Clone()

	if cart.IsEmpty() {
		s.mu.Unlock()
		return nil, apperror.ErrEmptyCart
	}
	method, ok := models.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		s.mu.Unlock()
		return nil, apperror.NewInvalidPaymentMethod(req.PaymentMethod)
	}
	totals, err := ComputeTotals(cart, req.DiscountPercent, s.taxRate)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	change, err := ValidatePayment(req.AmountPaid, totals.Total)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.submitting = true
	s.mu.Unlock()

	saleReq := BuildSaleRequest(cart, totals, method, req.AmountPaid, req.CustomerID, req.Notes)
	sale, err := s.sales.CreateSale(ctx, token, saleReq, uuid.NewString())

	s.mu.Lock()
	s.submitting = false
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.cart.Clear()
	s.persist(ctx)
	s.mu.Unlock()

	result := &CheckoutResult{
		ReferenceNumber: sale.ReferenceNumber,
		Sale:            *sale,
		Totals:          totals.Rounded(),
		AmountPaid:      req.AmountPaid,
		Change:          change.Round(2),
	}
	s.afterSale(ctx, token, cart, result, method, req.Cashier)
	return result, nil
}

// afterSale runs the follow-up steps of a recorded sale. None of them can
// undo the sale, so failures are logged and swallowed.
func (s *Service) afterSale(ctx context.Context, token string, cart Cart, result *CheckoutResult, method models.PaymentMethod, cashier string) {
	sale := result.Sale
	if sale.PaymentMethod == "" {
		sale.PaymentMethod = method
	}

	if s.ledger != nil {
		if err := s.ledger.AttachSale(ctx, token, sale); err != nil {
			log.Printf("Failed to attribute sale %s to day-end: %v", sale.ReferenceNumber, err)
		}
	}

	if err := s.publisher.Publish(ctx, events.Event{
		EventType:  events.EventSaleRecorded,
		RegisterID: s.registerID,
		Timestamp:  time.Now(),
		Data:       sale,
	}); err != nil {
		log.Printf("Failed to publish sale event: %v", err)
	}

	if s.stock != nil {
		ids := make([]int64, 0, len(cart.Lines))
		for _, l := range cart.Lines {
			ids = append(ids, l.ProductID)
		}
		s.stock.Invalidate(ctx, ids...)
	}

	if s.printer == nil {
		return
	}
	if err := s.printer.PrintReceipt(ctx, receiptFor(cart, result, method, cashier)); err != nil {
		log.Printf("Failed to print receipt %s: %v", sale.ReferenceNumber, err)
	}
	if method == models.PaymentCash {
		if err := s.printer.OpenCashDrawer(ctx); err != nil {
			log.Printf("Failed to open cash drawer: %v", err)
		}
	}
}

func receiptFor(cart Cart, result *CheckoutResult, method models.PaymentMethod, cashier string) printer.Receipt {
	lines := make([]printer.ReceiptLine, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		lines = append(lines, printer.ReceiptLine{
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Total:     l.Total(),
		})
	}
	date := result.Sale.CreatedAt.Time
	if date.IsZero() {
		date = time.Now()
	}
	t := result.Totals
	return printer.Receipt{
		Reference:     result.ReferenceNumber,
		Date:          date,
		Cashier:       cashier,
		Lines:         lines,
		Subtotal:      t.Subtotal,
		Discount:      t.DiscountAmount,
		Tax:           t.Tax,
		Total:         t.Total,
		AmountPaid:    result.AmountPaid,
		Change:        result.Change,
		PaymentMethod: string(method),
	}
}

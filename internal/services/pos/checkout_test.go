package pos

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"anypos-register/internal/apperror"
	"anypos-register/internal/events"
	"anypos-register/internal/hardware/printer"
	"anypos-register/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	createFunc func(ctx context.Context, token string, req models.SaleRequest, key string) (*models.Sale, error)
	calls      []models.SaleRequest
	keys       []string
}

func (f *fakeRecorder) CreateSale(ctx context.Context, token string, req models.SaleRequest, key string) (*models.Sale, error) {
	f.calls = append(f.calls, req)
	f.keys = append(f.keys, key)
	if f.createFunc != nil {
		return f.createFunc(ctx, token, req, key)
	}
	return &models.Sale{ID: 7, ReferenceNumber: "SALE-0000ABCD", PaymentMethod: req.PaymentMethod, CreatedAt: models.NewTimestamp(time.Now())}, nil
}

type fakeLedger struct {
	attached []models.Sale
	err      error
}

func (f *fakeLedger) AttachSale(_ context.Context, _ string, sale models.Sale) error {
	f.attached = append(f.attached, sale)
	return f.err
}

type fakePublisher struct {
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, e events.Event) error {
	f.events = append(f.events, e)
	return errors.New("redis down")
}

type fakePrinter struct {
	receipts []printer.Receipt
	drawer   int
}

func (f *fakePrinter) PrintReceipt(_ context.Context, r printer.Receipt) error {
	f.receipts = append(f.receipts, r)
	return nil
}

func (f *fakePrinter) OpenCashDrawer(context.Context) error {
	f.drawer++
	return nil
}

type memCarts struct {
	mu    sync.Mutex
	saved map[string]Cart
}

func (m *memCarts) LoadCart(_ context.Context, id string) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.saved[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memCarts) SaveCart(_ context.Context, id string, c Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string]Cart{}
	}
	m.saved[id] = c.Clone()
	return nil
}

type fakeStock struct {
	invalidated []int64
}

func (f *fakeStock) Invalidate(_ context.Context, ids ...int64) {
	f.invalidated = append(f.invalidated, ids...)
}

func newTestService(rec *fakeRecorder) (*Service, *fakeLedger, *fakePublisher, *fakePrinter, *memCarts) {
	ledger := &fakeLedger{}
	pub := &fakePublisher{}
	prn := &fakePrinter{}
	carts := &memCarts{}
	svc := NewService(Options{
		RegisterID: "till-1",
		Carts:      carts,
		Sales:      rec,
		Ledger:     ledger,
		Publisher:  pub,
		Printer:    prn,
	})
	return svc, ledger, pub, prn, carts
}

func fillReferenceCart(t *testing.T, svc *Service) {
	ctx := context.Background()
	_, err := svc.AddItem(ctx, product(1, "coffee", "10.00"))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, product(1, "coffee", "10.00"))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, product(2, "bagel", "5.00"))
	require.NoError(t, err)
}

func TestSubmitRecordsSaleAndClearsCart(t *testing.T) {
	rec := &fakeRecorder{}
	svc, ledger, pub, prn, carts := newTestService(rec)
	fillReferenceCart(t, svc)

	res, err := svc.Submit(context.Background(), "tok", SubmitRequest{
		PaymentMethod:   "Cash",
		AmountPaid:      dec("30.00"),
		DiscountPercent: dec("10"),
		Cashier:         "alice",
	})
	require.NoError(t, err)

	assert.Equal(t, "SALE-0000ABCD", res.ReferenceNumber)
	assert.Equal(t, "24.75", res.Totals.Total.StringFixed(2))
	assert.Equal(t, "5.25", res.Change.StringFixed(2))

	require.Len(t, rec.calls, 1)
	req := rec.calls[0]
	assert.Equal(t, models.PaymentCash, req.PaymentMethod)
	assert.Equal(t, "2.50", req.Discount.String())
	assert.Equal(t, "2.25", req.Tax.String())
	assert.Equal(t, "30.00", req.AmountPaid.String())
	require.Len(t, req.Items, 2)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.Equal(t, "10.00", req.Items[0].UnitPrice.String())
	assert.NotEmpty(t, rec.keys[0])

	assert.True(t, svc.Cart(context.Background()).IsEmpty())
	assert.True(t, carts.saved["till-1"].IsEmpty())

	require.Len(t, ledger.attached, 1)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.EventSaleRecorded, pub.events[0].EventType)
	assert.Equal(t, "till-1", pub.events[0].RegisterID)

	require.Len(t, prn.receipts, 1)
	assert.Equal(t, "alice", prn.receipts[0].Cashier)
	assert.Equal(t, 1, prn.drawer)
}

func TestZeroTaxRateIsKept(t *testing.T) {
	assert.True(t, NewService(Options{}).TaxRate().Equal(DefaultTaxRate))

	zero := decimal.Zero
	rec := &fakeRecorder{}
	svc := NewService(Options{RegisterID: "till-1", TaxRate: &zero, Sales: rec, Ledger: &fakeLedger{}})
	assert.True(t, svc.TaxRate().IsZero())
	fillReferenceCart(t, svc)

	res, err := svc.Submit(context.Background(), "tok", SubmitRequest{PaymentMethod: "card", AmountPaid: dec("25.00")})
	require.NoError(t, err)
	assert.Equal(t, "0.00", res.Totals.Tax.StringFixed(2))
	assert.Equal(t, "25.00", res.Totals.Total.StringFixed(2))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "0.00", rec.calls[0].Tax.String())
}

func TestSubmitCardDoesNotKickDrawer(t *testing.T) {
	rec := &fakeRecorder{}
	svc, _, _, prn, _ := newTestService(rec)
	fillReferenceCart(t, svc)

	_, err := svc.Submit(context.Background(), "tok", SubmitRequest{PaymentMethod: "card", AmountPaid: dec("24.75"), DiscountPercent: dec("10")})
	require.NoError(t, err)
	assert.Len(t, prn.receipts, 1)
	assert.Zero(t, prn.drawer)
}

func TestSubmitValidationLeavesCartIntact(t *testing.T) {
	rec := &fakeRecorder{}
	svc, _, _, _, _ := newTestService(rec)

	_, err := svc.Submit(context.Background(), "tok", SubmitRequest{PaymentMethod: "cash", AmountPaid: dec("100")})
	assert.ErrorIs(t, err, apperror.ErrEmptyCart)

	fillReferenceCart(t, svc)

	_, err = svc.Submit(context.Background(), "tok", SubmitRequest{PaymentMethod: "cash", AmountPaid: dec("20.00"), DiscountPercent: dec("10")})
	assert.ErrorIs(t, err, apperror.ErrInsufficientPayment)

	_, err = svc.Submit(context.Background(), "tok", SubmitRequest{PaymentMethod: "barter", AmountPaid: dec("30.00")})
	var ve *apperror.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, apperror.KindInvalidPaymentMethod, ve.Kind)

	assert.Empty(t, rec.calls)
	assert.Len(t, svc.Cart(context.Background()).Lines, 2)
}

func TestSubmitFailurePreservesCartAndError(t *testing.T) {
	upstream := &apperror.TransportError{Status: 400, Message: "Insufficient stock for product 1"}
	rec := &fakeRecorder{createFunc: func(context.Context, string, models.SaleRequest, string) (*models.Sale, error) {
		return nil, upstream
	}}
	svc, ledger, pub, prn, _ := newTestService(rec)
	fillReferenceCart(t, svc)

	_, err := svc.Submit(context.Background(), "tok", SubmitRequest{PaymentMethod: "cash", AmountPaid: dec("30.00")})
	assert.Same(t, upstream, err)

	cart := svc.Cart(context.Background())
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Empty(t, ledger.attached)
	assert.Empty(t, pub.events)
	assert.Empty(t, prn.receipts)

	_, err = svc.AddItem(context.Background(), product(3, "tea", "2.00"))
	assert.NoError(t, err)
}

func TestSubmitRejectsConcurrentSubmit(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	rec := &fakeRecorder{createFunc: func(context.Context, string, models.SaleRequest, string) (*models.Sale, error) {
		close(entered)
		<-release
		return &models.Sale{ReferenceNumber: "SALE-1"}, nil
	}}
	svc, _, _, _, _ := newTestService(rec)
	fillReferenceCart(t, svc)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), "tok", SubmitRequest{PaymentMethod: "cash", AmountPaid: dec("30.00")})
		done <- err
	}()
	<-entered

	_, err := svc.Submit(context.Background(), "tok", SubmitRequest{PaymentMethod: "cash", AmountPaid: dec("30.00")})
	assert.ErrorIs(t, err, apperror.ErrSubmitInProgress)

	_, err = svc.AddItem(context.Background(), product(3, "tea", "2.00"))
	assert.ErrorIs(t, err, apperror.ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, svc.Cart(context.Background()).IsEmpty())
}

func TestServiceRestoresPersistedCart(t *testing.T) {
	carts := &memCarts{}
	var c Cart
	c.AddItem(product(5, "water", "1.50"))
	require.NoError(t, carts.SaveCart(context.Background(), "till-1", c))

	svc := NewService(Options{RegisterID: "till-1", Carts: carts, Sales: &fakeRecorder{}})
	restored := svc.Cart(context.Background())
	require.Len(t, restored.Lines, 1)
	assert.Equal(t, "water", restored.Lines[0].Name)

	totals, err := svc.Totals(context.Background(), dec("0"))
	require.NoError(t, err)
	assert.Equal(t, "1.65", totals.Rounded().Total.StringFixed(2))
}

func TestSubmitInvalidatesSoldProducts(t *testing.T) {
	stock := &fakeStock{}
	svc := NewService(Options{RegisterID: "till-1", Sales: &fakeRecorder{}, Stock: stock})
	fillReferenceCart(t, svc)

	_, err := svc.Submit(context.Background(), "tok", SubmitRequest{PaymentMethod: "card", AmountPaid: dec("27.50")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, stock.invalidated)
}

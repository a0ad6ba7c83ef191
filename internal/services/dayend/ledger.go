package dayend

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"anypos-register/internal/apperror"
	"anypos-register/internal/events"
	"anypos-register/internal/models"

	"github.com/shopspring/decimal"
)

const (
	NoteOpenedOnLogin  = "Opening cash entered on login"
	NoteSkippedOnLogin = "Opening balance skipped on login"
)

// Store is the source of truth for day-end sessions, normally the POS API.
// Active returns a NotFoundError when no session is open. Open fails with
// apperror.ErrAlreadyOpen while one is, and Close with ErrAlreadyClosed for
// a session that is no longer open.
type Store interface {
	Active(ctx context.Context, token string) (*models.DayEndSession, error)
	Open(ctx context.Context, token string, req models.DayEndOpenRequest) (*models.DayEndSession, error)
	Close(ctx context.Context, token string, id int64, req models.DayEndCloseRequest) (*models.DayEndSession, error)
	List(ctx context.Context, token string, skip, limit int) ([]models.DayEndSession, error)
	Summary(ctx context.Context, token string, id int64) (*models.DayEndSummary, error)
	AttachSale(ctx context.Context, token string, sessionID int64, sale models.Sale) error
}

type State string

const (
	StateNoSession State = "NO_SESSION"
	StateOpen      State = "OPEN"
	StateClosed    State = "CLOSED"
)

// Ledger drives the day-end lifecycle for one register. It keeps the last
// session it saw so a sale can be attributed without another lookup; the
// store stays authoritative for every figure.
type Ledger struct {
	mu         sync.Mutex
	last       *models.DayEndSession
	onChange   func(ctx context.Context, state State)
	store      Store
	publisher  events.Publisher
	registerID string
}

func NewLedger(store Store, publisher events.Publisher, registerID string) *Ledger {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Ledger{store: store, publisher: publisher, registerID: registerID}
}

// State reports the lifecycle state of the session the ledger last saw.
func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return stateOf(l.last)
}

// OnStateChange registers fn to run whenever the lifecycle state moves,
// e.g. OPEN to CLOSED. fn runs without the ledger lock held.
func (l *Ledger) OnStateChange(fn func(ctx context.Context, state State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

func stateOf(s *models.DayEndSession) State {
	switch {
	case s == nil:
		return StateNoSession
	case s.IsClosed:
		return StateClosed
	default:
		return StateOpen
	}
}

func (l *Ledger) remember(ctx context.Context, s *models.DayEndSession) {
	l.mu.Lock()
	before := stateOf(l.last)
	if s == nil {
		l.last = nil
	} else {
		cp := *s
		l.last = &cp
	}
	after := stateOf(l.last)
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil && before != after {
		fn(ctx, after)
	}
}

func (l *Ledger) OpenSession(ctx context.Context, token string, openingBalance decimal.Decimal, notes *string) (*models.DayEndSession, error) {
	if openingBalance.IsNegative() {
		return nil, apperror.NewInvalidAmount("Opening balance cannot be negative")
	}

	// The API's open returns an already open session instead of refusing,
	// and would overwrite its opening balance.
	existing, err := l.store.Active(ctx, token)
	switch {
	case err == nil:
		l.remember(ctx, existing)
		return nil, &apperror.ValidationError{
			Kind:    apperror.KindAlreadyOpen,
			Message: fmt.Sprintf("Day-end session #%d is already open", existing.ID),
		}
	case !apperror.IsNotFound(err):
		return nil, err
	}

	session, err := l.store.Open(ctx, token, models.DayEndOpenRequest{
		OpeningBalance: openingBalance,
		Notes:          notes,
	})
	if err != nil {
		return nil, err
	}
	l.remember(ctx, session)
	l.publish(ctx, events.EventDayEndOpened, session)
	return session, nil
}

func (l *Ledger) CloseSession(ctx context.Context, token string, id int64, actualCash decimal.Decimal, notes *string) (*models.DayEndSession, error) {
	if actualCash.IsNegative() {
		return nil, apperror.NewInvalidAmount("Actual cash cannot be negative")
	}

	session, err := l.store.Close(ctx, token, id, models.DayEndCloseRequest{
		ActualCash: actualCash,
		Notes:      notes,
	})
	if err != nil {
		return nil, err
	}
	l.remember(ctx, session)
	l.publish(ctx, events.EventDayEndClosed, session)
	return session, nil
}

// GetActiveSession returns the open session. A NotFoundError means the
// operator should be prompted to open one.
func (l *Ledger) GetActiveSession(ctx context.Context, token string) (*models.DayEndSession, error) {
	session, err := l.store.Active(ctx, token)
	if err != nil {
		if apperror.IsNotFound(err) {
			l.remember(ctx, nil)
		}
		return nil, err
	}
	l.remember(ctx, session)
	return session, nil
}

func (l *Ledger) Summary(ctx context.Context, token string, id int64) (*models.DayEndSummary, error) {
	return l.store.Summary(ctx, token, id)
}

// AttachSale credits a recorded sale to the open session. With no open
// session the sale is still recorded by the API, just not attributed.
func (l *Ledger) AttachSale(ctx context.Context, token string, sale models.Sale) error {
	session, err := l.GetActiveSession(ctx, token)
	if err != nil {
		return fmt.Errorf("lookup active day-end: %w", err)
	}
	if err := l.store.AttachSale(ctx, token, session.ID, sale); err != nil {
		return fmt.Errorf("attach sale %d to day-end %d: %w", sale.ID, session.ID, err)
	}
	return nil
}

type VariancePreview struct {
	SessionID    int64           `json:"session_id"`
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	ActualCash   decimal.Decimal `json:"actual_cash"`
	Variance     decimal.Decimal `json:"variance"`
}

// PreviewVariance shows the variance closing with actualCash would record,
// without closing anything.
func (l *Ledger) PreviewVariance(ctx context.Context, token string, actualCash decimal.Decimal) (*VariancePreview, error) {
	if actualCash.IsNegative() {
		return nil, apperror.NewInvalidAmount("Actual cash cannot be negative")
	}
	session, err := l.GetActiveSession(ctx, token)
	if err != nil {
		return nil, err
	}
	// The API fills expected_cash only on close.
	expected := ExpectedCash(session.OpeningBalance, session.CashSales)
	return &VariancePreview{
		SessionID:    session.ID,
		ExpectedCash: expected,
		ActualCash:   actualCash,
		Variance:     Variance(actualCash, expected),
	}, nil
}

// History pages through past sessions, most recent first.
func (l *Ledger) History(token string, skip, pageSize int) *HistoryIterator {
	return newHistoryIterator(l.store, token, skip, pageSize)
}

func (l *Ledger) publish(ctx context.Context, eventType string, session *models.DayEndSession) {
	err := l.publisher.Publish(ctx, events.Event{
		EventType:  eventType,
		RegisterID: l.registerID,
		Timestamp:  time.Now(),
		Data:       session,
	})
	if err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

// ExpectedCash is the cash the drawer should hold.
func ExpectedCash(openingBalance, cashSales decimal.Decimal) decimal.Decimal {
	return openingBalance.Add(cashSales)
}

// Variance is positive for a surplus and negative for a shortage.
func Variance(actualCash, expectedCash decimal.Decimal) decimal.Decimal {
	return actualCash.Sub(expectedCash)
}

package dayend

import (
	"context"
	"sort"
	"sync"
	"time"

	"anypos-register/internal/apperror"
	"anypos-register/internal/models"
)

// MemoryStore keeps sessions in process, applying the same rules the POS
// API does. It backs tests and local runs without an API.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]*models.DayEndSession
	attached map[int64]map[int64]bool
	nextID   int64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*models.DayEndSession),
		attached: make(map[int64]map[int64]bool),
		now:      time.Now,
	}
}

func (m *MemoryStore) activeLocked() *models.DayEndSession {
	for _, s := range m.sessions {
		if !s.IsClosed {
			return s
		}
	}
	return nil
}

func (m *MemoryStore) Active(_ context.Context, _ string) (*models.DayEndSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.activeLocked()
	if s == nil {
		return nil, apperror.NewNotFoundError("dayend", "No active day-end found. Please open a day-end first.")
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Open(_ context.Context, _ string, req models.DayEndOpenRequest) (*models.DayEndSession, error) {
	if req.OpeningBalance.IsNegative() {
		return nil, apperror.NewInvalidAmount("Opening balance cannot be negative")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeLocked() != nil {
		return nil, apperror.ErrAlreadyOpen
	}
	m.nextID++
	s := &models.DayEndSession{
		ID:             m.nextID,
		OpeningBalance: req.OpeningBalance,
		ExpectedCash:   req.OpeningBalance,
		OpenedAt:       models.NewTimestamp(m.now()),
		Notes:          req.Notes,
	}
	m.sessions[s.ID] = s
	m.attached[s.ID] = make(map[int64]bool)
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Close(_ context.Context, _ string, id int64, req models.DayEndCloseRequest) (*models.DayEndSession, error) {
	if req.ActualCash.IsNegative() {
		return nil, apperror.NewInvalidAmount("Actual cash cannot be negative")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NewNotFoundError("dayend", "Day-end not found")
	}
	if s.IsClosed {
		return nil, apperror.ErrAlreadyClosed
	}

	closedAt := models.NewTimestamp(m.now())
	s.ExpectedCash = ExpectedCash(s.OpeningBalance, s.CashSales)
	s.ActualCash = req.ActualCash
	s.CashVariance = Variance(req.ActualCash, s.ExpectedCash)
	s.ClosingBalance = req.ActualCash
	s.IsClosed = true
	s.ClosedAt = &closedAt
	if req.Notes != nil {
		s.Notes = req.Notes
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context, _ string, skip, limit int) ([]models.DayEndSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]models.DayEndSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].OpenedAt.Equal(all[j].OpenedAt.Time) {
			return all[i].ID > all[j].ID
		}
		return all[i].OpenedAt.After(all[j].OpenedAt.Time)
	})

	if skip < 0 {
		skip = 0
	}
	if skip >= len(all) {
		return []models.DayEndSession{}, nil
	}
	end := len(all)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return all[skip:end], nil
}

func (m *MemoryStore) Summary(_ context.Context, _ string, id int64) (*models.DayEndSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NewNotFoundError("dayend", "Day-end not found")
	}
	summary := models.SummaryOf(*s)
	return &summary, nil
}

// AttachSale is idempotent per sale id.
func (m *MemoryStore) AttachSale(_ context.Context, _ string, sessionID int64, sale models.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return apperror.NewNotFoundError("dayend", "Day-end not found")
	}
	if s.IsClosed {
		return &apperror.TransportError{Status: 400, Message: "Cannot add sales to a closed day-end"}
	}
	if m.attached[sessionID][sale.ID] {
		return nil
	}
	m.attached[sessionID][sale.ID] = true

	s.AddSale(sale.PaymentMethod, sale.Total, sale.Discount, sale.Tax)
	s.ExpectedCash = ExpectedCash(s.OpeningBalance, s.CashSales)
	return nil
}

package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"anypos-register/internal/apperror"
	"anypos-register/internal/models"
	"anypos-register/internal/services/dayend"
	"anypos-register/internal/utils"

	"github.com/shopspring/decimal"
)

type LoginState string

const (
	StateLoggedOut           LoginState = "LOGGED_OUT"
	StateNeedsOpeningBalance LoginState = "NEEDS_OPENING_BALANCE"
	StateReady               LoginState = "READY"
)

// Credential is the bearer token the POS API issued for the operator.
type Credential struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	UserID    int64     `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Session is what a register persists between restarts.
type Session struct {
	Credential Credential `json:"credential"`
	State      LoginState `json:"state"`
}

type Status struct {
	State     LoginState `json:"state"`
	Username  string     `json:"username,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Authenticator exchanges operator credentials for an access token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type Store interface {
	LoadSession(ctx context.Context, registerID string) (*Session, error)
	SaveSession(ctx context.Context, registerID string, s Session) error
	DeleteSession(ctx context.Context, registerID string) error
}

// DayEndGate is the part of the ledger the login flow needs.
type DayEndGate interface {
	GetActiveSession(ctx context.Context, token string) (*models.DayEndSession, error)
	OpenSession(ctx context.Context, token string, openingBalance decimal.Decimal, notes *string) (*models.DayEndSession, error)
}

// Manager owns the register's credential. It is acquired at Login, handed
// out explicitly through Credential, and dropped by Invalidate on logout or
// when the API answers 401.
type Manager struct {
	mu       sync.Mutex
	current  *Session
	restored bool

	registerID string
	auth       Authenticator
	gate       DayEndGate
	store      Store
	now        func() time.Time
}

func NewManager(registerID string, auth Authenticator, gate DayEndGate, store Store) *Manager {
	return &Manager{
		registerID: registerID,
		auth:       auth,
		gate:       gate,
		store:      store,
		now:        time.Now,
	}
}

// restore loads a persisted session once. Caller holds mu.
func (m *Manager) restore(ctx context.Context) {
	if m.restored {
		return
	}
	m.restored = true
	if m.store == nil {
		return
	}
	s, err := m.store.LoadSession(ctx, m.registerID)
	if err != nil {
		log.Printf("Failed to restore session for register %s: %v", m.registerID, err)
		return
	}
	if s != nil && s.Credential.Token != "" {
		m.current = s
	}
}

func (m *Manager) save(ctx context.Context) {
	if m.store == nil || m.current == nil {
		return
	}
	if err := m.store.SaveSession(ctx, m.registerID, *m.current); err != nil {
		log.Printf("Failed to persist session for register %s: %v", m.registerID, err)
	}
}

// Login authenticates and then checks the day-end gate: with an open
// session the register is ready, otherwise the operator is asked for an
// opening balance. A failed day-end check also asks, since the operator can
// still skip.
func (m *Manager) Login(ctx context.Context, username, password string) (Status, error) {
	token, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return Status{State: StateLoggedOut}, err
	}

	cred := Credential{Token: token, Username: username}
	if claims, err := utils.ParseUnverified(token); err == nil {
		cred.Username = claims.Name()
		cred.UserID = claims.UserId
		cred.ExpiresAt = claims.Expiry()
	} else {
		log.Printf("Access token for %s is not a readable JWT: %v", username, err)
	}

	state := StateNeedsOpeningBalance
	_, err = m.gate.GetActiveSession(ctx, token)
	switch {
	case err == nil:
		state = StateReady
	case apperror.IsUnauthorized(err):
		return Status{State: StateLoggedOut}, err
	case apperror.IsNotFound(err):
	default:
		log.Printf("Day-end check failed after login, asking for opening balance: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.restored = true
	m.current = &Session{Credential: cred, State: state}
	m.save(ctx)
	return m.statusLocked(), nil
}

// ProvideOpeningBalance opens the day-end with the counted float. A session
// opened meanwhile by another till counts as success.
func (m *Manager) ProvideOpeningBalance(ctx context.Context, amount decimal.Decimal) (Status, error) {
	cred, err := m.Credential(ctx)
	if err != nil {
		return Status{State: StateLoggedOut}, err
	}
	note := dayend.NoteOpenedOnLogin
	if _, err := m.gate.OpenSession(ctx, cred.Token, amount, &note); err != nil && !errors.Is(err, apperror.ErrAlreadyOpen) {
		return m.Status(ctx), err
	}
	return m.markReady(ctx), nil
}

// SkipOpeningBalance lets the operator in with an implicit opening balance
// of zero. If the day-end cannot be opened now the register is still
// usable; the next login asks again.
func (m *Manager) SkipOpeningBalance(ctx context.Context) (Status, error) {
	cred, err := m.Credential(ctx)
	if err != nil {
		return Status{State: StateLoggedOut}, err
	}
	note := dayend.NoteSkippedOnLogin
	_, err = m.gate.OpenSession(ctx, cred.Token, decimal.Zero, &note)
	switch {
	case err == nil, errors.Is(err, apperror.ErrAlreadyOpen):
	case apperror.IsUnauthorized(err):
		return Status{State: StateLoggedOut}, err
	default:
		log.Printf("Failed to open day-end with zero balance, continuing: %v", err)
	}
	return m.markReady(ctx), nil
}

func (m *Manager) markReady(ctx context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.State = StateReady
		m.save(ctx)
	}
	return m.statusLocked()
}

// DayEndChanged keeps the login gate in step with the ledger. Closing the
// day-end sends the operator back to the opening balance step; an opened one
// makes the register ready.
func (m *Manager) DayEndChanged(ctx context.Context, state dayend.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restore(ctx)
	if m.current == nil {
		return
	}
	next := StateNeedsOpeningBalance
	if state == dayend.StateOpen {
		next = StateReady
	}
	if m.current.State == next {
		return
	}
	log.Printf("Day-end is now %s, register %s is %s", state, m.registerID, next)
	m.current.State = next
	m.save(ctx)
}

// Credential returns the live credential or apperror.ErrUnauthenticated.
// An expired token is dropped on the way.
func (m *Manager) Credential(ctx context.Context) (Credential, error) {
	m.mu.Lock()
	m.restore(ctx)
	cur := m.current
	m.mu.Unlock()

	if cur == nil {
		return Credential{}, apperror.ErrUnauthenticated
	}
	if cur.Credential.Expired(m.now()) {
		m.Invalidate(ctx)
		return Credential{}, apperror.ErrUnauthenticated
	}
	return cur.Credential, nil
}

// RequireReady is Credential plus the login gate.
func (m *Manager) RequireReady(ctx context.Context) (Credential, error) {
	cred, err := m.Credential(ctx)
	if err != nil {
		return cred, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.State != StateReady {
		return Credential{}, apperror.ErrOpeningBalanceRequired
	}
	return cred, nil
}

// Invalidate forgets the credential locally and in the store.
func (m *Manager) Invalidate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restored = true
	if m.current == nil {
		return
	}
	m.current = nil
	if m.store == nil {
		return
	}
	if err := m.store.DeleteSession(ctx, m.registerID); err != nil {
		log.Printf("Failed to delete session for register %s: %v", m.registerID, err)
	}
}

func (m *Manager) Status(ctx context.Context) Status {
	if _, err := m.Credential(ctx); err != nil {
		return Status{State: StateLoggedOut}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	if m.current == nil {
		return Status{State: StateLoggedOut}
	}
	st := Status{State: m.current.State, Username: m.current.Credential.Username}
	if exp := m.current.Credential.ExpiresAt; !exp.IsZero() {
		st.ExpiresAt = &exp
	}
	return st
}

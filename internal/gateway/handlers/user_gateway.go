package handlers

import (
	"context"
	"net/http"
	"time"

	"anypos-register/internal/services/session"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SessionManager is the operator login flow, implemented by session.Manager.
type SessionManager interface {
	Login(ctx context.Context, username, password string) (session.Status, error)
	ProvideOpeningBalance(ctx context.Context, amount decimal.Decimal) (session.Status, error)
	SkipOpeningBalance(ctx context.Context) (session.Status, error)
	Invalidate(ctx context.Context)
	Status(ctx context.Context) session.Status
}

type UserHTTPHandler struct {
	sessions SessionManager
}

func NewUserHTTPHandler(sessions SessionManager) *UserHTTPHandler {
	return &UserHTTPHandler{
		sessions: sessions,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type OpeningBalanceRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// --- Authentication ---

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Username and password are required"))
		return
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	st, err := h.sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	msg := "Login successful"
	if st.State == session.StateNeedsOpeningBalance {
		msg = "Login successful. Enter the opening cash balance or skip to start with 0.00"
	}
	c.JSON(http.StatusOK, successResponse(msg, st))
}

func (h *UserHTTPHandler) ProvideOpeningBalance(c *gin.Context) {
	var req OpeningBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		c.JSON(http.StatusBadRequest, errorResponse("Opening balance amount is required"))
		return
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	st, err := h.sessions.ProvideOpeningBalance(ctx, *req.Amount)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Day-end session opened", st))
}

func (h *UserHTTPHandler) SkipOpeningBalance(c *gin.Context) {
	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	st, err := h.sessions.SkipOpeningBalance(ctx)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Opening balance skipped", st))
}

func (h *UserHTTPHandler) Logout(c *gin.Context) {
	h.sessions.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, successResponse("Logged out", h.sessions.Status(c.Request.Context())))
}

func (h *UserHTTPHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse("Session status retrieved", h.sessions.Status(c.Request.Context())))
}

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"anypos-register/internal/models"
	"anypos-register/internal/report"
	"anypos-register/internal/services/dayend"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxHistoryLimit = 100

// DayEndLedger is implemented by dayend.Ledger.
type DayEndLedger interface {
	State() dayend.State
	GetActiveSession(ctx context.Context, token string) (*models.DayEndSession, error)
	OpenSession(ctx context.Context, token string, openingBalance decimal.Decimal, notes *string) (*models.DayEndSession, error)
	CloseSession(ctx context.Context, token string, id int64, actualCash decimal.Decimal, notes *string) (*models.DayEndSession, error)
	Summary(ctx context.Context, token string, id int64) (*models.DayEndSummary, error)
	PreviewVariance(ctx context.Context, token string, actualCash decimal.Decimal) (*dayend.VariancePreview, error)
	History(token string, skip, pageSize int) *dayend.HistoryIterator
}

type DayEndHTTPHandler struct {
	ledger     DayEndLedger
	registerID string
	company    string
}

func NewDayEndHTTPHandler(ledger DayEndLedger, registerID, company string) *DayEndHTTPHandler {
	return &DayEndHTTPHandler{
		ledger:     ledger,
		registerID: registerID,
		company:    company,
	}
}

type OpenDayEndRequest struct {
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
	Notes          *string          `json:"notes,omitempty"`
}

type CloseDayEndRequest struct {
	ActualCash *decimal.Decimal `json:"actual_cash"`
	Notes      *string          `json:"notes,omitempty"`
}

type HistoryQuery struct {
	Skip  int `form:"skip,default=0"`
	Limit int `form:"limit,default=20"`
}

type ActiveDayEndView struct {
	State   dayend.State          `json:"state"`
	Session *models.DayEndSession `json:"session"`
}

func (h *DayEndHTTPHandler) GetActive(c *gin.Context) {
	token, ok := credentialToken(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	s, err := h.ledger.GetActiveSession(ctx, token)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Active day-end retrieved", ActiveDayEndView{State: h.ledger.State(), Session: s}))
}

func (h *DayEndHTTPHandler) Open(c *gin.Context) {
	var req OpenDayEndRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OpeningBalance == nil {
		c.JSON(http.StatusBadRequest, errorResponse("Opening balance is required"))
		return
	}
	token, ok := credentialToken(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	s, err := h.ledger.OpenSession(ctx, token, *req.OpeningBalance, req.Notes)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Day-end session opened", s))
}

func (h *DayEndHTTPHandler) Close(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "day-end")
	if !ok {
		return
	}
	var req CloseDayEndRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ActualCash == nil {
		c.JSON(http.StatusBadRequest, errorResponse("Actual cash is required"))
		return
	}
	token, ok := credentialToken(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	s, err := h.ledger.CloseSession(ctx, token, id, *req.ActualCash, req.Notes)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(fmt.Sprintf("Day-end closed, cash %s", report.VarianceLabel(s.CashVariance)), s))
}

func (h *DayEndHTTPHandler) PreviewVariance(c *gin.Context) {
	var req CloseDayEndRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ActualCash == nil {
		c.JSON(http.StatusBadRequest, errorResponse("Actual cash is required"))
		return
	}
	token, ok := credentialToken(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	preview, err := h.ledger.PreviewVariance(ctx, token, *req.ActualCash)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Variance calculated", preview))
}

func (h *DayEndHTTPHandler) History(c *gin.Context) {
	var query HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil || query.Skip < 0 || query.Limit < 1 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	if query.Limit > maxHistoryLimit {
		query.Limit = maxHistoryLimit
	}
	token, ok := credentialToken(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	// One extra row tells whether another page exists.
	sessions, err := h.ledger.History(token, query.Skip, query.Limit+1).Take(ctx, query.Limit+1)
	if err != nil {
		handleAPIError(c, err)
		return
	}
	hasMore := len(sessions) > query.Limit
	if hasMore {
		sessions = sessions[:query.Limit]
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Day-end history retrieved", sessions, PageMeta{
		Skip:    query.Skip,
		Limit:   query.Limit,
		Count:   len(sessions),
		HasMore: hasMore,
	}))
}

func (h *DayEndHTTPHandler) Summary(c *gin.Context) {
	summary, ok := h.summary(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, successResponse("Day-end summary retrieved", summary))
}

// ZReport renders the session summary as a PDF download.
func (h *DayEndHTTPHandler) ZReport(c *gin.Context) {
	summary, ok := h.summary(c)
	if !ok {
		return
	}

	z := report.ZReport{Company: h.company, RegisterID: h.registerID, Summary: *summary}
	pdf, err := report.RenderZReportPDF(z)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(z.Filename()))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *DayEndHTTPHandler) summary(c *gin.Context) (*models.DayEndSummary, bool) {
	id, ok := parseIDParam(c, "id", "day-end")
	if !ok {
		return nil, false
	}
	token, ok := credentialToken(c)
	if !ok {
		return nil, false
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	summary, err := h.ledger.Summary(ctx, token, id)
	if err != nil {
		handleAPIError(c, err)
		return nil, false
	}
	return summary, true
}

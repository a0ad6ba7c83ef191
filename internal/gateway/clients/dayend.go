package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"anypos-register/internal/models"
)

// DayEndClient adapts the API's day-end routes to dayend.Store.
type DayEndClient struct {
	api *APIClient
}

func NewDayEndClient(api *APIClient) *DayEndClient {
	return &DayEndClient{api: api}
}

func (d *DayEndClient) Active(ctx context.Context, token string) (*models.DayEndSession, error) {
	var s models.DayEndSession
	if err := d.api.do(ctx, request{method: http.MethodGet, path: "dayend/active", token: token, resource: "dayend"}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DayEndClient) Open(ctx context.Context, token string, req models.DayEndOpenRequest) (*models.DayEndSession, error) {
	var s models.DayEndSession
	if err := d.api.do(ctx, request{method: http.MethodPost, path: "dayend/open", token: token, body: req, resource: "dayend"}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DayEndClient) Close(ctx context.Context, token string, id int64, req models.DayEndCloseRequest) (*models.DayEndSession, error) {
	var s models.DayEndSession
	path := fmt.Sprintf("dayend/%d/close", id)
	if err := d.api.do(ctx, request{method: http.MethodPost, path: path, token: token, body: req, resource: "dayend"}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DayEndClient) List(ctx context.Context, token string, skip, limit int) ([]models.DayEndSession, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var sessions []models.DayEndSession
	if err := d.api.do(ctx, request{method: http.MethodGet, path: "dayend/list", query: q, token: token, resource: "dayend"}, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (d *DayEndClient) Summary(ctx context.Context, token string, id int64) (*models.DayEndSummary, error) {
	var s models.DayEndSummary
	path := fmt.Sprintf("dayend/%d/summary", id)
	if err := d.api.do(ctx, request{method: http.MethodGet, path: path, token: token, resource: "dayend"}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DayEndClient) AttachSale(ctx context.Context, token string, sessionID int64, sale models.Sale) error {
	path := fmt.Sprintf("dayend/%d/add-sale/%d", sessionID, sale.ID)
	return d.api.do(ctx, request{method: http.MethodPost, path: path, token: token, resource: "dayend"}, nil)
}

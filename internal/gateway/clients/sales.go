package clients

import (
	"context"
	"net/http"

	"anypos-register/internal/models"
)

// CreateSale records a sale. The idempotency key lets the API drop a retried
// submission instead of charging twice.
func (c *APIClient) CreateSale(ctx context.Context, token string, req models.SaleRequest, idempotencyKey string) (*models.Sale, error) {
	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set(HeaderIdempotencyKey, idempotencyKey)
	}

	var sale models.Sale
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "sales",
		token:    token,
		body:     req,
		headers:  headers,
		resource: "sale",
	}, &sale)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

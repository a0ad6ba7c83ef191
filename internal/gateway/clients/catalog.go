package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"anypos-register/internal/models"
)

type ProductQuery struct {
	Skip       int
	Limit      int
	CategoryID *int64
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	v.Set("skip", strconv.Itoa(q.Skip))
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	v.Set("limit", strconv.Itoa(limit))
	if q.CategoryID != nil {
		v.Set("category_id", strconv.FormatInt(*q.CategoryID, 10))
	}
	return v
}

func (c *APIClient) ListProducts(ctx context.Context, token string, q ProductQuery) ([]models.Product, error) {
	var products []models.Product
	err := c.do(ctx, request{method: http.MethodGet, path: "products", query: q.values(), token: token, resource: "product"}, &products)
	return products, err
}

func (c *APIClient) SearchProducts(ctx context.Context, token, term string) ([]models.Product, error) {
	q := url.Values{}
	q.Set("q", term)
	var products []models.Product
	err := c.do(ctx, request{method: http.MethodGet, path: "products/search", query: q, token: token, resource: "product"}, &products)
	return products, err
}

func (c *APIClient) GetProduct(ctx context.Context, token string, id int64) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("products/%d", id), token: token, resource: "product"}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *APIClient) ListCategories(ctx context.Context, token string) ([]models.Category, error) {
	var categories []models.Category
	err := c.do(ctx, request{method: http.MethodGet, path: "products/categories", token: token, resource: "category"}, &categories)
	return categories, err
}

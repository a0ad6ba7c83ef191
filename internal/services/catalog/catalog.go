package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"anypos-register/internal/apperror"
	"anypos-register/internal/gateway/clients"
	"anypos-register/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	CATALOG_CACHE_PREFIX   = "pos:product:"
	CATALOG_PRODUCTS_KEY   = "pos:product"
	CATALOG_CATEGORIES_KEY = "pos:product-group"
	DefaultCacheTTL        = 5 * time.Minute
	catalogListPageSize    = 1000
)

// Source is the POS API's product surface.
type Source interface {
	ListProducts(ctx context.Context, token string, q clients.ProductQuery) ([]models.Product, error)
	SearchProducts(ctx context.Context, token, term string) ([]models.Product, error)
	GetProduct(ctx context.Context, token string, id int64) (*models.Product, error)
	ListCategories(ctx context.Context, token string) ([]models.Category, error)
}

// Service reads the product catalog through Redis. A nil client turns the
// cache off and every call goes to the API.
type Service struct {
	source Source
	redis  *redis.Client
	ttl    time.Duration
}

func NewService(source Source, redisClient *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{source: source, redis: redisClient, ttl: ttl}
}

// Products lists active products, optionally for one category. Only the
// unfiltered list is cached; category views are cut from it.
func (s *Service) Products(ctx context.Context, token string, categoryID *int64) ([]models.Product, error) {
	var all []models.Product
	if s.get(ctx, CATALOG_PRODUCTS_KEY, &all) {
		return filterCategory(all, categoryID), nil
	}

	all, err := s.source.ListProducts(ctx, token, clients.ProductQuery{Limit: catalogListPageSize})
	if err != nil {
		return nil, err
	}
	s.set(ctx, CATALOG_PRODUCTS_KEY, all)
	return filterCategory(all, categoryID), nil
}

func (s *Service) Product(ctx context.Context, token string, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, apperror.NewNotFoundError("product", fmt.Sprintf("Product %d not found", id))
	}

	cacheKey := fmt.Sprintf("%s%d", CATALOG_CACHE_PREFIX, id)
	var cached models.Product
	if s.get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	p, err := s.source.GetProduct(ctx, token, id)
	if err != nil {
		return nil, err
	}
	s.set(ctx, cacheKey, p)
	return p, nil
}

func (s *Service) Categories(ctx context.Context, token string) ([]models.Category, error) {
	var cached []models.Category
	if s.get(ctx, CATALOG_CATEGORIES_KEY, &cached) {
		return cached, nil
	}

	categories, err := s.source.ListCategories(ctx, token)
	if err != nil {
		return nil, err
	}
	s.set(ctx, CATALOG_CATEGORIES_KEY, categories)
	return categories, nil
}

// Search asks the API. When the API cannot be reached the cached product
// list is searched instead so the register can keep ringing up items.
func (s *Service) Search(ctx context.Context, token, term string) ([]models.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.Products(ctx, token, nil)
	}

	found, err := s.source.SearchProducts(ctx, token, term)
	if err == nil {
		return found, nil
	}
	if apperror.IsUnauthorized(err) || apperror.IsValidation(err) {
		return nil, err
	}

	var all []models.Product
	if !s.get(ctx, CATALOG_PRODUCTS_KEY, &all) {
		return nil, err
	}
	log.Printf("Product search failed (%v), searching cached catalog", err)
	return MatchProducts(all, term), nil
}

// Invalidate drops the cached lists and the given products.
func (s *Service) Invalidate(ctx context.Context, productIDs ...int64) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, CATALOG_PRODUCTS_KEY, CATALOG_CATEGORIES_KEY)

	for _, id := range productIDs {
		cacheKey := fmt.Sprintf("%s%d", CATALOG_CACHE_PREFIX, id)
		_ = s.redis.Del(ctx, cacheKey)
	}
}

func (s *Service) get(ctx context.Context, key string, v interface{}) bool {
	if s.redis == nil {
		return false
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error on GET %s: %v. Falling back to API.", key, err)
		}
		return false
	}
	return json.Unmarshal([]byte(val), v) == nil
}

func (s *Service) set(ctx context.Context, key string, v interface{}) {
	if s.redis == nil {
		return
	}
	jsonData, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, jsonData, s.ttl).Err(); err != nil {
		log.Printf("Failed to set cache for key %s: %v", key, err)
	}
}

func filterCategory(products []models.Product, categoryID *int64) []models.Product {
	if categoryID == nil {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.CategoryID != nil && *p.CategoryID == *categoryID {
			out = append(out, p)
		}
	}
	return out
}

// MatchProducts is a case-insensitive match on name, code and barcode.
func MatchProducts(products []models.Product, term string) []models.Product {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Product, 0)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Code), needle) ||
			(p.Barcode != nil && strings.Contains(strings.ToLower(*p.Barcode), needle)) {
			out = append(out, p)
		}
	}
	return out
}

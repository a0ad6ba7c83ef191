package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"anypos-register/internal/models"

	"github.com/gin-gonic/gin"
)

// Catalog is the product lookup of the till, implemented by catalog.Service.
type Catalog interface {
	Products(ctx context.Context, token string, categoryID *int64) ([]models.Product, error)
	Product(ctx context.Context, token string, id int64) (*models.Product, error)
	Categories(ctx context.Context, token string) ([]models.Category, error)
	Search(ctx context.Context, token, term string) ([]models.Product, error)
}

type InventoryHTTPHandler struct {
	catalog Catalog
}

func NewInventoryHTTPHandler(catalog Catalog) *InventoryHTTPHandler {
	return &InventoryHTTPHandler{
		catalog: catalog,
	}
}

type ListProductsQuery struct {
	CategoryID *int64  `form:"category_id,omitempty"`
	SearchTerm *string `form:"search,omitempty"`
}

// --- Product Handlers ---

func (h *InventoryHTTPHandler) ListProducts(c *gin.Context) {
	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	token, ok := credentialToken(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	var (
		products []models.Product
		err      error
	)
	if query.SearchTerm != nil && strings.TrimSpace(*query.SearchTerm) != "" {
		products, err = h.catalog.Search(ctx, token, *query.SearchTerm)
	} else {
		products, err = h.catalog.Products(ctx, token, query.CategoryID)
	}
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Products retrieved successfully", products, gin.H{
		"count": len(products),
	}))
}

func (h *InventoryHTTPHandler) GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id", "product")
	if !ok {
		return
	}
	token, ok := credentialToken(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	product, err := h.catalog.Product(ctx, token, productID)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *InventoryHTTPHandler) ListCategories(c *gin.Context) {
	token, ok := credentialToken(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	categories, err := h.catalog.Categories(ctx, token)
	if err != nil {
		handleAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
}

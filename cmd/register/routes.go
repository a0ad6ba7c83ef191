package main

import (
	"context"
	"net/http"
	"time"

	"anypos-register/config"
	"anypos-register/internal/gateway/handlers"
	"anypos-register/internal/gateway/middleware"

	"github.com/gin-gonic/gin"
)

func newRouter(cfg config.Config, deps *register) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimit.Rate, cfg.RegisterID))
	r.Use(serviceHealthMiddleware(deps))

	users := handlers.NewUserHTTPHandler(deps.sessions)
	posHandler := handlers.NewPOSHTTPHandler(deps.pos, deps.catalog)
	inventory := handlers.NewInventoryHTTPHandler(deps.catalog)
	dayends := handlers.NewDayEndHTTPHandler(deps.ledger, cfg.RegisterID, cfg.Report.CompanyName)
	hardware := handlers.NewHardwareHTTPHandler(deps.printer)

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", users.Login)
			auth.GET("/status", users.Status)
		}
	}

	// --- Signed-in Group ---
	// Day-end, catalog and hardware only need a credential so an operator
	// can still open the day or close it out.
	authed := r.Group("/api/v1")
	authed.Use(middleware.RequireSession(deps.sessions))
	{
		auth := authed.Group("/auth")
		{
			auth.POST("/opening-balance", users.ProvideOpeningBalance)
			auth.POST("/opening-balance/skip", users.SkipOpeningBalance)
			auth.POST("/logout", users.Logout)
		}

		catalogGroup := authed.Group("/catalog")
		{
			catalogGroup.GET("/products", inventory.ListProducts)
			catalogGroup.GET("/products/:id", inventory.GetProduct)
			catalogGroup.GET("/categories", inventory.ListCategories)
		}

		dayendGroup := authed.Group("/dayend")
		{
			dayendGroup.GET("/active", dayends.GetActive)
			dayendGroup.POST("/open", dayends.Open)
			dayendGroup.POST("/preview-variance", dayends.PreviewVariance)
			dayendGroup.GET("/history", dayends.History)
			dayendGroup.POST("/:id/close", dayends.Close)
			dayendGroup.GET("/:id/summary", dayends.Summary)
			dayendGroup.GET("/:id/report.pdf", dayends.ZReport)
		}

		hardwareGroup := authed.Group("/hardware")
		{
			hardwareGroup.GET("/printer/status", hardware.PrinterStatus)
			hardwareGroup.POST("/printer/test", hardware.TestPrint)
			hardwareGroup.POST("/cash-drawer/open", hardware.OpenCashDrawer)
		}
	}

	// --- Ready Group ---
	// Selling needs a credential and an open day-end.
	ready := r.Group("/api/v1")
	ready.Use(middleware.RequireReady(deps.sessions))
	{
		ready.GET("/cart", posHandler.GetCart)
		ready.DELETE("/cart", posHandler.ClearCart)
		ready.POST("/cart/items", posHandler.AddItemToCart)
		ready.PUT("/cart/items/:product_id", posHandler.UpdateCartItem)
		ready.DELETE("/cart/items/:product_id", posHandler.RemoveCartItem)
		ready.POST("/checkout", posHandler.Checkout)
	}

	r.GET("/health", healthCheckHandler(deps))
	r.GET("/health/detailed", detailedHealthCheckHandler(deps))

	return r
}

func apiAvailable(deps *register) bool {
	return deps.monitor != nil && deps.monitor.Snapshot().Healthy
}

func serviceHealthMiddleware(deps *register) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiAvailable(deps) {
			c.Header("X-POS-API", "available")
		} else {
			c.Header("X-POS-API", "unavailable")
		}
		c.Next()
	}
}

func healthCheckHandler(deps *register) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		httpStatus := http.StatusOK

		unavailableServices := []string{}
		if !apiAvailable(deps) {
			unavailableServices = append(unavailableServices, "pos-api")
		}

		if len(unavailableServices) > 0 {
			status = "degraded"
			httpStatus = http.StatusPartialContent
		}

		c.JSON(httpStatus, gin.H{
			"status":               status,
			"message":              "Register is running",
			"register_id":          deps.registerID,
			"unavailable_services": unavailableServices,
			"timestamp":            time.Now(),
		})
	}
}

func detailedHealthCheckHandler(deps *register) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		services := map[string]map[string]interface{}{
			"pos_api": checkAPIHealth(ctx, deps),
			"redis":   checkRedisHealth(ctx, deps),
			"printer": checkPrinterHealth(ctx, deps),
		}

		overallStatus := "healthy"
		if services["pos_api"]["status"] != "healthy" {
			overallStatus = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"overall_status": overallStatus,
			"services":       services,
			"session":        deps.sessions.Status(ctx),
			"dayend_state":   deps.ledger.State(),
			"timestamp":      time.Now(),
		})
	}
}

func checkAPIHealth(ctx context.Context, deps *register) map[string]interface{} {
	if deps.monitor == nil {
		return map[string]interface{}{
			"status":  "unavailable",
			"message": "Health monitor not running",
		}
	}
	if !deps.monitor.Check(ctx) {
		snap := deps.monitor.Snapshot()
		return map[string]interface{}{
			"status":     "unavailable",
			"message":    snap.Error,
			"last_check": snap.LastCheck,
		}
	}
	return map[string]interface{}{
		"status":  "healthy",
		"message": "POS API is responding",
	}
}

func checkRedisHealth(ctx context.Context, deps *register) map[string]interface{} {
	if deps.redis == nil {
		return map[string]interface{}{
			"status":  "disabled",
			"message": "Using in-memory state",
		}
	}
	if err := deps.redis.Ping(ctx).Err(); err != nil {
		return map[string]interface{}{
			"status":  "unavailable",
			"message": err.Error(),
		}
	}
	return map[string]interface{}{
		"status":  "healthy",
		"message": "Redis is responding",
	}
}

func checkPrinterHealth(ctx context.Context, deps *register) map[string]interface{} {
	st := deps.printer.Status(ctx)
	status := "unavailable"
	if st.Available {
		status = "healthy"
	}
	return map[string]interface{}{
		"status": status,
		"type":   st.Type,
	}
}

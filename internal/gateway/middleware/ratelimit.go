package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit throttles each client of this register separately. rate uses the
// limiter format, e.g. "120-M".
func RateLimit(rate, registerID string) gin.HandlerFunc {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		log.Fatalf("Invalid rate limit %q: %v", rate, err)
	}

	instance := limiter.New(memory.NewStore(), r)

	return mgin.NewMiddleware(instance,
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return registerID + ":" + c.ClientIP()
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, slow down",
				"error":   "RATE_LIMITED",
			})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.Printf("Rate limiter failed for register %s: %v", registerID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Rate limiter unavailable",
				"error":   "INTERNAL_ERROR",
			})
		}),
	)
}

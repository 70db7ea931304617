package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(router *gin.Engine, h *Handler, limiter *rate.Limiter) {
	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(rateLimitMiddleware(limiter))
	}
	{
		v1.GET("/currencies", h.GetSupportedCurrencies)
		v1.GET("/assets/top", h.GetTopAssets)

		v1.GET("/wallets", h.ListWallets)
		v1.POST("/wallets", h.CreateWallet)
		v1.DELETE("/wallets/:id", h.DeleteWallet)
		v1.GET("/wallets/:id/holdings", h.GetWalletHoldings)
		v1.POST("/wallets/:id/tokens", h.AddToken)
		v1.POST("/wallets/:id/tokens/:assetId/redeem", h.RedeemToken)
		v1.POST("/wallets/:id/swap", h.SwapToken)
	}

	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
}

// rateLimitMiddleware sheds load once clients exceed the configured
// request rate, before any upstream work is queued.
func rateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

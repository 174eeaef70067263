package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the Gin router with all API routes registered. The
// caller attaches its own middleware (CORS, logging, metrics) before serving.
func SetupRouter(router *gin.Engine, portfolioHandler *PortfolioHandler) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/portfolio/:address", portfolioHandler.GetPortfolioHandler)
		v1.POST("/portfolio/:address/refresh", portfolioHandler.GetPortfolioHandler)
		v1.GET("/portfolio/:address/gas", portfolioHandler.GetGasSpentHandler)
		v1.GET("/history/:slug/:address", portfolioHandler.GetHistoryHandler)
	}

	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
}

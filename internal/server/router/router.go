package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phamqv/storefront/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(orders *handlers.OrderHandler, stock *handlers.StockHandler, txns *handlers.TransactionHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api")

	orderRoutes := api.Group("/orders")
	orderRoutes.POST("", orders.Create)
	orderRoutes.GET("", orders.List)
	orderRoutes.GET("/:id", orders.Get)
	orderRoutes.PUT("/:id/pay", orders.Pay)
	orderRoutes.PUT("/:id/status", orders.UpdateStatus)
	orderRoutes.PATCH("/:id/cancel", orders.Cancel)
	orderRoutes.POST("/:id/refund", orders.Refund)
	orderRoutes.POST("/:id/export-voucher", orders.IssueExportVoucher)

	stockRoutes := api.Group("/stock")
	stockRoutes.POST("", stock.Create)
	stockRoutes.GET("", stock.List)
	stockRoutes.GET("/history", stock.History)
	stockRoutes.GET("/:id", stock.Get)
	stockRoutes.PATCH("/:id/approve", stock.Approve)
	stockRoutes.PATCH("/:id/reject", stock.Reject)
	stockRoutes.PATCH("/:id/cancel", stock.Cancel)

	txnRoutes := api.Group("/transactions")
	txnRoutes.GET("", txns.List)
	txnRoutes.GET("/summary", txns.Summary)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

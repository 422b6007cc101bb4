package orders

import (
	"github.com/gin-gonic/gin"

	"github.com/aurumdesk/aurumdesk/internal/auth"
)

// Routes mounts the order endpoints under router. All order operations
// require an authenticated actor.
func Routes(router *gin.RouterGroup, handler *Handler, jwtSecret []byte) {
	group := router.Group("/orders")
	group.Use(auth.Middleware(jwtSecret))
	{
		group.POST("", handler.CreateOrder)
		group.GET("", handler.ListOrders)
		group.GET("/:id", handler.GetOrder)
		group.GET("/:id/history", handler.OrderHistory)
		group.POST("/:id/process", handler.ProcessOrder)
		group.POST("/:id/cancel", handler.CancelOrder)
	}
}

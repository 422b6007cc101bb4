package orders

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aurumdesk/aurumdesk/internal/auth"
	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

// Handler provides the HTTP handlers for order operations.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates an order handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type itemBody struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,gt=0"`
}

type createOrderBody struct {
	Type             string     `json:"type" binding:"required,oneof=buy sell"`
	Items            []itemBody `json:"items" binding:"required,min=1,dive"`
	CustodyServiceID *uuid.UUID `json:"custody_service_id"`
}

// CreateOrder handles POST /v1/orders.
func (h *Handler) CreateOrder(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var body createOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		pkgerrors.AbortWithError(c, pkgerrors.Wrap(pkgerrors.CodeInvalidInput, "malformed order request", err))
		return
	}

	req := CreateOrderRequest{
		UserID:           actor.UserID,
		Type:             OrderType(body.Type),
		CustodyServiceID: body.CustodyServiceID,
	}
	for _, item := range body.Items {
		req.Items = append(req.Items, ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		pkgerrors.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /v1/orders/:id.
func (h *Handler) GetOrder(c *gin.Context) {
	actor, orderID, ok := h.actorAndID(c)
	if !ok {
		return
	}
	order, err := h.service.GetOrder(c.Request.Context(), orderID, actor)
	if err != nil {
		pkgerrors.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /v1/orders.
func (h *Handler) ListOrders(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, total, err := h.service.ListOrders(c.Request.Context(), actor, limit, offset)
	if err != nil {
		pkgerrors.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

// OrderHistory handles GET /v1/orders/:id/history.
func (h *Handler) OrderHistory(c *gin.Context) {
	actor, orderID, ok := h.actorAndID(c)
	if !ok {
		return
	}
	history, err := h.service.OrderHistory(c.Request.Context(), orderID, actor)
	if err != nil {
		pkgerrors.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "history": history})
}

// ProcessOrder handles POST /v1/orders/:id/process.
func (h *Handler) ProcessOrder(c *gin.Context) {
	actor, orderID, ok := h.actorAndID(c)
	if !ok {
		return
	}
	result, err := h.service.ProcessOrder(c.Request.Context(), orderID, actor)
	if err != nil {
		pkgerrors.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelOrder handles POST /v1/orders/:id/cancel.
func (h *Handler) CancelOrder(c *gin.Context) {
	actor, orderID, ok := h.actorAndID(c)
	if !ok {
		return
	}
	order, err := h.service.CancelOrder(c.Request.Context(), orderID, actor)
	if err != nil {
		pkgerrors.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) actorAndID(c *gin.Context) (auth.Actor, uuid.UUID, bool) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return auth.Actor{}, uuid.Nil, false
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		pkgerrors.AbortWithError(c, pkgerrors.New(pkgerrors.CodeInvalidInput, "order id must be a UUID"))
		return auth.Actor{}, uuid.Nil, false
	}
	return actor, orderID, true
}

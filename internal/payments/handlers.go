package payments

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pkgerrors "github.com/aurumdesk/aurumdesk/pkg/errors"
)

// SignatureHeader carries the processor's webhook signature.
const SignatureHeader = "Aurum-Signature"

// WebhookHandler exposes the payment webhook endpoint.
type WebhookHandler struct {
	service *ReconciliationService
	logger  *zap.Logger
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(service *ReconciliationService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, logger: logger}
}

// HandleWebhook handles POST /v1/payments/webhook. Once the signature is
// valid the endpoint answers 200 even for ignored events, so the
// processor's retries are driven only by genuine delivery problems.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		pkgerrors.AbortWithError(c, pkgerrors.Wrap(pkgerrors.CodeInvalidInput, "unreadable request body", err))
		return
	}

	result, err := h.service.HandleEvent(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		pkgerrors.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": result.Outcome, "reason": result.Reason})
}

// Routes mounts the payment endpoints under router. The webhook is
// authenticated by its signature, not by a bearer token.
func Routes(router *gin.RouterGroup, handler *WebhookHandler) {
	group := router.Group("/payments")
	group.POST("/webhook", handler.HandleWebhook)
}

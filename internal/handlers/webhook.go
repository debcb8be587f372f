package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/payments"
	"github.com/gramsight/gramsight-backend/internal/services"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type WebhookHandler struct {
	log            *logger.Logger
	paymentService services.PaymentService
}

func NewWebhookHandler(log *logger.Logger, paymentService services.PaymentService) *WebhookHandler {
	return &WebhookHandler{log: log.With("handler", "WebhookHandler"), paymentService: paymentService}
}

// Stripe receives signed gateway events. Signature verification runs over
// the raw body before anything is parsed or persisted; a rejected delivery
// leaves no rows behind.
func (wh *WebhookHandler) Stripe(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		RespondError(c, http.StatusBadRequest, "missing_signature", errors.New("missing signature header"))
		return
	}
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_body", err)
		return
	}

	err = wh.paymentService.HandleWebhook(c.Request.Context(), types.ReferenceTypeStripe, payload, signature)
	if err != nil {
		var configErr *payments.ConfigurationError
		switch {
		case errors.Is(err, services.ErrInvalidWebhookSignature), errors.As(err, &configErr):
			wh.log.Warn("rejected webhook delivery", "error", err)
			RespondError(c, http.StatusBadRequest, "invalid_signature", errors.New("invalid signature"))
		default:
			RespondError(c, http.StatusInternalServerError, "webhook_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

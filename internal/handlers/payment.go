package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gramsight/gramsight-backend/internal/middleware"
	"github.com/gramsight/gramsight-backend/internal/services"
	"github.com/gramsight/gramsight-backend/internal/types"
)

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (ph *PaymentHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var body struct {
		Gateway     string `json:"gateway"`
		PaymentType string `json:"payment_type" binding:"required"`
		Target      string `json:"target" binding:"required"`
		Quantity    int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("payment_type and target are required"))
		return
	}
	if body.Gateway == "" {
		body.Gateway = types.ReferenceTypeStripe
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	payment, err := ph.paymentService.CreateCheckout(c.Request.Context(), user, body.Gateway, body.PaymentType, body.Target, body.Quantity)
	if err != nil {
		RespondError(c, statusForError(err), "create_checkout_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

func (ph *PaymentHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	payments, err := ph.paymentService.ListForUser(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		RespondError(c, statusForError(err), "list_payments_failed", err)
		return
	}
	RespondOK(c, gin.H{"payments": payments})
}

func (ph *PaymentHandler) Gateways(c *gin.Context) {
	RespondOK(c, gin.H{"gateways": ph.paymentService.GatewayNames()})
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/service"
	"go.uber.org/zap"
)

// MaxWebhookBody caps the webhook payload read into memory
const MaxWebhookBody = 64 << 10

// BillingHandler handles checkout and billing webhook requests
type BillingHandler struct {
	checkoutService service.CheckoutService
	webhookService  service.WebhookService
	logger          *zap.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(checkoutService service.CheckoutService, webhookService service.WebhookService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		checkoutService: checkoutService,
		webhookService:  webhookService,
		logger:          logger,
	}
}

// CreateCheckout starts a subscription checkout for the caller
// @Summary Create checkout session
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CheckoutRequest false "Checkout request"
// @Success 200 {object} dto.CheckoutResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /create-checkout [post]
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.checkoutService.CreateCheckout(c.Request.Context(), claims, &req, c.GetHeader("Origin"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Webhook applies a signed billing event
// @Summary Stripe webhook
// @Tags billing
// @Accept json
// @Produce json
// @Success 200 {object} dto.WebhookResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /stripe-webhook [post]
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxWebhookBody+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Bad request", Message: "Failed to read body"})
		return
	}
	if len(payload) > MaxWebhookBody {
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "Payload too large"})
		return
	}

	if err := h.webhookService.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.WebhookResponse{Received: true})
}

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

// ExtensionHandler relays a web login to the browser extension
type ExtensionHandler struct {
	relay  service.LoginRelayService
	logger *zap.Logger
}

// NewExtensionHandler creates a new extension handler
func NewExtensionHandler(relay service.LoginRelayService, logger *zap.Logger) *ExtensionHandler {
	return &ExtensionHandler{
		relay:  relay,
		logger: logger,
	}
}

// StartLogin opens a login attempt for the extension
// @Summary Start extension login
// @Tags extension
// @Produce json
// @Success 201 {object} dto.LoginAttemptResponse
// @Router /extension/login-attempts [post]
func (h *ExtensionHandler) StartLogin(c *gin.Context) {
	resp, err := h.relay.Start(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CompleteLogin attaches the caller's session to an attempt
// @Summary Complete extension login
// @Tags extension
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Attempt ID"
// @Param request body dto.CompleteLoginRequest false "Refresh token"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /extension/login-attempts/{id}/complete [post]
func (h *ExtensionHandler) CompleteLogin(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.CompleteLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	err := h.relay.Complete(c.Request.Context(), c.Param("id"), c.GetString(ctxToken), req.RefreshToken, claims)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Extension login completed"})
}

// PollLogin reports an attempt's state
// @Summary Poll extension login
// @Tags extension
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} dto.LoginAttemptResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /extension/login-attempts/{id} [get]
func (h *ExtensionHandler) PollLogin(c *gin.Context) {
	resp, err := h.relay.Poll(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/service"
	"go.uber.org/zap"
)

// respondError maps service error kinds to status codes and bodies.
// Unexpected errors are logged and hidden from the caller.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var malformed *service.MalformedReplyError
	switch {
	case errors.As(err, &malformed):
		raw := malformed.Raw
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Invalid response from model",
			Raw:   &raw,
		})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrSignature):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid signature",
		})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "Unauthorized",
		})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error:   "Forbidden",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: "Not found",
		})
	case errors.Is(err, service.ErrTimeout):
		logger.Warn("Upstream timeout", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, dto.ErrorResponse{
			Error: "Upstream timeout",
		})
	default:
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Something went wrong",
		})
	}
	_ = c.Error(err)
}

// MethodNotAllowed answers requests whose route exists for other methods
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, dto.ErrorResponse{Error: "Method not allowed"})
}

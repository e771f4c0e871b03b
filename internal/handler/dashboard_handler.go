package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/service"
	"go.uber.org/zap"
)

// DashboardHandler serves the data behind the signed-in pages. All routes
// sit behind AuthGuard.
type DashboardHandler struct {
	dashboardService service.DashboardService
	logger           *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// Dashboard returns profile and history
// @Summary Dashboard data
// @Tags pages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.dashboardService.Dashboard(c.Request.Context(), claims.User())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Profile returns the caller's plan
// @Summary Current plan
// @Tags pages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ProfileResponse
// @Router /profile [get]
func (h *DashboardHandler) Profile(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.dashboardService.Profile(c.Request.Context(), claims.User())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Analytics returns the chart series
// @Summary Analytics data
// @Tags pages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AnalyticsResponse
// @Router /analytics [get]
func (h *DashboardHandler) Analytics(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.dashboardService.Analytics(c.Request.Context(), claims.User())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LatestResult hands out the last analysis result once
// @Summary Latest analysis result
// @Tags pages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AnalyzeResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /results/latest [get]
func (h *DashboardHandler) LatestResult(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.dashboardService.LatestResult(c.Request.Context(), claims.User())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

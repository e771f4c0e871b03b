package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/service"
	"github.com/prperemyshlev/postoptima-api/internal/utils"
	"go.uber.org/zap"
)

// SavedHeader tells the caller whether the result was stored
const SavedHeader = "X-Analysis-Saved"

// AnalyzeHandler handles post analysis requests
type AnalyzeHandler struct {
	analysisService service.AnalysisService
	logger          *zap.Logger
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(analysisService service.AnalysisService, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysisService: analysisService,
		logger:          logger,
	}
}

// Analyze scores and rewrites a post
// @Summary Analyze a post
// @Description Score a post for a platform and return an optimized version
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body dto.AnalyzeRequest true "Post to analyze"
// @Success 200 {object} dto.AnalyzeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse
// @Router /analyze [post]
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || utils.IsBlank(req.PostContent) || utils.IsBlank(req.Platform) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Missing content or platform",
		})
		return
	}

	// the caller is resolved by the service after the model replies
	token, _ := utils.ExtractBearerToken(c.GetHeader("Authorization"))

	outcome, err := h.analysisService.Analyze(c.Request.Context(), token, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header(SavedHeader, strconv.FormatBool(outcome.Saved))
	c.JSON(http.StatusOK, outcome.Result)
}

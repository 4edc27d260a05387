package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roadready/drivemis-api/internal/dto"
	"github.com/roadready/drivemis-api/internal/service"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
	"github.com/roadready/drivemis-api/pkg/response"
)

// RecommendationHandler exposes scheduling recommendation endpoints.
type RecommendationHandler struct {
	recommendations *service.RecommendationService
	logger          *zap.Logger
}

// NewRecommendationHandler constructs RecommendationHandler.
func NewRecommendationHandler(recommendations *service.RecommendationService, logger *zap.Logger) *RecommendationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationHandler{recommendations: recommendations, logger: logger}
}

// Recommend godoc
// @Summary Recommend resources for a proposed session slot
// @Description Returns ranked vehicles or classrooms plus instructors for the slot. Internal failures degrade to empty lists so the scheduling form stays usable.
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param payload body service.RecommendationRequest true "Recommendation query"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /recommendations [post]
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req service.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	recommendation, err := h.recommendations.Recommend(c.Request.Context(), req)
	if err != nil {
		// Caller mistakes still fail loudly; backend trouble degrades to
		// empty lists instead of blocking the scheduling form.
		if appErr := appErrors.FromError(err); appErr.Status < http.StatusInternalServerError {
			response.Error(c, err)
			return
		}
		h.logger.Warn("recommendation degraded to empty result", zap.Error(err))
		response.JSON(c, http.StatusOK, dto.Empty(), nil)
		return
	}
	response.JSON(c, http.StatusOK, recommendation, nil)
}

// OpenTheorySlots godoc
// @Summary List open classroom sessions an enrollment can join
// @Tags Recommendations
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/theory-slots [get]
func (h *RecommendationHandler) OpenTheorySlots(c *gin.Context) {
	slots, err := h.recommendations.OpenTheorySlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// MatchTheorySlots godoc
// @Summary Match open classroom sessions against an enrollment's preferred dates
// @Tags Recommendations
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/theory-slots/match [get]
func (h *RecommendationHandler) MatchTheorySlots(c *gin.Context) {
	match, err := h.recommendations.MatchTheorySlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, match, nil)
}

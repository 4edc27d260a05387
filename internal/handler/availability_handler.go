package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roadready/drivemis-api/internal/service"
	"github.com/roadready/drivemis-api/pkg/response"
)

// AvailabilityHandler answers which resources are free for a time window.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

// NewAvailabilityHandler constructs AvailabilityHandler.
func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

func availabilityQuery(c *gin.Context) service.AvailabilityQuery {
	return service.AvailabilityQuery{
		Date:      c.Query("date"),
		StartTime: c.Query("startTime"),
		EndTime:   c.Query("endTime"),
		Branch:    c.Query("branch"),
	}
}

// Vehicles godoc
// @Summary List vehicles free in a time window
// @Tags Availability
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param startTime query string true "Start time (HH:MM)"
// @Param endTime query string false "End time (HH:MM), defaults to end of day"
// @Param branch query string false "Filter by branch"
// @Success 200 {object} response.Envelope
// @Router /availability/vehicles [get]
func (h *AvailabilityHandler) Vehicles(c *gin.Context) {
	vehicles, err := h.availability.Vehicles(c.Request.Context(), availabilityQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vehicles, nil)
}

// Instructors godoc
// @Summary List instructors free in a time window
// @Tags Availability
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param startTime query string true "Start time (HH:MM)"
// @Param endTime query string false "End time (HH:MM), defaults to end of day"
// @Param branch query string false "Filter by branch"
// @Success 200 {object} response.Envelope
// @Router /availability/instructors [get]
func (h *AvailabilityHandler) Instructors(c *gin.Context) {
	instructors, err := h.availability.Instructors(c.Request.Context(), availabilityQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors, nil)
}

// Classrooms godoc
// @Summary List classrooms with remaining seats in a time window
// @Tags Availability
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param startTime query string true "Start time (HH:MM)"
// @Param endTime query string false "End time (HH:MM), defaults to end of day"
// @Param branch query string false "Filter by branch"
// @Success 200 {object} response.Envelope
// @Router /availability/classrooms [get]
func (h *AvailabilityHandler) Classrooms(c *gin.Context) {
	classrooms, err := h.availability.Classrooms(c.Request.Context(), availabilityQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, nil)
}

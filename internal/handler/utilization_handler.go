package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roadready/drivemis-api/internal/service"
	"github.com/roadready/drivemis-api/pkg/response"
)

// UtilizationHandler exposes resource utilization reports.
type UtilizationHandler struct {
	utilization *service.UtilizationService
	reports     *service.ReportService
}

// NewUtilizationHandler constructs UtilizationHandler.
func NewUtilizationHandler(utilization *service.UtilizationService, reports *service.ReportService) *UtilizationHandler {
	return &UtilizationHandler{utilization: utilization, reports: reports}
}

// Instructors godoc
// @Summary Instructor utilization report
// @Description Hours assigned versus hours available per instructor. The window defaults to the current month to date.
// @Tags Utilization
// @Produce json
// @Param startDate query string false "Window start (YYYY-MM-DD)"
// @Param endDate query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /utilization/instructors [get]
func (h *UtilizationHandler) Instructors(c *gin.Context) {
	report, err := h.utilization.InstructorReport(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Vehicles godoc
// @Summary Vehicle utilization report
// @Tags Utilization
// @Produce json
// @Param startDate query string false "Window start (YYYY-MM-DD)"
// @Param endDate query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /utilization/vehicles [get]
func (h *UtilizationHandler) Vehicles(c *gin.Context) {
	report, err := h.utilization.VehicleReport(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Classrooms godoc
// @Summary Classroom utilization report
// @Tags Utilization
// @Produce json
// @Param startDate query string false "Window start (YYYY-MM-DD)"
// @Param endDate query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /utilization/classrooms [get]
func (h *UtilizationHandler) Classrooms(c *gin.Context) {
	report, err := h.utilization.ClassroomReport(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export a utilization report as CSV or PDF
// @Tags Utilization
// @Produce octet-stream
// @Param kind path string true "Report kind (instructors, vehicles, classrooms)"
// @Param format query string false "File format (csv or pdf), defaults to csv"
// @Param startDate query string false "Window start (YYYY-MM-DD)"
// @Param endDate query string false "Window end (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /utilization/export/{kind} [get]
func (h *UtilizationHandler) Export(c *gin.Context) {
	format := service.ReportFormat(c.DefaultQuery("format", string(service.ReportFormatCSV)))

	file, err := h.reports.ExportUtilization(c.Request.Context(), c.Param("kind"), c.Query("startDate"), c.Query("endDate"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.File(c, file.ContentType, file.Filename, file.Body)
}

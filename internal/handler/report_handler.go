package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sice-api/internal/middleware"
	"github.com/noah-isme/sice-api/internal/models"
	"github.com/noah-isme/sice-api/internal/service"
	"github.com/noah-isme/sice-api/pkg/response"
)

type reportService interface {
	StudentReport(ctx context.Context, studentID string) (*models.StudentReport, error)
	SearchStudentReport(ctx context.Context, identifier string) (*models.StudentReport, error)
	SubjectGrades(ctx context.Context, actor models.Actor, subjectID string) (*models.SubjectGradesReport, error)
	Stats(ctx context.Context, kind models.StatsKind) (*models.Stats, bool, error)
	ExportStudentReport(ctx context.Context, studentID string, format models.ExportFormat) (*service.ExportFile, error)
}

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	reports reportService
}

func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// StudentReport godoc
// @Summary Student report
// @Description Grades ordered by subject name and score, with the average rounded to two decimals.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope{data=models.StudentReport}
// @Failure 404 {object} response.Envelope
// @Router /reports/student/{id} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	report, err := h.reports.StudentReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportStudentReport godoc
// @Summary Download a student report
// @Tags Reports
// @Produce text/csv,application/pdf
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param format query string false "csv (default) or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/student/{id}/export [get]
func (h *ReportHandler) ExportStudentReport(c *gin.Context) {
	format := models.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ExportCSV))))
	file, err := h.reports.ExportStudentReport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// SearchStudentReport godoc
// @Summary Student report by e-mail or name
// @Description Exact e-mail match first, otherwise the oldest student whose name contains the identifier.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param identifier path string true "E-mail or part of a name"
// @Success 200 {object} response.Envelope{data=models.StudentReport}
// @Failure 404 {object} response.Envelope
// @Router /reports/student-grades-search/{identifier} [get]
func (h *ReportHandler) SearchStudentReport(c *gin.Context) {
	report, err := h.reports.SearchStudentReport(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// SubjectGrades godoc
// @Summary Grades of a subject
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope{data=models.SubjectGradesReport}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/subject-grades/{id} [get]
func (h *ReportHandler) SubjectGrades(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	report, err := h.reports.SubjectGrades(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Stats godoc
// @Summary Aggregate counters
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Counter" Enums(students, subjects, professors)
// @Success 200 {object} response.Envelope{data=models.Stats}
// @Failure 400 {object} response.Envelope
// @Router /reports/stats/{kind} [get]
func (h *ReportHandler) Stats(c *gin.Context) {
	stats, cached, err := h.reports.Stats(c.Request.Context(), models.StatsKind(c.Param("kind")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

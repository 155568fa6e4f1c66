package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sice-api/internal/models"
	"github.com/noah-isme/sice-api/pkg/response"
)

type subjectService interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, req models.CreateSubjectRequest) (*models.Subject, error)
	Update(ctx context.Context, id string, req models.UpdateSubjectRequest) (*models.Subject, error)
	Delete(ctx context.Context, id string) (*models.Subject, error)
	Roster(ctx context.Context, actor models.Actor, id string) ([]models.Student, error)
	ReplaceStudents(ctx context.Context, actor models.Actor, id string, req models.ReplaceEnrollmentRequest) ([]models.Student, *models.EnrollmentChange, error)
	RemoveStudent(ctx context.Context, actor models.Actor, subjectID, studentID string) error
}

type teacherLoadService interface {
	TeacherLoad(ctx context.Context, actor models.Actor, teacherID string) (*models.TeacherLoad, error)
}

// SubjectHandler exposes subject and roster endpoints.
type SubjectHandler struct {
	subjects subjectService
	loads    teacherLoadService
}

func NewSubjectHandler(subjects subjectService, loads teacherLoadService) *SubjectHandler {
	return &SubjectHandler{subjects: subjects, loads: loads}
}

// List godoc
// @Summary List subjects
// @Tags Subjects
// @Produce json
// @Security BearerAuth
// @Param teacher_id query string false "Filter by teacher"
// @Param search query string false "Partial name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Subject}
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	var filter models.SubjectFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.TeacherID = strings.TrimSpace(c.Query("teacher_id"))
	filter.Search = strings.TrimSpace(c.Query("search"))

	subjects, pagination, err := h.subjects.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, pagination)
}

// Get godoc
// @Summary Get subject
// @Tags Subjects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope{data=models.Subject}
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	subject, err := h.subjects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Create godoc
// @Summary Create subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope{data=models.Subject}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	var req models.CreateSubjectRequest
	if !bindJSON(c, &req, "subject") {
		return
	}
	subject, err := h.subjects.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Update godoc
// @Summary Update subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body models.UpdateSubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope{data=models.Subject}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects/{id} [put]
func (h *SubjectHandler) Update(c *gin.Context) {
	var req models.UpdateSubjectRequest
	if !bindJSON(c, &req, "subject") {
		return
	}
	subject, err := h.subjects.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Delete godoc
// @Summary Delete subject
// @Description Also removes the subject's enrollments and grades.
// @Tags Subjects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope{data=models.Subject}
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id} [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
	subject, err := h.subjects.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Roster godoc
// @Summary Students enrolled in a subject
// @Tags Subjects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope{data=[]models.Student}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/students [get]
func (h *SubjectHandler) Roster(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	students, err := h.subjects.Roster(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// ReplaceStudents godoc
// @Summary Replace a subject's roster
// @Description The given ids become the exact roster. Unknown ids reject the whole request.
// @Tags Subjects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body models.ReplaceEnrollmentRequest true "Student ids"
// @Success 200 {object} response.Envelope{data=[]models.Student}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/students [put]
func (h *SubjectHandler) ReplaceStudents(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req models.ReplaceEnrollmentRequest
	if !bindJSON(c, &req, "enrollment") {
		return
	}
	students, change, err := h.subjects.ReplaceStudents(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil, map[string]interface{}{"added": change.Added, "removed": change.Removed})
}

// RemoveStudent godoc
// @Summary Unenroll a student
// @Tags Subjects
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param student_id path string true "Student ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/students/{student_id} [delete]
func (h *SubjectHandler) RemoveStudent(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.subjects.RemoveStudent(c.Request.Context(), actor, c.Param("id"), c.Param("student_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TeacherLoad godoc
// @Summary Teacher load
// @Description Subjects of a teacher with enrolled student counts. Teachers get their own load; admins pass teacher_id.
// @Tags Subjects
// @Produce json
// @Security BearerAuth
// @Param teacher_id query string false "Teacher user ID (admins)"
// @Success 200 {object} response.Envelope{data=models.TeacherLoad}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /subjects/teacher-load [get]
func (h *SubjectHandler) TeacherLoad(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	load, err := h.loads.TeacherLoad(c.Request.Context(), actor, c.Query("teacher_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, load, nil)
}

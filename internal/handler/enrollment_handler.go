package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enrollment-api/internal/models"
	"github.com/noah-isme/course-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/course-enrollment-api/pkg/errors"
	"github.com/noah-isme/course-enrollment-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, actor models.Actor, req service.EnrollRequest) (*models.EnrollmentDetail, error)
	FindActiveEnrollment(ctx context.Context, actor models.Actor, studentID, courseID int64) (int64, error)
	AssignProject(ctx context.Context, actor models.Actor, enrollmentID int64, req service.AssignProjectRequest) (*models.EnrollmentDetail, error)
	UpdateAssignment(ctx context.Context, actor models.Actor, enrollmentID int64, req service.UpdateAssignmentRequest) (*models.EnrollmentDetail, error)
	RemoveFromCourse(ctx context.Context, actor models.Actor, enrollmentID int64) error
	RestoreEnrollment(ctx context.Context, actor models.Actor, enrollmentID int64) (*models.EnrollmentDetail, error)
	PermanentlyDelete(ctx context.Context, actor models.Actor, enrollmentID int64) error
	RemoveFromProject(ctx context.Context, actor models.Actor, enrollmentID int64) (*models.EnrollmentDetail, error)
	RestoreToProject(ctx context.Context, actor models.Actor, enrollmentID int64) (*models.EnrollmentDetail, error)
	GetByID(ctx context.Context, actor models.Actor, enrollmentID int64) (*models.EnrollmentDetail, error)
	ListByCourse(ctx context.Context, actor models.Actor, courseID int64) ([]models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, actor models.Actor, studentID int64) ([]models.EnrollmentDetail, error)
	ListActiveMembers(ctx context.Context, actor models.Actor, projectID int64) ([]models.EnrollmentDetail, error)
	ListRemovedHistory(ctx context.Context, actor models.Actor, projectID int64) ([]models.EnrollmentDetail, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Create godoc
// @Summary Enroll student in course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req service.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment, "student enrolled")
}

// Get godoc
// @Summary Get enrollment, including soft-deleted ones
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	enrollment, err := h.enrollments.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, "")
}

// List godoc
// @Summary List active enrollments by course, student or project
// @Description Exactly one of courseId, studentId or projectId is required. projectId lists current project members.
// @Tags Enrollments
// @Produce json
// @Param courseId query int false "Course ID"
// @Param studentId query int false "Student ID"
// @Param projectId query int false "Project ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	filters := 0
	for _, key := range []string{"courseId", "studentId", "projectId"} {
		if c.Query(key) != "" {
			filters++
		}
	}
	if filters != 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exactly one of courseId, studentId or projectId is required"))
		return
	}

	var (
		enrollments []models.EnrollmentDetail
		err         error
	)
	ctx := c.Request.Context()
	switch {
	case c.Query("courseId") != "":
		id, ok := parseIDQuery(c, "courseId")
		if !ok {
			return
		}
		enrollments, err = h.enrollments.ListByCourse(ctx, actor, id)
	case c.Query("studentId") != "":
		id, ok := parseIDQuery(c, "studentId")
		if !ok {
			return
		}
		enrollments, err = h.enrollments.ListByStudent(ctx, actor, id)
	default:
		id, ok := parseIDQuery(c, "projectId")
		if !ok {
			return
		}
		enrollments, err = h.enrollments.ListActiveMembers(ctx, actor, id)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, "", map[string]interface{}{"count": len(enrollments)})
}

// Lookup godoc
// @Summary Resolve the active enrollment of a student in a course
// @Tags Enrollments
// @Produce json
// @Param studentId query int true "Student ID"
// @Param courseId query int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/lookup [get]
func (h *EnrollmentHandler) Lookup(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	studentID, ok := parseIDQuery(c, "studentId")
	if !ok {
		return
	}
	courseID, ok := parseIDQuery(c, "courseId")
	if !ok {
		return
	}
	id, err := h.enrollments.FindActiveEnrollment(c.Request.Context(), actor, studentID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"enrollment_id": id}, "")
}

// UpdateAssignment godoc
// @Summary Partially update a project assignment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param payload body service.UpdateAssignmentRequest true "Fields to overwrite"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [put]
func (h *EnrollmentHandler) UpdateAssignment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.UpdateAssignment(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, "assignment updated")
}

// AssignProject godoc
// @Summary Assign an enrollment to a project
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param payload body service.AssignProjectRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/project [put]
func (h *EnrollmentHandler) AssignProject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.AssignProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.AssignProject(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, "project assigned")
}

// Delete godoc
// @Summary Remove an enrollment from its course
// @Description Soft-deletes by default; permanent=true purges the row.
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param permanent query bool false "Hard delete"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	permanent, err := strconv.ParseBool(c.DefaultQuery("permanent", "false"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "permanent must be a boolean"))
		return
	}

	if permanent {
		err = h.enrollments.PermanentlyDelete(c.Request.Context(), actor, id)
	} else {
		err = h.enrollments.RemoveFromCourse(c.Request.Context(), actor, id)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	message := "enrollment removed from course"
	if permanent {
		message = "enrollment permanently deleted"
	}
	response.JSON(c, http.StatusOK, gin.H{"enrollment_id": id}, message)
}

// Restore godoc
// @Summary Restore a soft-deleted enrollment
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/restore [post]
func (h *EnrollmentHandler) Restore(c *gin.Context) {
	h.transition(c, h.enrollments.RestoreEnrollment, "enrollment restored")
}

// RemoveFromProject godoc
// @Summary Remove a member from its project, keeping history
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/remove-from-project [post]
func (h *EnrollmentHandler) RemoveFromProject(c *gin.Context) {
	h.transition(c, h.enrollments.RemoveFromProject, "removed from project")
}

// RestoreToProject godoc
// @Summary Restore a removed member to its project
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/restore-to-project [post]
func (h *EnrollmentHandler) RestoreToProject(c *gin.Context) {
	h.transition(c, h.enrollments.RestoreToProject, "restored to project")
}

// History godoc
// @Summary List members removed from a project, most recent first
// @Tags Enrollments
// @Produce json
// @Param projectId path int true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/projects/{projectId}/history [get]
func (h *EnrollmentHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}
	history, err := h.enrollments.ListRemovedHistory(c.Request.Context(), actor, projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, "", map[string]interface{}{"count": len(history)})
}

type enrollmentTransition func(ctx context.Context, actor models.Actor, enrollmentID int64) (*models.EnrollmentDetail, error)

func (h *EnrollmentHandler) transition(c *gin.Context, fn enrollmentTransition, message string) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	enrollment, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, message)
}

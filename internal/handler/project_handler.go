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

type projectService interface {
	Get(ctx context.Context, actor models.Actor, projectID int64) (*models.ProjectDetail, error)
	ListByCourse(ctx context.Context, actor models.Actor, courseID int64) ([]models.ProjectDetail, error)
	Delete(ctx context.Context, actor models.Actor, projectID int64) error
	PermanentlyDelete(ctx context.Context, actor models.Actor, projectID int64) error
	Restore(ctx context.Context, actor models.Actor, projectID int64) (*models.ProjectDetail, error)
	ChangeCourse(ctx context.Context, actor models.Actor, projectID int64, req service.ChangeProjectCourseRequest) (*models.ProjectDetail, error)
}

type memberCountService interface {
	CountActiveMembers(ctx context.Context, actor models.Actor, projectID int64) (int64, error)
	CountAllMembers(ctx context.Context, actor models.Actor, projectID int64) (int64, error)
}

// ProjectHandler exposes project endpoints.
type ProjectHandler struct {
	projects projectService
	members  memberCountService
}

// NewProjectHandler constructs ProjectHandler.
func NewProjectHandler(projects projectService, members memberCountService) *ProjectHandler {
	return &ProjectHandler{projects: projects, members: members}
}

// Get godoc
// @Summary Get project with its active member count
// @Tags Projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	project, err := h.projects.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, "")
}

// ListByCourse godoc
// @Summary List the projects of a course
// @Tags Projects
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/projects [get]
func (h *ProjectHandler) ListByCourse(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	projects, err := h.projects.ListByCourse(c.Request.Context(), actor, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, "", map[string]interface{}{"count": len(projects)})
}

// Members godoc
// @Summary Count project members
// @Description active counts current members; all also counts removed members still enrolled in the course.
// @Tags Projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/members/count [get]
func (h *ProjectHandler) Members(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	active, err := h.members.CountActiveMembers(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	all, err := h.members.CountAllMembers(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"project_id": id, "active": active, "all": all}, "")
}

// ChangeCourse godoc
// @Summary Move a project without members to another course
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param payload body service.ChangeProjectCourseRequest true "Target course"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /projects/{id}/course [put]
func (h *ProjectHandler) ChangeCourse(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.ChangeProjectCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	project, err := h.projects.ChangeCourse(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, "project course changed")
}

// Delete godoc
// @Summary Delete a project
// @Description Soft-deletes a project without members; permanent=true purges a project without active members.
// @Tags Projects
// @Produce json
// @Param id path int true "Project ID"
// @Param permanent query bool false "Hard delete"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
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

	message := "project deleted"
	if permanent {
		err = h.projects.PermanentlyDelete(c.Request.Context(), actor, id)
		message = "project permanently deleted"
	} else {
		err = h.projects.Delete(c.Request.Context(), actor, id)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"project_id": id}, message)
}

// Restore godoc
// @Summary Restore a soft-deleted project
// @Tags Projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /projects/{id}/restore [post]
func (h *ProjectHandler) Restore(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	project, err := h.projects.Restore(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, "project restored")
}

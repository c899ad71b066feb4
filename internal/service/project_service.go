package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment-api/internal/models"
	"github.com/noah-isme/course-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/course-enrollment-api/pkg/errors"
)

// Project operation names used for metrics and logs.
const (
	OpProjectDelete       = "project_delete"
	OpProjectPurge        = "project_purge"
	OpProjectChangeCourse = "project_change_course"
	OpProjectRestore      = "project_restore"
)

const (
	msgProjectNotDeleted = "project is not deleted"
	msgProjectCodeTaken  = "project code already exists in active projects"
)

type projectStore interface {
	FindByID(ctx context.Context, id int64) (*models.Project, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Project, error)
	ExistsActiveCode(ctx context.Context, exec sqlx.ExtContext, code string, excludeID int64) (bool, error)
	FindDetailByID(ctx context.Context, id int64) (*models.ProjectDetail, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.ProjectDetail, error)
	SoftDelete(ctx context.Context, exec sqlx.ExtContext, id int64, deletedAt time.Time) error
	Restore(ctx context.Context, exec sqlx.ExtContext, id int64) error
	UpdateCourse(ctx context.Context, exec sqlx.ExtContext, id, courseID int64) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error
}

type memberCounter interface {
	CountActiveMembersByProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) (int64, error)
	CountAllMembersByProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) (int64, error)
}

// ChangeProjectCourseRequest moves a project to another course.
type ChangeProjectCourseRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
}

// ProjectService exposes project reads with member counts and the membership-guarded project writes.
type ProjectService struct {
	repo      projectStore
	members   memberCounter
	courses   courseReader
	audit     auditWriter
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewProjectService constructs ProjectService.
func NewProjectService(
	repo projectStore,
	members memberCounter,
	courses courseReader,
	audit auditWriter,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ProjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		repo:      repo,
		members:   members,
		courses:   courses,
		audit:     audit,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get returns an active project with its active member count.
func (s *ProjectService) Get(ctx context.Context, actor models.Actor, projectID int64) (*models.ProjectDetail, error) {
	key := fmt.Sprintf("projects:%d", projectID)
	var cached models.ProjectDetail
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	detail, err := s.repo.FindDetailByID(ctx, projectID)
	if err != nil {
		return nil, lookupError(err, "project not found", "failed to load project")
	}
	if detail.MemberCount, err = s.members.CountActiveMembersByProject(ctx, nil, projectID); err != nil {
		return nil, appErrors.Internal(err, "failed to count project members")
	}
	_ = s.cache.Set(ctx, key, detail, 0)
	return detail, nil
}

// ListByCourse returns the active projects of a course with their active member counts.
func (s *ProjectService) ListByCourse(ctx context.Context, actor models.Actor, courseID int64) ([]models.ProjectDetail, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	key := fmt.Sprintf("projects:course:%d", courseID)
	var cached []models.ProjectDetail
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	projects, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list projects")
	}
	for i := range projects {
		count, err := s.members.CountActiveMembersByProject(ctx, nil, projects[i].ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to count project members")
		}
		projects[i].MemberCount = count
	}
	_ = s.cache.Set(ctx, key, projects, 0)
	return projects, nil
}

// Delete soft-deletes a project that no enrollment references, removed members included.
func (s *ProjectService) Delete(ctx context.Context, actor models.Actor, projectID int64) (err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpProjectDelete, actor, projectID, err) }()

	if err = requireManager(actor); err != nil {
		return err
	}
	err = withinTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		project, err := s.lockActive(ctx, exec, projectID)
		if err != nil {
			return err
		}
		if err := s.requireNoMembers(ctx, exec, projectID); err != nil {
			return err
		}
		now := s.now()
		if err := s.repo.SoftDelete(ctx, exec, projectID, now); err != nil {
			return appErrors.Internal(err, "failed to delete project")
		}
		project.DeletedAt = &now
		return writeAudit(ctx, s.audit, exec, actor, models.AuditActionProjectDelete, models.AuditResourceProject, projectID, project)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Restore reactivates a soft-deleted project unless an active project took its code meanwhile.
func (s *ProjectService) Restore(ctx context.Context, actor models.Actor, projectID int64) (detail *models.ProjectDetail, err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpProjectRestore, actor, projectID, err) }()

	if err = requireManager(actor); err != nil {
		return nil, err
	}
	err = withinTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		project, err := s.repo.FindByIDForUpdate(ctx, exec, projectID)
		if err != nil {
			return lookupError(err, "project not found", "failed to load project")
		}
		if project.DeletedAt == nil {
			return appErrors.Clone(appErrors.ErrConflict, msgProjectNotDeleted)
		}
		taken, err := s.repo.ExistsActiveCode(ctx, exec, project.Code, projectID)
		if err != nil {
			return appErrors.Internal(err, "failed to validate project code")
		}
		if taken {
			return appErrors.Clone(appErrors.ErrConflict, msgProjectCodeTaken)
		}
		if err := s.repo.Restore(ctx, exec, projectID); err != nil {
			if errors.Is(err, repository.ErrDuplicateProjectCode) {
				return appErrors.Clone(appErrors.ErrConflict, msgProjectCodeTaken)
			}
			return appErrors.Internal(err, "failed to restore project")
		}
		project.DeletedAt = nil
		return writeAudit(ctx, s.audit, exec, actor, models.AuditActionProjectRestore, models.AuditResourceProject, projectID, project)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.Get(ctx, actor, projectID)
}

// ChangeCourse moves a project without members to another course.
func (s *ProjectService) ChangeCourse(ctx context.Context, actor models.Actor, projectID int64, req ChangeProjectCourseRequest) (detail *models.ProjectDetail, err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpProjectChangeCourse, actor, projectID, err) }()

	if err = requireManager(actor); err != nil {
		return nil, err
	}
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course change payload")
	}
	if _, err = s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}

	err = withinTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		project, err := s.lockActive(ctx, exec, projectID)
		if err != nil {
			return err
		}
		if project.CourseID == req.CourseID {
			return nil
		}
		if err := s.requireNoMembers(ctx, exec, projectID); err != nil {
			return err
		}
		if err := s.repo.UpdateCourse(ctx, exec, projectID, req.CourseID); err != nil {
			return appErrors.Internal(err, "failed to change project course")
		}
		project.CourseID = req.CourseID
		return writeAudit(ctx, s.audit, exec, actor, models.AuditActionProjectMoveCourse, models.AuditResourceProject, projectID, project)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	detail, err = s.repo.FindDetailByID(ctx, projectID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load project")
	}
	return detail, nil
}

// PermanentlyDelete purges a project that has no active members.
func (s *ProjectService) PermanentlyDelete(ctx context.Context, actor models.Actor, projectID int64) (err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpProjectPurge, actor, projectID, err) }()

	if err = requireManager(actor); err != nil {
		return err
	}
	err = withinTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		project, err := s.repo.FindByIDForUpdate(ctx, exec, projectID)
		if err != nil {
			return lookupError(err, "project not found", "failed to load project")
		}
		active, err := s.members.CountActiveMembersByProject(ctx, exec, projectID)
		if err != nil {
			return appErrors.Internal(err, "failed to count project members")
		}
		if active > 0 {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("project has %d active members", active))
		}
		if err := s.repo.Delete(ctx, exec, projectID); err != nil {
			if errors.Is(err, repository.ErrProjectReferenced) {
				return appErrors.Clone(appErrors.ErrConflict, "project is still referenced by enrollment history")
			}
			return appErrors.Internal(err, "failed to purge project")
		}
		return writeAudit(ctx, s.audit, exec, actor, models.AuditActionProjectPurge, models.AuditResourceProject, projectID, project)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *ProjectService) lockActive(ctx context.Context, exec sqlx.ExtContext, projectID int64) (*models.Project, error) {
	project, err := s.repo.FindByIDForUpdate(ctx, exec, projectID)
	if err != nil {
		return nil, lookupError(err, "project not found", "failed to load project")
	}
	if project.DeletedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
	}
	return project, nil
}

func (s *ProjectService) requireNoMembers(ctx context.Context, exec sqlx.ExtContext, projectID int64) error {
	all, err := s.members.CountAllMembersByProject(ctx, exec, projectID)
	if err != nil {
		return appErrors.Internal(err, "failed to count project members")
	}
	if all > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "project has members (including removed)")
	}
	return nil
}

func (s *ProjectService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, projectCachePattern, enrollmentCachePattern)
}

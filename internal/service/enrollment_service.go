package service

import (
	"context"
	"database/sql"
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

// Operation names used for metrics and logs.
const (
	OpEnroll            = "enroll"
	OpAssignProject     = "assign_project"
	OpUpdateAssignment  = "update_assignment"
	OpRemoveFromCourse  = "remove_from_course"
	OpRestoreEnrollment = "restore_enrollment"
	OpPurgeEnrollment   = "purge_enrollment"
	OpRemoveFromProject = "remove_from_project"
	OpRestoreToProject  = "restore_to_project"
)

const (
	enrollmentCachePattern = "enrollments:*"
	projectCachePattern    = "projects:*"
)

const (
	msgAlreadyEnrolled    = "student already enrolled in course"
	msgWrongCourse        = "wrong course"
	msgAlreadyRemoved     = "enrollment already removed from course"
	msgNotDeleted         = "enrollment is not deleted"
	msgEnrollmentInactive = "enrollment is removed from course"
	msgNoProject          = "no project assigned"
	msgAlreadyOffProject  = "already removed"
	msgAlreadyActive      = "already active"
)

type enrollmentStore interface {
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.EnrollmentDetail, error)
	FindActiveByStudentAndCourse(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error)
	ExistsActive(ctx context.Context, exec sqlx.ExtContext, studentID, courseID, excludeID int64) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error
	ListActiveByCourse(ctx context.Context, courseID int64) ([]models.EnrollmentDetail, error)
	ListActiveByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error)
	ListActiveMembersByProject(ctx context.Context, projectID int64) ([]models.EnrollmentDetail, error)
	ListRemovedByProject(ctx context.Context, projectID int64) ([]models.EnrollmentDetail, error)
	CountActiveMembersByProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) (int64, error)
	CountAllMembersByProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) (int64, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type projectReader interface {
	FindByID(ctx context.Context, id int64) (*models.Project, error)
	FindByIDForShare(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Project, error)
}

// EnrollRequest describes enrollment creation.
type EnrollRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	CourseID  int64 `json:"course_id" validate:"required,gt=0"`
}

// AssignProjectRequest assigns an enrollment without a project to one.
type AssignProjectRequest struct {
	ProjectID     int64   `json:"project_id" validate:"required,gt=0"`
	RoleInProject *string `json:"role_in_project" validate:"omitempty,max=100"`
	GroupNumber   *int    `json:"group_number" validate:"omitempty,gt=0"`
}

// UpdateAssignmentRequest overwrites only the fields that are present.
type UpdateAssignmentRequest struct {
	ProjectID     *int64  `json:"project_id" validate:"omitempty,gt=0"`
	RoleInProject *string `json:"role_in_project" validate:"omitempty,max=100"`
	GroupNumber   *int    `json:"group_number" validate:"omitempty,gt=0"`
}

func (r UpdateAssignmentRequest) empty() bool {
	return r.ProjectID == nil && r.RoleInProject == nil && r.GroupNumber == nil
}

// EnrollmentService owns every state transition of a course enrollment.
type EnrollmentService struct {
	repo      enrollmentStore
	students  studentReader
	courses   courseReader
	projects  projectReader
	audit     auditWriter
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService. tx may be nil, in which case
// each repository call runs on its own connection.
func NewEnrollmentService(
	repo enrollmentStore,
	students studentReader,
	courses courseReader,
	projects projectReader,
	audit auditWriter,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		courses:   courses,
		projects:  projects,
		audit:     audit,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Enroll creates an active enrollment for the student in the course.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Actor, req EnrollRequest) (detail *models.EnrollmentDetail, err error) {
	var createdID int64
	defer func() { trackOperation(s.metrics, s.logger, OpEnroll, actor, createdID, err) }()

	if err = requireManager(actor); err != nil {
		return nil, err
	}
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err = s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	if _, err = s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}

	err = withinTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		exists, err := s.repo.ExistsActive(ctx, exec, req.StudentID, req.CourseID, 0)
		if err != nil {
			return appErrors.Internal(err, "failed to validate enrollment")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, msgAlreadyEnrolled)
		}

		enrollment := &models.Enrollment{StudentID: req.StudentID, CourseID: req.CourseID, EnrolledAt: s.now()}
		if err := s.repo.Create(ctx, exec, enrollment); err != nil {
			if errors.Is(err, repository.ErrDuplicateEnrollment) {
				return appErrors.Clone(appErrors.ErrConflict, msgAlreadyEnrolled)
			}
			return appErrors.Internal(err, "failed to create enrollment")
		}
		createdID = enrollment.ID

		if err := writeAudit(ctx, s.audit, exec, actor, models.AuditActionEnroll, models.AuditResourceEnrollment, enrollment.ID, enrollment); err != nil {
			return err
		}
		loaded, err := s.repo.FindDetailByID(ctx, exec, enrollment.ID)
		if err != nil {
			return appErrors.Internal(err, "failed to load enrollment detail")
		}
		detail = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return detail, nil
}

// FindActiveEnrollment resolves the active enrollment id for a student and course.
func (s *EnrollmentService) FindActiveEnrollment(ctx context.Context, actor models.Actor, studentID, courseID int64) (int64, error) {
	if err := s.authorizeStudent(ctx, actor, studentID); err != nil {
		return 0, err
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return 0, lookupError(err, "student not found", "failed to load student")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return 0, lookupError(err, "course not found", "failed to load course")
	}
	enrollment, err := s.repo.FindActiveByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return 0, lookupError(err, "no active enrollment for student in course", "failed to resolve enrollment")
	}
	return enrollment.ID, nil
}

// AssignProject puts an enrollment that has never had a project into one of its course's projects.
func (s *EnrollmentService) AssignProject(ctx context.Context, actor models.Actor, enrollmentID int64, req AssignProjectRequest) (detail *models.EnrollmentDetail, err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpAssignProject, actor, enrollmentID, err) }()

	if err = requireManager(actor); err != nil {
		return nil, err
	}
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project assignment payload")
	}

	return s.transition(ctx, actor, enrollmentID, models.AuditActionAssignProject, func(exec sqlx.ExtContext, e *models.Enrollment) error {
		if !e.ActiveInCourse() {
			return appErrors.Clone(appErrors.ErrConflict, msgEnrollmentInactive)
		}
		project, err := s.lockProject(ctx, exec, req.ProjectID)
		if err != nil {
			return err
		}
		if e.CourseID != project.CourseID {
			return appErrors.Clone(appErrors.ErrConflict, msgWrongCourse)
		}
		if e.HasProject() {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("already has project: %s", s.projectName(ctx, *e.ProjectID)))
		}
		e.ProjectID = &project.ID
		e.RoleInProject = req.RoleInProject
		e.GroupNumber = req.GroupNumber
		return nil
	})
}

// UpdateAssignment overwrites the present fields of a project assignment.
// A new project must belong to the enrollment's course; removal markers are left as they are.
func (s *EnrollmentService) UpdateAssignment(ctx context.Context, actor models.Actor, enrollmentID int64, req UpdateAssignmentRequest) (detail *models.EnrollmentDetail, err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpUpdateAssignment, actor, enrollmentID, err) }()

	if err = requireManager(actor); err != nil {
		return nil, err
	}
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment update payload")
	}
	if req.empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one of project_id, role_in_project or group_number is required")
	}

	return s.transition(ctx, actor, enrollmentID, models.AuditActionUpdateAssignment, func(exec sqlx.ExtContext, e *models.Enrollment) error {
		if req.ProjectID != nil {
			project, err := s.lockProject(ctx, exec, *req.ProjectID)
			if err != nil {
				return err
			}
			if project.CourseID != e.CourseID {
				return appErrors.Clone(appErrors.ErrConflict, msgWrongCourse)
			}
			e.ProjectID = &project.ID
		}
		if req.RoleInProject != nil {
			e.RoleInProject = req.RoleInProject
		}
		if req.GroupNumber != nil {
			e.GroupNumber = req.GroupNumber
		}
		return nil
	})
}

// RemoveFromCourse soft-deletes the enrollment. A second call is a conflict.
func (s *EnrollmentService) RemoveFromCourse(ctx context.Context, actor models.Actor, enrollmentID int64) (err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpRemoveFromCourse, actor, enrollmentID, err) }()

	if err = requireManager(actor); err != nil {
		return err
	}
	_, err = s.transition(ctx, actor, enrollmentID, models.AuditActionRemoveFromCourse, func(_ sqlx.ExtContext, e *models.Enrollment) error {
		if !e.ActiveInCourse() {
			return appErrors.Clone(appErrors.ErrConflict, msgAlreadyRemoved)
		}
		now := s.now()
		e.DeletedAt = &now
		return nil
	})
	return err
}

// RestoreEnrollment reactivates a soft-deleted enrollment unless the pair was re-enrolled meanwhile.
func (s *EnrollmentService) RestoreEnrollment(ctx context.Context, actor models.Actor, enrollmentID int64) (detail *models.EnrollmentDetail, err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpRestoreEnrollment, actor, enrollmentID, err) }()

	if err = requireManager(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, enrollmentID, models.AuditActionRestoreEnrollment, func(exec sqlx.ExtContext, e *models.Enrollment) error {
		if e.ActiveInCourse() {
			return appErrors.Clone(appErrors.ErrConflict, msgNotDeleted)
		}
		exists, err := s.repo.ExistsActive(ctx, exec, e.StudentID, e.CourseID, e.ID)
		if err != nil {
			return appErrors.Internal(err, "failed to validate enrollment")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, msgAlreadyEnrolled)
		}
		e.DeletedAt = nil
		return nil
	})
}

// PermanentlyDelete hard-deletes the enrollment row.
func (s *EnrollmentService) PermanentlyDelete(ctx context.Context, actor models.Actor, enrollmentID int64) (err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpPurgeEnrollment, actor, enrollmentID, err) }()

	if err = requireManager(actor); err != nil {
		return err
	}
	err = withinTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		enrollment, err := s.repo.FindByIDForUpdate(ctx, exec, enrollmentID)
		if err != nil {
			return lookupError(err, "enrollment not found", "failed to load enrollment")
		}
		if err := s.repo.Delete(ctx, exec, enrollmentID); err != nil {
			return appErrors.Internal(err, "failed to delete enrollment")
		}
		return writeAudit(ctx, s.audit, exec, actor, models.AuditActionPurgeEnrollment, models.AuditResourceEnrollment, enrollmentID, enrollment)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RemoveFromProject marks the member as removed while keeping project, role and group as history.
func (s *EnrollmentService) RemoveFromProject(ctx context.Context, actor models.Actor, enrollmentID int64) (detail *models.EnrollmentDetail, err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpRemoveFromProject, actor, enrollmentID, err) }()

	if err = requireManager(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, enrollmentID, models.AuditActionRemoveFromProject, func(_ sqlx.ExtContext, e *models.Enrollment) error {
		if !e.ActiveInCourse() {
			return appErrors.Clone(appErrors.ErrConflict, msgEnrollmentInactive)
		}
		if !e.HasProject() {
			return appErrors.Clone(appErrors.ErrConflict, msgNoProject)
		}
		if !e.ActiveInProject() {
			return appErrors.Clone(appErrors.ErrConflict, msgAlreadyOffProject)
		}
		now := s.now()
		e.RemovedFromProjectAt = &now
		return nil
	})
}

// RestoreToProject clears a previous removal from the project.
func (s *EnrollmentService) RestoreToProject(ctx context.Context, actor models.Actor, enrollmentID int64) (detail *models.EnrollmentDetail, err error) {
	defer func() { trackOperation(s.metrics, s.logger, OpRestoreToProject, actor, enrollmentID, err) }()

	if err = requireManager(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, enrollmentID, models.AuditActionRestoreToProject, func(_ sqlx.ExtContext, e *models.Enrollment) error {
		if !e.ActiveInCourse() {
			return appErrors.Clone(appErrors.ErrConflict, msgEnrollmentInactive)
		}
		if !e.HasProject() {
			return appErrors.Clone(appErrors.ErrConflict, msgNoProject)
		}
		if e.ActiveInProject() {
			return appErrors.Clone(appErrors.ErrConflict, msgAlreadyActive)
		}
		e.RemovedFromProjectAt = nil
		return nil
	})
}

// GetByID returns an enrollment including soft-deleted ones.
func (s *EnrollmentService) GetByID(ctx context.Context, actor models.Actor, enrollmentID int64) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, nil, enrollmentID)
	if err != nil {
		return nil, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	if err := s.authorizeStudent(ctx, actor, detail.StudentID); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListByCourse returns the active enrollments of a course.
func (s *EnrollmentService) ListByCourse(ctx context.Context, actor models.Actor, courseID int64) ([]models.EnrollmentDetail, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	rows, err := s.cachedList(ctx, fmt.Sprintf("enrollments:course:%d", courseID), "list_enrollments_by_course", func() ([]models.EnrollmentDetail, error) {
		return s.repo.ListActiveByCourse(ctx, courseID)
	})
	if err != nil {
		return nil, err
	}
	return s.scopeToActor(ctx, actor, rows)
}

// ListByStudent returns the active enrollments of a student.
func (s *EnrollmentService) ListByStudent(ctx context.Context, actor models.Actor, studentID int64) ([]models.EnrollmentDetail, error) {
	if err := s.authorizeStudent(ctx, actor, studentID); err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	return s.cachedList(ctx, fmt.Sprintf("enrollments:student:%d", studentID), "list_enrollments_by_student", func() ([]models.EnrollmentDetail, error) {
		return s.repo.ListActiveByStudent(ctx, studentID)
	})
}

// ListActiveMembers returns current members of a project.
func (s *EnrollmentService) ListActiveMembers(ctx context.Context, actor models.Actor, projectID int64) ([]models.EnrollmentDetail, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, lookupError(err, "project not found", "failed to load project")
	}
	rows, err := s.cachedList(ctx, fmt.Sprintf("enrollments:project:%d:active", projectID), "list_project_members", func() ([]models.EnrollmentDetail, error) {
		return s.repo.ListActiveMembersByProject(ctx, projectID)
	})
	if err != nil {
		return nil, err
	}
	return s.scopeToActor(ctx, actor, rows)
}

// ListRemovedHistory returns members removed from a project, most recent removal first.
func (s *EnrollmentService) ListRemovedHistory(ctx context.Context, actor models.Actor, projectID int64) ([]models.EnrollmentDetail, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, lookupError(err, "project not found", "failed to load project")
	}
	return s.cachedList(ctx, fmt.Sprintf("enrollments:project:%d:removed", projectID), "list_project_history", func() ([]models.EnrollmentDetail, error) {
		return s.repo.ListRemovedByProject(ctx, projectID)
	})
}

// CountActiveMembers counts current members of a project.
func (s *EnrollmentService) CountActiveMembers(ctx context.Context, actor models.Actor, projectID int64) (int64, error) {
	return s.count(ctx, projectID, s.repo.CountActiveMembersByProject)
}

// CountAllMembers counts course-active enrollments of a project, removed members included.
func (s *EnrollmentService) CountAllMembers(ctx context.Context, actor models.Actor, projectID int64) (int64, error) {
	return s.count(ctx, projectID, s.repo.CountAllMembersByProject)
}

func (s *EnrollmentService) count(ctx context.Context, projectID int64, fn func(context.Context, sqlx.ExtContext, int64) (int64, error)) (int64, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return 0, lookupError(err, "project not found", "failed to load project")
	}
	n, err := fn(ctx, nil, projectID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to count project members")
	}
	return n, nil
}

// transition locks the enrollment, applies mutate, persists it and writes the audit row in one transaction.
func (s *EnrollmentService) transition(ctx context.Context, actor models.Actor, enrollmentID int64, action string, mutate func(exec sqlx.ExtContext, e *models.Enrollment) error) (*models.EnrollmentDetail, error) {
	var detail *models.EnrollmentDetail
	err := withinTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		enrollment, err := s.repo.FindByIDForUpdate(ctx, exec, enrollmentID)
		if err != nil {
			return lookupError(err, "enrollment not found", "failed to load enrollment")
		}
		if err := mutate(exec, enrollment); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, exec, enrollment); err != nil {
			if errors.Is(err, repository.ErrDuplicateEnrollment) {
				return appErrors.Clone(appErrors.ErrConflict, msgAlreadyEnrolled)
			}
			return appErrors.Internal(err, "failed to update enrollment")
		}
		if err := writeAudit(ctx, s.audit, exec, actor, action, models.AuditResourceEnrollment, enrollmentID, enrollment); err != nil {
			return err
		}
		loaded, err := s.repo.FindDetailByID(ctx, exec, enrollmentID)
		if err != nil {
			return appErrors.Internal(err, "failed to load enrollment detail")
		}
		detail = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return detail, nil
}

// lockProject reads an active project under a share lock held until the transaction ends.
func (s *EnrollmentService) lockProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) (*models.Project, error) {
	project, err := s.projects.FindByIDForShare(ctx, exec, projectID)
	if err != nil {
		return nil, lookupError(err, "project not found", "failed to load project")
	}
	if project.DeletedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
	}
	return project, nil
}

func (s *EnrollmentService) projectName(ctx context.Context, projectID int64) string {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return fmt.Sprintf("#%d", projectID)
	}
	return project.Name
}

func (s *EnrollmentService) cachedList(ctx context.Context, key, label string, load func() ([]models.EnrollmentDetail, error)) ([]models.EnrollmentDetail, error) {
	var rows []models.EnrollmentDetail
	if hit, _ := s.cache.Get(ctx, key, &rows); hit {
		return rows, nil
	}
	start := time.Now()
	rows, err := load()
	s.metrics.ObserveDBQuery(label, time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrollments")
	}
	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, nil
}

func (s *EnrollmentService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, enrollmentCachePattern, projectCachePattern)
}

// authorizeStudent lets managers through and restricts students to their own records.
func (s *EnrollmentService) authorizeStudent(ctx context.Context, actor models.Actor, studentID int64) error {
	if actor.CanManage() {
		return nil
	}
	student, err := s.actorStudent(ctx, actor)
	if err != nil {
		return err
	}
	if student.ID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only access their own enrollments")
	}
	return nil
}

func (s *EnrollmentService) scopeToActor(ctx context.Context, actor models.Actor, rows []models.EnrollmentDetail) ([]models.EnrollmentDetail, error) {
	if actor.CanManage() {
		return rows, nil
	}
	student, err := s.actorStudent(ctx, actor)
	if err != nil {
		return nil, err
	}
	own := make([]models.EnrollmentDetail, 0, 1)
	for _, row := range rows {
		if row.StudentID == student.ID {
			own = append(own, row)
		}
	}
	return own, nil
}

func (s *EnrollmentService) actorStudent(ctx context.Context, actor models.Actor) (*models.Student, error) {
	if !actor.IsStudent() || actor.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
	}
	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile linked to account")
		}
		return nil, appErrors.Internal(err, "failed to load student profile")
	}
	return student, nil
}

func requireManager(actor models.Actor) error {
	if !actor.CanManage() {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins and lecturers can change enrollments")
	}
	return nil
}

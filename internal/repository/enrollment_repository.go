package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-enrollment-api/internal/models"
	"github.com/noah-isme/course-enrollment-api/pkg/database"
)

// ErrDuplicateEnrollment is returned when the active (student, course) unique index rejects a write.
var ErrDuplicateEnrollment = errors.New("active enrollment already exists for student and course")

const activeEnrollmentIndex = "ux_course_enrollments_active"

const enrollmentColumns = `id, student_id, course_id, project_id, role_in_project, group_number, enrolled_at, deleted_at, removed_from_project_at`

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.course_id, e.project_id, e.role_in_project, e.group_number,
        e.enrolled_at, e.deleted_at, e.removed_from_project_at,
        s.student_code, s.full_name AS student_name, c.course_code, c.course_name,
        p.project_code, p.project_name
        FROM course_enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN projects p ON p.id = e.project_id`

// EnrollmentRepository handles persistence of course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByIDForUpdate loads an enrollment and locks the row until the transaction ends.
func (r *EnrollmentRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM course_enrollments WHERE id = $1 FOR UPDATE`
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student, course and project labels.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindActiveByStudentAndCourse returns the single active enrollment for the pair.
func (r *EnrollmentRepository) FindActiveByStudentAndCourse(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM course_enrollments WHERE student_id = $1 AND course_id = $2 AND deleted_at IS NULL`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsActive checks whether an active enrollment exists for the pair, ignoring excludeID when non-zero.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, exec sqlx.ExtContext, studentID, courseID, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM course_enrollments
        WHERE student_id = $1 AND course_id = $2 AND deleted_at IS NULL AND id <> $3)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, studentID, courseID, excludeID); err != nil {
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return exists, nil
}

// Create inserts a new enrollment and fills in its generated ID.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_enrollments (student_id, course_id, project_id, role_in_project, group_number, enrolled_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	row := r.exec(exec).QueryRowxContext(ctx, query,
		enrollment.StudentID,
		enrollment.CourseID,
		enrollment.ProjectID,
		enrollment.RoleInProject,
		enrollment.GroupNumber,
		enrollment.EnrolledAt,
	)
	if err := row.Scan(&enrollment.ID); err != nil {
		if database.IsUniqueViolation(err, activeEnrollmentIndex) {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update persists the mutable fields of an enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	const query = `UPDATE course_enrollments
        SET project_id = $2, role_in_project = $3, group_number = $4, deleted_at = $5, removed_from_project_at = $6
        WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query,
		enrollment.ID,
		enrollment.ProjectID,
		enrollment.RoleInProject,
		enrollment.GroupNumber,
		enrollment.DeletedAt,
		enrollment.RemovedFromProjectAt,
	); err != nil {
		if database.IsUniqueViolation(err, activeEnrollmentIndex) {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// Delete removes the enrollment row permanently.
func (r *EnrollmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	const query = `DELETE FROM course_enrollments WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// ListActiveByCourse returns enrollments of a course that are not soft-deleted.
func (r *EnrollmentRepository) ListActiveByCourse(ctx context.Context, courseID int64) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.course_id = $1 AND e.deleted_at IS NULL ORDER BY e.enrolled_at, e.id`
	enrollments := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}

// ListActiveByStudent returns enrollments of a student that are not soft-deleted.
func (r *EnrollmentRepository) ListActiveByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.student_id = $1 AND e.deleted_at IS NULL ORDER BY e.enrolled_at, e.id`
	enrollments := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListActiveMembersByProject returns current members of a project.
func (r *EnrollmentRepository) ListActiveMembersByProject(ctx context.Context, projectID int64) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.project_id = $1 AND e.deleted_at IS NULL AND e.removed_from_project_at IS NULL
        ORDER BY e.group_number NULLS LAST, e.id`
	enrollments := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &enrollments, query, projectID); err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	return enrollments, nil
}

// ListRemovedByProject returns removed-but-retained members, most recent removal first.
func (r *EnrollmentRepository) ListRemovedByProject(ctx context.Context, projectID int64) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.project_id = $1 AND e.deleted_at IS NULL AND e.removed_from_project_at IS NOT NULL
        ORDER BY e.removed_from_project_at DESC, e.id DESC`
	enrollments := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &enrollments, query, projectID); err != nil {
		return nil, fmt.Errorf("list removed project members: %w", err)
	}
	return enrollments, nil
}

// CountActiveMembersByProject counts current members of a project.
func (r *EnrollmentRepository) CountActiveMembersByProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM course_enrollments
        WHERE project_id = $1 AND deleted_at IS NULL AND removed_from_project_at IS NULL`
	var count int64
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, projectID); err != nil {
		return 0, fmt.Errorf("count project members: %w", err)
	}
	return count, nil
}

// CountAllMembersByProject counts every course-active enrollment referencing the project, removed ones included.
func (r *EnrollmentRepository) CountAllMembersByProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM course_enrollments WHERE project_id = $1 AND deleted_at IS NULL`
	var count int64
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, projectID); err != nil {
		return 0, fmt.Errorf("count all project members: %w", err)
	}
	return count, nil
}

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

// ErrProjectReferenced is returned when enrollment rows still point at a project being purged.
var ErrProjectReferenced = errors.New("project is referenced by enrollments")

// ErrDuplicateProjectCode is returned when another active project already uses the code.
var ErrDuplicateProjectCode = errors.New("active project with this code already exists")

const activeProjectCodeIndex = "ux_projects_code_active"

const projectDetailSelect = `SELECT p.id, p.project_code, p.project_name, p.course_id, p.created_at, p.deleted_at,
        c.course_code, c.course_name
        FROM projects p
        JOIN courses c ON c.id = p.course_id`

// ProjectRepository reads projects and applies the few project writes guarded by membership counts.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs a ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a project including soft-deleted ones, or sql.ErrNoRows.
func (r *ProjectRepository) FindByID(ctx context.Context, id int64) (*models.Project, error) {
	const query = `SELECT id, project_code, project_name, course_id, created_at, deleted_at FROM projects WHERE id = $1`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByIDForUpdate locks the project row for the current transaction.
func (r *ProjectRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Project, error) {
	const query = `SELECT id, project_code, project_name, course_id, created_at, deleted_at FROM projects WHERE id = $1 FOR UPDATE`
	var project models.Project
	if err := sqlx.GetContext(ctx, r.exec(exec), &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByIDForShare reads the project under a share lock so concurrent moves and deletes wait for the caller.
func (r *ProjectRepository) FindByIDForShare(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Project, error) {
	const query = `SELECT id, project_code, project_name, course_id, created_at, deleted_at FROM projects WHERE id = $1 FOR SHARE`
	var project models.Project
	if err := sqlx.GetContext(ctx, r.exec(exec), &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// ExistsActiveCode reports whether an active project other than excludeID uses the code.
func (r *ProjectRepository) ExistsActiveCode(ctx context.Context, exec sqlx.ExtContext, code string, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM projects WHERE project_code = $1 AND id <> $2 AND deleted_at IS NULL)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, code, excludeID); err != nil {
		return false, fmt.Errorf("check project code: %w", err)
	}
	return exists, nil
}

// FindDetailByID returns an active project with its course labels.
func (r *ProjectRepository) FindDetailByID(ctx context.Context, id int64) (*models.ProjectDetail, error) {
	query := projectDetailSelect + ` WHERE p.id = $1 AND p.deleted_at IS NULL`
	var detail models.ProjectDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByCourse returns active projects of a course.
func (r *ProjectRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.ProjectDetail, error) {
	query := projectDetailSelect + ` WHERE p.course_id = $1 AND p.deleted_at IS NULL ORDER BY p.project_code`
	projects := []models.ProjectDetail{}
	if err := r.db.SelectContext(ctx, &projects, query, courseID); err != nil {
		return nil, fmt.Errorf("list course projects: %w", err)
	}
	return projects, nil
}

// SoftDelete marks the project deleted.
func (r *ProjectRepository) SoftDelete(ctx context.Context, exec sqlx.ExtContext, id int64, deletedAt time.Time) error {
	const query = `UPDATE projects SET deleted_at = $2 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, deletedAt); err != nil {
		return fmt.Errorf("soft delete project: %w", err)
	}
	return nil
}

// Restore clears the soft-delete marker.
func (r *ProjectRepository) Restore(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	const query = `UPDATE projects SET deleted_at = NULL WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id); err != nil {
		if database.IsUniqueViolation(err, activeProjectCodeIndex) {
			return ErrDuplicateProjectCode
		}
		return fmt.Errorf("restore project: %w", err)
	}
	return nil
}

// UpdateCourse moves the project to another course.
func (r *ProjectRepository) UpdateCourse(ctx context.Context, exec sqlx.ExtContext, id, courseID int64) error {
	const query = `UPDATE projects SET course_id = $2 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, courseID); err != nil {
		return fmt.Errorf("update project course: %w", err)
	}
	return nil
}

// Delete removes the project row permanently.
func (r *ProjectRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	const query = `DELETE FROM projects WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrProjectReferenced
		}
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

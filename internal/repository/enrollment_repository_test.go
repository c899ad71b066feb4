package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-enrollment-api/internal/models"
)

var enrollmentDetailColumns = []string{
	"id", "student_id", "course_id", "project_id", "role_in_project", "group_number",
	"enrolled_at", "deleted_at", "removed_from_project_at",
	"student_code", "student_name", "course_code", "course_name", "project_code", "project_name",
}

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryFindByIDForUpdate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	enrolledAt := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "project_id", "role_in_project", "group_number", "enrolled_at", "deleted_at", "removed_from_project_at"}).
		AddRow(1, 5, 10, 7, "leader", 2, enrolledAt, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(rows)

	enrollment, err := repo.FindByIDForUpdate(context.Background(), nil, 1)
	require.NoError(t, err)
	require.NotNil(t, enrollment.ProjectID)
	assert.Equal(t, int64(7), *enrollment.ProjectID)
	require.NotNil(t, enrollment.GroupNumber)
	assert.Equal(t, 2, *enrollment.GroupNumber)
	assert.Equal(t, "leader", *enrollment.RoleInProject)
	assert.Nil(t, enrollment.DeletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByIDForUpdateMissing(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM course_enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByIDForUpdate(context.Background(), nil, 99)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows(enrollmentDetailColumns).
		AddRow(1, 5, 10, nil, nil, nil, time.Now(), nil, nil, "SE1001", "Nguyen An", "SWP391", "Software Project", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN projects p ON p.id = e.project_id WHERE e.id = $1")).
		WithArgs(1).
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, "SE1001", detail.StudentCode)
	assert.Equal(t, "Software Project", detail.CourseName)
	assert.Nil(t, detail.ProjectID)
	assert.Nil(t, detail.ProjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActive(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND course_id = $2 AND deleted_at IS NULL AND id <> $3")).
		WithArgs(5, 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsActive(context.Background(), nil, 5, 10, 0)
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO course_enrollments")).
		WithArgs(5, 10, nil, nil, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	enrollment := &models.Enrollment{StudentID: 5, CourseID: 10}
	require.NoError(t, repo.Create(context.Background(), nil, enrollment))
	assert.Equal(t, int64(42), enrollment.ID)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO course_enrollments")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "ux_course_enrollments_active"})

	err := repo.Create(context.Background(), nil, &models.Enrollment{StudentID: 5, CourseID: 10})
	assert.True(t, errors.Is(err, ErrDuplicateEnrollment))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateWithinTransaction(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	projectID := int64(7)
	role := "member"
	group := 3
	removedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_enrollments")).
		WithArgs(1, projectID, role, group, nil, removedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.Update(context.Background(), tx, &models.Enrollment{
		ID:                   1,
		ProjectID:            &projectID,
		RoleInProject:        &role,
		GroupNumber:          &group,
		RemovedFromProjectAt: &removedAt,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateRestoreConflict(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_enrollments")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "ux_course_enrollments_active"})

	err := repo.Update(context.Background(), nil, &models.Enrollment{ID: 1})
	assert.True(t, errors.Is(err, ErrDuplicateEnrollment))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_enrollments WHERE id = $1")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), nil, 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListActiveByCourse(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows(enrollmentDetailColumns).
		AddRow(1, 5, 10, 7, "leader", 2, time.Now(), nil, nil, "SE1001", "Nguyen An", "SWP391", "Software Project", "P07", "Library App").
		AddRow(2, 6, 10, nil, nil, nil, time.Now(), nil, nil, "SE1002", "Tran Binh", "SWP391", "Software Project", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.course_id = $1 AND e.deleted_at IS NULL")).
		WithArgs(10).
		WillReturnRows(rows)

	enrollments, err := repo.ListActiveByCourse(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	assert.Equal(t, "Library App", *enrollments[0].ProjectName)
	assert.Nil(t, enrollments[1].ProjectCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListActiveByStudentEmpty(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.student_id = $1 AND e.deleted_at IS NULL")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(enrollmentDetailColumns))

	enrollments, err := repo.ListActiveByStudent(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, enrollments)
	assert.Empty(t, enrollments)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListActiveMembersByProject(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows(enrollmentDetailColumns).
		AddRow(1, 5, 10, 7, "leader", 2, time.Now(), nil, nil, "SE1001", "Nguyen An", "SWP391", "Software Project", "P07", "Library App")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.project_id = $1 AND e.deleted_at IS NULL AND e.removed_from_project_at IS NULL")).
		WithArgs(7).
		WillReturnRows(rows)

	members, err := repo.ListActiveMembersByProject(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListRemovedByProject(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	later := time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-24 * time.Hour)
	rows := sqlmock.NewRows(enrollmentDetailColumns).
		AddRow(3, 8, 10, 7, "member", 2, earlier, nil, later, "SE1003", "Le Chi", "SWP391", "Software Project", "P07", "Library App").
		AddRow(1, 5, 10, 7, "leader", 2, earlier, nil, earlier, "SE1001", "Nguyen An", "SWP391", "Software Project", "P07", "Library App")
	mock.ExpectQuery(regexp.QuoteMeta("e.removed_from_project_at IS NOT NULL")).
		WithArgs(7).
		WillReturnRows(rows)

	history, err := repo.ListRemovedByProject(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(3), history[0].ID)
	assert.True(t, history[0].RemovedFromProjectAt.After(*history[1].RemovedFromProjectAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("deleted_at IS NULL AND removed_from_project_at IS NULL")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM course_enrollments WHERE project_id = $1 AND deleted_at IS NULL")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	active, err := repo.CountActiveMembersByProject(context.Background(), nil, 7)
	require.NoError(t, err)
	all, err := repo.CountAllMembersByProject(context.Background(), nil, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)
	assert.Equal(t, int64(3), all)
	require.NoError(t, mock.ExpectationsWereMet())
}

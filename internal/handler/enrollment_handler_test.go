package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-enrollment-api/internal/middleware"
	"github.com/noah-isme/course-enrollment-api/internal/models"
	"github.com/noah-isme/course-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/course-enrollment-api/pkg/errors"
)

type enrollmentServiceMock struct {
	detail *models.EnrollmentDetail
	list   []models.EnrollmentDetail
	lookup int64
	err    error
	calls  []string
	lastID int64
	actor  models.Actor
	enroll service.EnrollRequest
	assign service.AssignProjectRequest
	update service.UpdateAssignmentRequest
}

func (m *enrollmentServiceMock) record(name string, actor models.Actor, id int64) {
	m.calls = append(m.calls, name)
	m.actor = actor
	m.lastID = id
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, actor models.Actor, req service.EnrollRequest) (*models.EnrollmentDetail, error) {
	m.record("Enroll", actor, 0)
	m.enroll = req
	return m.detail, m.err
}

func (m *enrollmentServiceMock) FindActiveEnrollment(ctx context.Context, actor models.Actor, studentID, courseID int64) (int64, error) {
	m.record("FindActiveEnrollment", actor, studentID)
	return m.lookup, m.err
}

func (m *enrollmentServiceMock) AssignProject(ctx context.Context, actor models.Actor, id int64, req service.AssignProjectRequest) (*models.EnrollmentDetail, error) {
	m.record("AssignProject", actor, id)
	m.assign = req
	return m.detail, m.err
}

func (m *enrollmentServiceMock) UpdateAssignment(ctx context.Context, actor models.Actor, id int64, req service.UpdateAssignmentRequest) (*models.EnrollmentDetail, error) {
	m.record("UpdateAssignment", actor, id)
	m.update = req
	return m.detail, m.err
}

func (m *enrollmentServiceMock) RemoveFromCourse(ctx context.Context, actor models.Actor, id int64) error {
	m.record("RemoveFromCourse", actor, id)
	return m.err
}

func (m *enrollmentServiceMock) RestoreEnrollment(ctx context.Context, actor models.Actor, id int64) (*models.EnrollmentDetail, error) {
	m.record("RestoreEnrollment", actor, id)
	return m.detail, m.err
}

func (m *enrollmentServiceMock) PermanentlyDelete(ctx context.Context, actor models.Actor, id int64) error {
	m.record("PermanentlyDelete", actor, id)
	return m.err
}

func (m *enrollmentServiceMock) RemoveFromProject(ctx context.Context, actor models.Actor, id int64) (*models.EnrollmentDetail, error) {
	m.record("RemoveFromProject", actor, id)
	return m.detail, m.err
}

func (m *enrollmentServiceMock) RestoreToProject(ctx context.Context, actor models.Actor, id int64) (*models.EnrollmentDetail, error) {
	m.record("RestoreToProject", actor, id)
	return m.detail, m.err
}

func (m *enrollmentServiceMock) GetByID(ctx context.Context, actor models.Actor, id int64) (*models.EnrollmentDetail, error) {
	m.record("GetByID", actor, id)
	return m.detail, m.err
}

func (m *enrollmentServiceMock) ListByCourse(ctx context.Context, actor models.Actor, id int64) ([]models.EnrollmentDetail, error) {
	m.record("ListByCourse", actor, id)
	return m.list, m.err
}

func (m *enrollmentServiceMock) ListByStudent(ctx context.Context, actor models.Actor, id int64) ([]models.EnrollmentDetail, error) {
	m.record("ListByStudent", actor, id)
	return m.list, m.err
}

func (m *enrollmentServiceMock) ListActiveMembers(ctx context.Context, actor models.Actor, id int64) ([]models.EnrollmentDetail, error) {
	m.record("ListActiveMembers", actor, id)
	return m.list, m.err
}

func (m *enrollmentServiceMock) ListRemovedHistory(ctx context.Context, actor models.Actor, id int64) ([]models.EnrollmentDetail, error) {
	m.record("ListRemovedHistory", actor, id)
	return m.list, m.err
}

type envelopeBody struct {
	Data    json.RawMessage        `json:"data"`
	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestContext(method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

var lecturerClaims = &models.JWTClaims{UserID: "lecturer-1", Role: models.RoleLecturer}

func sampleDetail(id int64) *models.EnrollmentDetail {
	return &models.EnrollmentDetail{Enrollment: models.Enrollment{ID: id, StudentID: 5, CourseID: 10}, StudentCode: "SE1", CourseCode: "SWP391"}
}

func TestEnrollmentHandlerCreate(t *testing.T) {
	mockSvc := &enrollmentServiceMock{detail: sampleDetail(1)}
	handler := NewEnrollmentHandler(mockSvc)

	payload, _ := json.Marshal(service.EnrollRequest{StudentID: 5, CourseID: 10})
	c, w := newTestContext(http.MethodPost, "/enrollments", payload, lecturerClaims)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"Enroll"}, mockSvc.calls)
	assert.Equal(t, int64(5), mockSvc.enroll.StudentID)
	assert.Equal(t, models.RoleLecturer, mockSvc.actor.Role)
	assert.Equal(t, "student enrolled", decodeEnvelope(t, w).Message)
}

func TestEnrollmentHandlerCreateDuplicate(t *testing.T) {
	mockSvc := &enrollmentServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "student already enrolled in course")}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/enrollments", []byte(`{"student_id":5,"course_id":10}`), lecturerClaims)
	handler.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeEnvelope(t, w)
	require.NotNil(t, body.Error)
	assert.Equal(t, "CONFLICT", body.Error.Code)
	assert.Equal(t, "student already enrolled in course", body.Error.Message)
}

func TestEnrollmentHandlerCreateInvalidBody(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/enrollments", []byte(`{"student_id":`), lecturerClaims)
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.calls)
}

func TestEnrollmentHandlerRequiresClaims(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/enrollments/1", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.Get(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, mockSvc.calls)
}

func TestEnrollmentHandlerGetRejectsBadID(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	for _, raw := range []string{"abc", "0", "-3"} {
		c, w := newTestContext(http.MethodGet, "/enrollments/"+raw, nil, lecturerClaims)
		c.Params = gin.Params{{Key: "id", Value: raw}}
		handler.Get(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}
	assert.Empty(t, mockSvc.calls)
}

func TestEnrollmentHandlerListDispatchesOnFilter(t *testing.T) {
	cases := map[string]string{
		"/enrollments?courseId=10": "ListByCourse",
		"/enrollments?studentId=5": "ListByStudent",
		"/enrollments?projectId=7": "ListActiveMembers",
	}
	for target, expected := range cases {
		mockSvc := &enrollmentServiceMock{list: []models.EnrollmentDetail{*sampleDetail(1), *sampleDetail(2)}}
		handler := NewEnrollmentHandler(mockSvc)

		c, w := newTestContext(http.MethodGet, target, nil, lecturerClaims)
		handler.List(c)

		require.Equal(t, http.StatusOK, w.Code, target)
		assert.Equal(t, []string{expected}, mockSvc.calls, target)
		assert.EqualValues(t, 2, decodeEnvelope(t, w).Meta["count"], target)
	}
}

func TestEnrollmentHandlerListRequiresExactlyOneFilter(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	for _, target := range []string{"/enrollments", "/enrollments?courseId=1&studentId=2"} {
		c, w := newTestContext(http.MethodGet, target, nil, lecturerClaims)
		handler.List(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
	assert.Empty(t, mockSvc.calls)
}

func TestEnrollmentHandlerLookup(t *testing.T) {
	mockSvc := &enrollmentServiceMock{lookup: 42}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/enrollments/lookup?studentId=5&courseId=10", nil, lecturerClaims)
	handler.Lookup(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enrollment_id":42}`, string(decodeEnvelope(t, w).Data))

	mockSvc.err = appErrors.Clone(appErrors.ErrNotFound, "active enrollment not found")
	c, w = newTestContext(http.MethodGet, "/enrollments/lookup?studentId=5&courseId=10", nil, lecturerClaims)
	handler.Lookup(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrollmentHandlerAssignProject(t *testing.T) {
	mockSvc := &enrollmentServiceMock{detail: sampleDetail(3)}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPut, "/enrollments/3/project", []byte(`{"project_id":7,"role_in_project":"leader","group_number":1}`), lecturerClaims)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.AssignProject(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), mockSvc.lastID)
	assert.Equal(t, int64(7), mockSvc.assign.ProjectID)
	require.NotNil(t, mockSvc.assign.RoleInProject)
	assert.Equal(t, "leader", *mockSvc.assign.RoleInProject)
}

func TestEnrollmentHandlerUpdateAssignmentPartial(t *testing.T) {
	mockSvc := &enrollmentServiceMock{detail: sampleDetail(3)}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPut, "/enrollments/3", []byte(`{"group_number":2}`), lecturerClaims)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.UpdateAssignment(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mockSvc.update.ProjectID)
	assert.Nil(t, mockSvc.update.RoleInProject)
	require.NotNil(t, mockSvc.update.GroupNumber)
	assert.Equal(t, 2, *mockSvc.update.GroupNumber)
}

func TestEnrollmentHandlerDelete(t *testing.T) {
	cases := map[string]string{
		"/enrollments/3":                 "RemoveFromCourse",
		"/enrollments/3?permanent=false": "RemoveFromCourse",
		"/enrollments/3?permanent=true":  "PermanentlyDelete",
	}
	for target, expected := range cases {
		mockSvc := &enrollmentServiceMock{}
		handler := NewEnrollmentHandler(mockSvc)

		c, w := newTestContext(http.MethodDelete, target, nil, lecturerClaims)
		c.Params = gin.Params{{Key: "id", Value: "3"}}
		handler.Delete(c)

		require.Equal(t, http.StatusOK, w.Code, target)
		assert.Equal(t, []string{expected}, mockSvc.calls, target)
	}

	c, w := newTestContext(http.MethodDelete, "/enrollments/3?permanent=maybe", nil, lecturerClaims)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	NewEnrollmentHandler(&enrollmentServiceMock{}).Delete(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerTransitions(t *testing.T) {
	mockSvc := &enrollmentServiceMock{detail: sampleDetail(3)}
	handler := NewEnrollmentHandler(mockSvc)

	steps := []struct {
		call    func(*gin.Context)
		name    string
		message string
	}{
		{handler.RemoveFromProject, "RemoveFromProject", "removed from project"},
		{handler.RestoreToProject, "RestoreToProject", "restored to project"},
		{handler.Restore, "RestoreEnrollment", "enrollment restored"},
	}
	for _, step := range steps {
		c, w := newTestContext(http.MethodPost, "/enrollments/3/x", nil, lecturerClaims)
		c.Params = gin.Params{{Key: "id", Value: "3"}}
		step.call(c)

		require.Equal(t, http.StatusOK, w.Code, step.name)
		assert.Equal(t, step.name, mockSvc.calls[len(mockSvc.calls)-1])
		assert.Equal(t, step.message, decodeEnvelope(t, w).Message)
	}
}

func TestEnrollmentHandlerTransitionConflict(t *testing.T) {
	mockSvc := &enrollmentServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "enrollment is not removed from project")}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/enrollments/3/restore-to-project", nil, lecturerClaims)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.RestoreToProject(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "enrollment is not removed from project", decodeEnvelope(t, w).Error.Message)
}

func TestEnrollmentHandlerHistory(t *testing.T) {
	mockSvc := &enrollmentServiceMock{list: []models.EnrollmentDetail{*sampleDetail(4)}}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/enrollments/projects/7/history", nil, lecturerClaims)
	c.Params = gin.Params{{Key: "projectId", Value: "7"}}
	handler.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"ListRemovedHistory"}, mockSvc.calls)
	assert.Equal(t, int64(7), mockSvc.lastID)
}

func TestEnrollmentHandlerInternalErrorHidesCause(t *testing.T) {
	mockSvc := &enrollmentServiceMock{err: appErrors.Internal(assert.AnError, "failed to load enrollment")}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/enrollments/3", nil, lecturerClaims)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.Get(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	assert.Len(t, c.Errors, 1)
}

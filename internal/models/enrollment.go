package models

import "time"

// Enrollment binds one student to one course and, optionally, to one project of that course.
// DeletedAt marks course membership inactive; RemovedFromProjectAt marks project membership
// inactive while ProjectID, RoleInProject and GroupNumber are kept as history.
type Enrollment struct {
	ID                   int64      `db:"id" json:"enrollment_id"`
	StudentID            int64      `db:"student_id" json:"student_id"`
	CourseID             int64      `db:"course_id" json:"course_id"`
	ProjectID            *int64     `db:"project_id" json:"project_id"`
	RoleInProject        *string    `db:"role_in_project" json:"role_in_project"`
	GroupNumber          *int       `db:"group_number" json:"group_number"`
	EnrolledAt           time.Time  `db:"enrolled_at" json:"enrolled_at"`
	DeletedAt            *time.Time `db:"deleted_at" json:"deleted_at"`
	RemovedFromProjectAt *time.Time `db:"removed_from_project_at" json:"removed_from_project_at"`
}

// ActiveInCourse reports whether the enrollment has not been soft-deleted.
func (e *Enrollment) ActiveInCourse() bool {
	return e.DeletedAt == nil
}

// HasProject reports whether a project was ever assigned, including removed ones.
func (e *Enrollment) HasProject() bool {
	return e.ProjectID != nil
}

// ActiveInProject reports whether the enrollment counts as a current project member.
func (e *Enrollment) ActiveInProject() bool {
	return e.ProjectID != nil && e.RemovedFromProjectAt == nil && e.DeletedAt == nil
}

// EnrollmentDetail enriches Enrollment with student, course and project labels.
type EnrollmentDetail struct {
	Enrollment
	StudentCode string  `db:"student_code" json:"student_code"`
	StudentName string  `db:"student_name" json:"student_name"`
	CourseCode  string  `db:"course_code" json:"course_code"`
	CourseName  string  `db:"course_name" json:"course_name"`
	ProjectCode *string `db:"project_code" json:"project_code"`
	ProjectName *string `db:"project_name" json:"project_name"`
}

package models

import "time"

// Project is a student group that belongs to exactly one course.
type Project struct {
	ID        int64      `db:"id" json:"project_id"`
	Code      string     `db:"project_code" json:"project_code"`
	Name      string     `db:"project_name" json:"project_name"`
	CourseID  int64      `db:"course_id" json:"course_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// ProjectDetail adds course labels and the number of active members.
type ProjectDetail struct {
	Project
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseName  string `db:"course_name" json:"course_name"`
	MemberCount int64  `db:"-" json:"member_count"`
}

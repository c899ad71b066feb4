package models

import "time"

// Course is an offering students enroll into.
type Course struct {
	ID        int64     `db:"id" json:"course_id"`
	Code      string    `db:"course_code" json:"course_code"`
	Name      string    `db:"course_name" json:"course_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

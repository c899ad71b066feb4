package models

import "time"

// Student represents a learner; UserID links the record to an authenticated account.
type Student struct {
	ID        int64     `db:"id" json:"student_id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Code      string    `db:"student_code" json:"student_code"`
	FullName  string    `db:"full_name" json:"full_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}


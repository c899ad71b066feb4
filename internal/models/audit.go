package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions recorded for enrollment and project transitions.
const (
	AuditActionEnroll            = "ENROLLMENT_CREATE"
	AuditActionAssignProject     = "ENROLLMENT_ASSIGN_PROJECT"
	AuditActionUpdateAssignment  = "ENROLLMENT_UPDATE_ASSIGNMENT"
	AuditActionRemoveFromCourse  = "ENROLLMENT_REMOVE_FROM_COURSE"
	AuditActionRestoreEnrollment = "ENROLLMENT_RESTORE"
	AuditActionPurgeEnrollment   = "ENROLLMENT_PURGE"
	AuditActionRemoveFromProject = "ENROLLMENT_REMOVE_FROM_PROJECT"
	AuditActionRestoreToProject  = "ENROLLMENT_RESTORE_TO_PROJECT"
	AuditActionProjectDelete     = "PROJECT_DELETE"
	AuditActionProjectPurge      = "PROJECT_PURGE"
	AuditActionProjectMoveCourse = "PROJECT_CHANGE_COURSE"
	AuditActionProjectRestore    = "PROJECT_RESTORE"
)

// Audit resources.
const (
	AuditResourceEnrollment = "course_enrollment"
	AuditResourceProject    = "project"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	UserID     *string        `db:"user_id" json:"user_id,omitempty"`
	ActorRole  UserRole       `db:"actor_role" json:"actor_role"`
	Action     string         `db:"action" json:"action"`
	Resource   string         `db:"resource" json:"resource"`
	ResourceID *string        `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  types.JSONText `db:"new_values" json:"new_values,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

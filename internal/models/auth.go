package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleLecturer UserRole = "LECTURER"
	RoleStudent  UserRole = "STUDENT"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor is the caller on whose behalf a service operation runs.
type Actor struct {
	UserID string
	Role   UserRole
}

// ActorFromClaims converts validated token claims into an Actor.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

// CanManage reports whether the actor may mutate enrollments and projects.
func (a Actor) CanManage() bool {
	return a.Role == RoleAdmin || a.Role == RoleLecturer
}

// IsStudent reports whether reads must be restricted to the actor's own records.
func (a Actor) IsStudent() bool {
	return a.Role == RoleStudent
}

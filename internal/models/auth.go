package models

import "github.com/golang-jwt/jwt/v5"

// User roles carried in access-token claims.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// JWTClaims is the access-token payload issued by the main platform. This
// service only validates tokens, it never issues them.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

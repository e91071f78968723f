package models

import "github.com/golang-jwt/jwt/v5"

// Roles recognised in access tokens.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// UserClaims are the claims carried by access tokens issued by the identity
// service. The ledger verifies them but never issues tokens.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

func (c *UserClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

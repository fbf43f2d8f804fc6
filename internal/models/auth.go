package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the access-token claims required by the API middleware.
// Token issuance lives in the identity service; this API only verifies.
type JWTClaims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the bearer token payload identifying a ledger caller.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

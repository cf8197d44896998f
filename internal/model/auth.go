package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are JWT claims carrying a verified user identity
type UserClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for issuing a user token
type LoginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

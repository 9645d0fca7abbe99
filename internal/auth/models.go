package auth

import "github.com/golang-jwt/jwt/v5"

// Claims identify the climber a tour is recorded for. Identity is issued
// upstream; this service only verifies it.
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type VerifyResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

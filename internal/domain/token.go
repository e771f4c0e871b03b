package domain

import "time"

// TokenClaims represents the verified claims of a hosted-auth access token
type TokenClaims struct {
	UserID        string `json:"sub"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	Exp           int64  `json:"exp"`
	Iat           int64  `json:"iat"`
}

// TokenPair is what the hosted auth provider hands back on sign-in
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// IsExpired checks if the token is expired
func (tc TokenClaims) IsExpired() bool {
	return time.Now().Unix() > tc.Exp
}

// TTL returns how long the token stays valid, zero once expired.
func (tc TokenClaims) TTL() time.Duration {
	ttl := time.Until(time.Unix(tc.Exp, 0))
	if ttl < 0 {
		return 0
	}
	return ttl
}

// User builds the caller identity carried by the claims.
func (tc TokenClaims) User() User {
	return User{ID: tc.UserID, Email: tc.Email, IsEmailVerified: tc.EmailVerified}
}

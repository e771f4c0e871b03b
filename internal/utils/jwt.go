package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
)

const defaultLeeway = 30 * time.Second

// TokenVerifier validates access tokens issued by the hosted auth provider.
// Tokens are checked against a shared HS256 secret or, when a JWKS URL is
// configured, against the provider's published signing keys.
type TokenVerifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewTokenVerifier creates a verifier. jwksURL takes precedence over secret.
func NewTokenVerifier(secret, jwksURL, audience string) (*TokenVerifier, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(defaultLeeway),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	if jwksURL != "" {
		provider, err := keyfunc.NewDefault([]string{jwksURL})
		if err != nil {
			return nil, fmt.Errorf("failed to init JWKS keyfunc: %w", err)
		}
		opts = append(opts, jwt.WithValidMethods([]string{
			jwt.SigningMethodRS256.Name,
			jwt.SigningMethodES256.Name,
		}))
		return &TokenVerifier{keyfunc: provider.Keyfunc, parser: jwt.NewParser(opts...)}, nil
	}

	if secret == "" {
		return nil, errors.New("either a JWT secret or a JWKS URL is required")
	}

	key := []byte(secret)
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	return &TokenVerifier{
		keyfunc: func(*jwt.Token) (interface{}, error) { return key, nil },
		parser:  jwt.NewParser(opts...),
	}, nil
}

// ValidateToken validates a JWT token and returns claims
func (v *TokenVerifier) ValidateToken(tokenString string) (*domain.TokenClaims, error) {
	token, err := v.parser.Parse(tokenString, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token missing sub")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("invalid exp in token")
	}

	tokenClaims := &domain.TokenClaims{
		UserID:        sub,
		Email:         readString(claims, "email"),
		Role:          readString(claims, "role"),
		EmailVerified: readEmailVerified(claims),
		Exp:           exp.Unix(),
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		tokenClaims.Iat = iat.Unix()
	}

	return tokenClaims, nil
}

func readString(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}

// readEmailVerified looks for the flag at the top level and in
// user_metadata. The provider only issues sessions to confirmed addresses
// unless told otherwise, so an absent flag counts as verified.
func readEmailVerified(claims jwt.MapClaims) bool {
	if v, ok := claims["email_verified"].(bool); ok {
		return v
	}
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		if v, ok := meta["email_verified"].(bool); ok {
			return v
		}
	}
	return true
}

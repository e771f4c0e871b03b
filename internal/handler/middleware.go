package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/service"
	"github.com/prperemyshlev/postoptima-api/internal/utils"
)

// Context keys set by the auth middlewares
const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxClaims = "claims"
	ctxToken  = "token"
)

// LoginPath is where AuthGuard sends browsers without a usable session
const LoginPath = "/login"

// AuthMiddleware validates the bearer token and adds user info to context
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := utils.ExtractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authorization header is required",
			})
			return
		}

		claims, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or expired token",
			})
			return
		}

		setClaims(c, token, claims)
		c.Next()
	}
}

// AuthGuard protects page data. It requires a valid token with a verified
// email; browsers asking for HTML are redirected to the login page instead
// of receiving 401.
func AuthGuard(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := utils.ExtractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			denyPage(c, "Authorization header is required")
			return
		}

		claims, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			denyPage(c, "Invalid or expired token")
			return
		}

		if !claims.EmailVerified {
			denyPage(c, "Email address is not verified")
			return
		}

		setClaims(c, token, claims)
		c.Next()
	}
}

func denyPage(c *gin.Context, message string) {
	if wantsHTML(c) {
		c.Redirect(http.StatusFound, LoginPath)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error:   "Unauthorized",
		Message: message,
	})
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

func setClaims(c *gin.Context, token string, claims *domain.TokenClaims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxEmail, claims.Email)
	c.Set(ctxClaims, claims)
	c.Set(ctxToken, token)
}

// claimsFrom returns the claims stored by AuthMiddleware or AuthGuard
func claimsFrom(c *gin.Context) (*domain.TokenClaims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.TokenClaims)
	return claims, ok
}

package service

import (
	"context"

	"github.com/prperemyshlev/postoptima-api/internal/billing"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
)

// AuthService resolves and revokes hosted-auth access tokens
type AuthService interface {
	Authenticate(ctx context.Context, token string) (*domain.TokenClaims, error)
	Logout(ctx context.Context, token string, claims *domain.TokenClaims) error
}

// AnalysisService scores and rewrites posts
type AnalysisService interface {
	Analyze(ctx context.Context, token string, req *dto.AnalyzeRequest) (*AnalysisOutcome, error)
}

// CheckoutService starts subscription checkouts
type CheckoutService interface {
	CreateCheckout(ctx context.Context, claims *domain.TokenClaims, req *dto.CheckoutRequest, origin string) (*dto.CheckoutResponse, error)
}

// WebhookService applies verified billing events to profiles
type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) error
}

// DashboardService assembles the data behind the signed-in pages
type DashboardService interface {
	Dashboard(ctx context.Context, user domain.User) (*dto.DashboardResponse, error)
	Profile(ctx context.Context, user domain.User) (*dto.ProfileResponse, error)
	Analytics(ctx context.Context, user domain.User) (*dto.AnalyticsResponse, error)
	LatestResult(ctx context.Context, user domain.User) (*dto.AnalyzeResponse, error)
}

// LoginRelayService hands a web session over to the browser extension
type LoginRelayService interface {
	Start(ctx context.Context) (*dto.LoginAttemptResponse, error)
	Complete(ctx context.Context, attemptID, token, refreshToken string, claims *domain.TokenClaims) error
	Poll(ctx context.Context, attemptID string) (*dto.LoginAttemptResponse, error)
}

// ChatCompleter sends one prompt to the language model
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// BillingProvider is the subset of the Stripe client the services use
type BillingProvider interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (string, error)
	ParseEvent(payload []byte, signature string) (*billing.Event, error)
}

// LatestResultStore keeps the most recent result per user for one read
type LatestResultStore interface {
	Save(ctx context.Context, userID string, result *dto.AnalyzeResponse) error
	Take(ctx context.Context, userID string) (*dto.AnalyzeResponse, error)
}

// TokenVerifier validates the signature and claims of an access token
type TokenVerifier interface {
	ValidateToken(token string) (*domain.TokenClaims, error)
}

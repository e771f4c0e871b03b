package handler

import (
	"context"

	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*domain.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenClaims), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string, claims *domain.TokenClaims) error {
	args := m.Called(ctx, token, claims)
	return args.Error(0)
}

type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Analyze(ctx context.Context, token string, req *dto.AnalyzeRequest) (*service.AnalysisOutcome, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnalysisOutcome), args.Error(1)
}

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) CreateCheckout(ctx context.Context, claims *domain.TokenClaims, req *dto.CheckoutRequest, origin string) (*dto.CheckoutResponse, error) {
	args := m.Called(ctx, claims, req, origin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CheckoutResponse), args.Error(1)
}

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Dashboard(ctx context.Context, user domain.User) (*dto.DashboardResponse, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DashboardResponse), args.Error(1)
}

func (m *MockDashboardService) Profile(ctx context.Context, user domain.User) (*dto.ProfileResponse, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ProfileResponse), args.Error(1)
}

func (m *MockDashboardService) Analytics(ctx context.Context, user domain.User) (*dto.AnalyticsResponse, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AnalyticsResponse), args.Error(1)
}

func (m *MockDashboardService) LatestResult(ctx context.Context, user domain.User) (*dto.AnalyzeResponse, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AnalyzeResponse), args.Error(1)
}

type MockLoginRelayService struct {
	mock.Mock
}

func (m *MockLoginRelayService) Start(ctx context.Context) (*dto.LoginAttemptResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LoginAttemptResponse), args.Error(1)
}

func (m *MockLoginRelayService) Complete(ctx context.Context, attemptID, token, refreshToken string, claims *domain.TokenClaims) error {
	args := m.Called(ctx, attemptID, token, refreshToken, claims)
	return args.Error(0)
}

func (m *MockLoginRelayService) Poll(ctx context.Context, attemptID string) (*dto.LoginAttemptResponse, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LoginAttemptResponse), args.Error(1)
}

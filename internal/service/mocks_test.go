package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prperemyshlev/postoptima-api/internal/billing"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/pkg/database"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

func newTestRedis(t *testing.T) (*database.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return &database.Redis{Client: client}, mr
}

func testClaims() *domain.TokenClaims {
	return &domain.TokenClaims{
		UserID:        "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Email:         "owner@example.com",
		Role:          "authenticated",
		EmailVerified: true,
		Exp:           time.Now().Add(time.Hour).Unix(),
	}
}

type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

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

type MockAnalysisRepository struct {
	mock.Mock
}

func (m *MockAnalysisRepository) Create(ctx context.Context, owner domain.User, analysis *domain.Analysis) error {
	args := m.Called(ctx, owner, analysis)
	return args.Error(0)
}

func (m *MockAnalysisRepository) ListByUser(ctx context.Context, owner domain.User, limit int) ([]*domain.Analysis, error) {
	args := m.Called(ctx, owner, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Analysis), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, owner domain.User) (*domain.Profile, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepository) SetStripeCustomer(ctx context.Context, userID, customerID string) error {
	args := m.Called(ctx, userID, customerID)
	return args.Error(0)
}

func (m *MockProfileRepository) UpdatePlanByStripeCustomer(ctx context.Context, customerID string, plan domain.Plan, subscribed bool) error {
	args := m.Called(ctx, customerID, plan, subscribed)
	return args.Error(0)
}

type MockLatestResultStore struct {
	mock.Mock
}

func (m *MockLatestResultStore) Save(ctx context.Context, userID string, result *dto.AnalyzeResponse) error {
	args := m.Called(ctx, userID, result)
	return args.Error(0)
}

func (m *MockLatestResultStore) Take(ctx context.Context, userID string) (*dto.AnalyzeResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AnalyzeResponse), args.Error(1)
}

type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	args := m.Called(ctx, email, userID)
	return args.String(0), args.Error(1)
}

func (m *MockBillingProvider) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *MockBillingProvider) ParseEvent(payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) ValidateToken(token string) (*domain.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenClaims), args.Error(1)
}

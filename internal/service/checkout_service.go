package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/prperemyshlev/postoptima-api/internal/billing"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/repository"
	"github.com/prperemyshlev/postoptima-api/internal/utils"
	"go.uber.org/zap"
)

// checkoutService implements CheckoutService interface
type checkoutService struct {
	billing     BillingProvider
	profiles    repository.ProfileRepository
	priceID     string
	frontendURL string
	logger      *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	billing BillingProvider,
	profiles repository.ProfileRepository,
	priceID, frontendURL string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		billing:     billing,
		profiles:    profiles,
		priceID:     priceID,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// CreateCheckout registers a new billing customer for the caller and opens a
// subscription checkout. Every call creates a fresh customer.
func (s *checkoutService) CreateCheckout(ctx context.Context, claims *domain.TokenClaims, req *dto.CheckoutRequest, origin string) (*dto.CheckoutResponse, error) {
	if claims == nil {
		return nil, fmt.Errorf("%w: missing caller", ErrUnauthorized)
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = claims.UserID
	}
	if userID != claims.UserID {
		return nil, fmt.Errorf("%w: checkout for another user", ErrForbidden)
	}

	email := utils.SanitizeEmail(req.Email)
	if email == "" {
		email = utils.SanitizeEmail(claims.Email)
	}
	if email != "" && !utils.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}

	customerID, err := s.billing.CreateCustomer(ctx, email, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if err := s.profiles.SetStripeCustomer(ctx, userID, customerID); err != nil {
		return nil, fmt.Errorf("failed to store billing customer: %w", err)
	}

	base := strings.TrimRight(origin, "/")
	if base == "" {
		base = strings.TrimRight(s.frontendURL, "/")
	}

	url, err := s.billing.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID: customerID,
		PriceID:    s.priceID,
		SuccessURL: base + "/dashboard?checkout=success",
		CancelURL:  base + "/dashboard?checkout=cancel",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.logger.Info("Checkout session created",
		zap.String("user_id", userID),
		zap.String("customer_id", customerID),
	)

	return &dto.CheckoutResponse{URL: url}, nil
}

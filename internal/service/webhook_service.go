package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prperemyshlev/postoptima-api/internal/billing"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/repository"
	"go.uber.org/zap"
)

// webhookService implements WebhookService interface
type webhookService struct {
	billing  BillingProvider
	profiles repository.ProfileRepository
	logger   *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(billing BillingProvider, profiles repository.ProfileRepository, logger *zap.Logger) WebhookService {
	return &webhookService{
		billing:  billing,
		profiles: profiles,
		logger:   logger,
	}
}

// HandleEvent verifies a raw webhook delivery and applies it. Events for
// customers without a profile and unknown event types are acknowledged
// without changes.
func (s *webhookService) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.billing.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			return fmt.Errorf("%w: %v", ErrSignature, err)
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var plan domain.Plan
	var subscribed bool
	switch event.Type {
	case billing.EventCheckoutCompleted:
		plan, subscribed = domain.PlanPro, true
	case billing.EventSubscriptionDeleted:
		plan, subscribed = domain.PlanFree, false
	default:
		s.logger.Info("Ignoring billing event",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
		)
		return nil
	}

	if event.CustomerID == "" {
		s.logger.Warn("Billing event without customer", zap.String("event_id", event.ID))
		return nil
	}

	err = s.profiles.UpdatePlanByStripeCustomer(ctx, event.CustomerID, plan, subscribed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("No profile for billing customer",
				zap.String("event_id", event.ID),
				zap.String("customer_id", event.CustomerID),
			)
			return nil
		}
		return fmt.Errorf("failed to apply billing event %s: %w", event.ID, err)
	}

	s.logger.Info("Plan updated",
		zap.String("event_id", event.ID),
		zap.String("customer_id", event.CustomerID),
		zap.String("plan", string(plan)),
	)
	return nil
}

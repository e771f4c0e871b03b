package repository

import (
	"context"

	"github.com/prperemyshlev/postoptima-api/internal/domain"
)

// AnalysisRepository reads and writes analyses on behalf of their owner.
// Every call runs through a handle scoped to owner, so row-level security
// decides what is visible.
type AnalysisRepository interface {
	Create(ctx context.Context, owner domain.User, analysis *domain.Analysis) error
	ListByUser(ctx context.Context, owner domain.User, limit int) ([]*domain.Analysis, error)
}

// ProfileRepository defines methods for profile operations. GetByID is
// scoped to the owner; the billing methods run with service privileges.
type ProfileRepository interface {
	GetByID(ctx context.Context, owner domain.User) (*domain.Profile, error)
	SetStripeCustomer(ctx context.Context, userID, customerID string) error
	UpdatePlanByStripeCustomer(ctx context.Context, customerID string, plan domain.Plan, subscribed bool) error
}

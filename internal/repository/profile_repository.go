package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/pkg/database"
)

// profileRepository implements ProfileRepository interface
type profileRepository struct {
	db *database.Postgres
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.Postgres) ProfileRepository {
	return &profileRepository{db: db}
}

// GetByID retrieves the owner's profile
func (r *profileRepository) GetByID(ctx context.Context, owner domain.User) (*domain.Profile, error) {
	query := `
		SELECT id, plan, is_subscribed, stripe_customer, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	profile := &domain.Profile{}
	err := r.db.Scoped(scopeFor(owner)).Do(ctx, func(q database.Querier) error {
		var plan string
		var customer sql.NullString

		err := q.QueryRowContext(ctx, query, owner.ID).Scan(
			&profile.ID,
			&plan,
			&profile.IsSubscribed,
			&customer,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("profile with id %s not found: %w", owner.ID, ErrNotFound)
			}
			return mapPQError(err, "failed to get profile")
		}

		profile.Plan = domain.Plan(plan)
		if customer.Valid {
			profile.StripeCustomer = &customer.String
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// SetStripeCustomer records the billing customer of a user. The profile row
// is created when the signup trigger has not produced one yet.
func (r *profileRepository) SetStripeCustomer(ctx context.Context, userID, customerID string) error {
	query := `
		INSERT INTO profiles (id, stripe_customer)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET stripe_customer = EXCLUDED.stripe_customer, updated_at = NOW()
	`

	return r.db.Admin().Do(ctx, func(q database.Querier) error {
		if _, err := q.ExecContext(ctx, query, userID, customerID); err != nil {
			return mapPQError(err, "failed to set stripe customer")
		}
		return nil
	})
}

// UpdatePlanByStripeCustomer flips plan and subscription flag together
func (r *profileRepository) UpdatePlanByStripeCustomer(ctx context.Context, customerID string, plan domain.Plan, subscribed bool) error {
	query := `
		UPDATE profiles
		SET plan = $2, is_subscribed = $3, updated_at = NOW()
		WHERE stripe_customer = $1
	`

	return r.db.Admin().Do(ctx, func(q database.Querier) error {
		result, err := q.ExecContext(ctx, query, customerID, string(plan), subscribed)
		if err != nil {
			return mapPQError(err, "failed to update plan")
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return fmt.Errorf("profile with stripe customer %s not found: %w", customerID, ErrNotFound)
		}
		return nil
	})
}

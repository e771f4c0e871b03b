package domain

import "time"

// User is the authenticated identity as reported by the hosted auth provider
type User struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

// Plan is the billing tier of a profile
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Profile represents a row of the profiles table
type Profile struct {
	ID             string    `json:"id" db:"id"`
	Plan           Plan      `json:"plan" db:"plan"`
	IsSubscribed   bool      `json:"is_subscribed" db:"is_subscribed"`
	StripeCustomer *string   `json:"stripe_customer,omitempty" db:"stripe_customer"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultProfile is used for users whose profile row has not been created yet.
func DefaultProfile(userID string) *Profile {
	return &Profile{ID: userID, Plan: PlanFree}
}

// IsPro reports whether the paid features are unlocked.
func (p *Profile) IsPro() bool {
	return p != nil && p.Plan == PlanPro && p.IsSubscribed
}

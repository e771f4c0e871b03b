package dto

// AnalyzeRequest represents a post analysis request
type AnalyzeRequest struct {
	Platform    string `json:"platform"`
	PostContent string `json:"postContent"`
}

// CheckoutRequest represents a checkout request. Both fields fall back to
// the caller's token when empty.
type CheckoutRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// CompleteLoginRequest hands the web session over to a pending extension login
type CompleteLoginRequest struct {
	RefreshToken string `json:"refresh_token"`
}

package dto

import "time"

// AnalyzeResponse is the normalized model result returned to the caller
type AnalyzeResponse struct {
	Original             string   `json:"original"`
	OptimizedContent     string   `json:"optimized_content"`
	AlgorithmScore       int      `json:"algorithm_score"`
	EngagementPrediction int      `json:"engagement_prediction"`
	Suggestions          []string `json:"suggestions"`
}

// CheckoutResponse carries the hosted checkout URL
type CheckoutResponse struct {
	URL string `json:"url"`
}

// WebhookResponse acknowledges a billing event
type WebhookResponse struct {
	Received bool `json:"received"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// ProfileResponse represents the caller's billing profile
type ProfileResponse struct {
	Plan         string `json:"plan"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// AnalysisItem is one stored analysis in history views
type AnalysisItem struct {
	ID                   string    `json:"id"`
	Platform             string    `json:"platform"`
	OriginalContent      string    `json:"original_content"`
	OptimizedContent     string    `json:"optimized_content"`
	Suggestions          []string  `json:"suggestions"`
	AlgorithmScore       int       `json:"algorithm_score"`
	EngagementPrediction int       `json:"engagement_prediction"`
	CreatedAt            time.Time `json:"created_at"`
}

// DashboardResponse is the data behind the dashboard page
type DashboardResponse struct {
	User        UserInfo        `json:"user"`
	Profile     ProfileResponse `json:"profile"`
	ShowAds     bool            `json:"show_ads"`
	ShowUpgrade bool            `json:"show_upgrade"`
	History     []AnalysisItem  `json:"history"`
}

// SeriesPoint is one point of the analytics chart
type SeriesPoint struct {
	Date       string `json:"date"`
	Engagement int    `json:"engagement"`
	Score      int    `json:"score"`
}

// AnalyticsResponse is the data behind the analytics page
type AnalyticsResponse struct {
	Series   []SeriesPoint  `json:"series"`
	Analyses []AnalysisItem `json:"analyses"`
}

// LoginAttemptResponse describes an extension login attempt
type LoginAttemptResponse struct {
	AttemptID    string    `json:"attempt_id"`
	State        string    `json:"state"`
	LoginURL     string    `json:"login_url,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	Token        string    `json:"token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         *UserInfo `json:"user,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Raw     *string     `json:"raw,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

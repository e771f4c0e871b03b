package domain

import (
	"fmt"
	"strings"
	"time"
)

// Platform is a social network a post is optimized for
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

var platformAliases = map[string]Platform{
	"twitter":   PlatformTwitter,
	"x":         PlatformTwitter,
	"linkedin":  PlatformLinkedIn,
	"instagram": PlatformInstagram,
	"facebook":  PlatformFacebook,
}

// ParsePlatform normalizes user input into a known platform.
func ParsePlatform(s string) (Platform, error) {
	p, ok := platformAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unsupported platform %q", s)
	}
	return p, nil
}

// Analysis represents a row of the analyses table
type Analysis struct {
	ID                   string    `json:"id" db:"id"`
	UserID               string    `json:"user_id" db:"user_id"`
	Platform             Platform  `json:"platform" db:"platform"`
	OriginalContent      string    `json:"original_content" db:"original_content"`
	OptimizedContent     string    `json:"optimized_content" db:"optimized_content"`
	Suggestions          []string  `json:"suggestions" db:"suggestions"`
	AlgorithmScore       int       `json:"algorithm_score" db:"algorithm_score"`
	EngagementPrediction int       `json:"engagement_prediction" db:"engagement_prediction"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

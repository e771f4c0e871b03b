package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/repository"
	"go.uber.org/zap"
)

const seriesDateLayout = "2006-01-02"

// dashboardService implements DashboardService interface
type dashboardService struct {
	analyses repository.AnalysisRepository
	profiles repository.ProfileRepository
	latest   LatestResultStore
	logger   *zap.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	analyses repository.AnalysisRepository,
	profiles repository.ProfileRepository,
	latest LatestResultStore,
	logger *zap.Logger,
) DashboardService {
	return &dashboardService{
		analyses: analyses,
		profiles: profiles,
		latest:   latest,
		logger:   logger,
	}
}

// Dashboard returns the caller's profile and history, newest first
func (s *dashboardService) Dashboard(ctx context.Context, user domain.User) (*dto.DashboardResponse, error) {
	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}

	analyses, err := s.analyses.ListByUser(ctx, user, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	free := profile.Plan != domain.PlanPro
	return &dto.DashboardResponse{
		User: dto.UserInfo{
			ID:            user.ID,
			Email:         user.Email,
			EmailVerified: user.IsEmailVerified,
		},
		Profile:     toProfileResponse(profile),
		ShowAds:     free,
		ShowUpgrade: free,
		History:     toAnalysisItems(analyses),
	}, nil
}

// Profile returns the caller's plan
func (s *dashboardService) Profile(ctx context.Context, user domain.User) (*dto.ProfileResponse, error) {
	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}

	resp := toProfileResponse(profile)
	return &resp, nil
}

// Analytics returns the chart series in chronological order next to the
// history it was built from.
func (s *dashboardService) Analytics(ctx context.Context, user domain.User) (*dto.AnalyticsResponse, error) {
	analyses, err := s.analyses.ListByUser(ctx, user, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load analyses: %w", err)
	}

	series := make([]dto.SeriesPoint, 0, len(analyses))
	for i := len(analyses) - 1; i >= 0; i-- {
		a := analyses[i]
		series = append(series, dto.SeriesPoint{
			Date:       a.CreatedAt.UTC().Format(seriesDateLayout),
			Engagement: a.EngagementPrediction,
			Score:      a.AlgorithmScore,
		})
	}

	return &dto.AnalyticsResponse{
		Series:   series,
		Analyses: toAnalysisItems(analyses),
	}, nil
}

// LatestResult hands out the most recent analysis result once
func (s *dashboardService) LatestResult(ctx context.Context, user domain.User) (*dto.AnalyzeResponse, error) {
	return s.latest.Take(ctx, user.ID)
}

func (s *dashboardService) profile(ctx context.Context, user domain.User) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("Profile not created yet", zap.String("user_id", user.ID))
			return domain.DefaultProfile(user.ID), nil
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

func toProfileResponse(p *domain.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{Plan: string(p.Plan), IsSubscribed: p.IsSubscribed}
}

func toAnalysisItems(analyses []*domain.Analysis) []dto.AnalysisItem {
	items := make([]dto.AnalysisItem, 0, len(analyses))
	for _, a := range analyses {
		suggestions := a.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}
		items = append(items, dto.AnalysisItem{
			ID:                   a.ID,
			Platform:             string(a.Platform),
			OriginalContent:      a.OriginalContent,
			OptimizedContent:     a.OptimizedContent,
			Suggestions:          suggestions,
			AlgorithmScore:       a.AlgorithmScore,
			EngagementPrediction: a.EngagementPrediction,
			CreatedAt:            a.CreatedAt,
		})
	}
	return items
}

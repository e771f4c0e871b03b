package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/llm"
	"github.com/prperemyshlev/postoptima-api/internal/repository"
	"github.com/prperemyshlev/postoptima-api/pkg/observability"
	"go.uber.org/zap"
)

// AnalysisOutcome is a computed result and whether it reached the store.
type AnalysisOutcome struct {
	Result dto.AnalyzeResponse
	Saved  bool
}

// AnalysisConfig bounds the outbound calls of one analysis
type AnalysisConfig struct {
	Retry        RetryPolicy
	ModelTimeout time.Duration
	WriteTimeout time.Duration
}

// analysisService implements AnalysisService interface
type analysisService struct {
	model    ChatCompleter
	auth     AuthService
	analyses repository.AnalysisRepository
	latest   LatestResultStore
	metrics  *observability.AnalysisMetrics
	cfg      AnalysisConfig
	logger   *zap.Logger
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	model ChatCompleter,
	auth AuthService,
	analyses repository.AnalysisRepository,
	latest LatestResultStore,
	metrics *observability.AnalysisMetrics,
	cfg AnalysisConfig,
	logger *zap.Logger,
) AnalysisService {
	return &analysisService{
		model:    model,
		auth:     auth,
		analyses: analyses,
		latest:   latest,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
	}
}

// Analyze asks the model to score and rewrite a post, then stores the
// result for the caller. The caller is resolved only after the model has
// replied, so an invalid token still costs one completion.
func (s *analysisService) Analyze(ctx context.Context, token string, req *dto.AnalyzeRequest) (*AnalysisOutcome, error) {
	if strings.TrimSpace(req.PostContent) == "" || strings.TrimSpace(req.Platform) == "" {
		return nil, fmt.Errorf("%w: missing content or platform", ErrValidation)
	}

	platform, err := domain.ParsePlatform(req.Platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	reply, err := s.complete(ctx, platform, req.PostContent)
	if err != nil {
		return nil, err
	}

	var fields ReplyFields
	switch extraction := ExtractReply(reply).(type) {
	case Parsed:
		fields = extraction.Fields
	case Unparseable:
		s.metrics.RecordOutcome(ctx, observability.OutcomeMalformed)
		s.logger.Warn("Model reply could not be parsed",
			zap.String("reason", extraction.Reason),
			zap.Int("reply_length", len(extraction.Raw)),
		)
		return nil, &MalformedReplyError{Raw: extraction.Raw, Reason: extraction.Reason}
	}

	claims, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		s.metrics.RecordOutcome(ctx, observability.OutcomeUnauthorized)
		return nil, err
	}
	user := claims.User()

	outcome := &AnalysisOutcome{
		Result: dto.AnalyzeResponse{
			Original:             req.PostContent,
			OptimizedContent:     fields.OptimizedVersion,
			AlgorithmScore:       fields.AlgorithmScore,
			EngagementPrediction: fields.EngagementPrediction,
			Suggestions:          fields.Suggestions,
		},
	}

	analysis := &domain.Analysis{
		Platform:             platform,
		OriginalContent:      req.PostContent,
		OptimizedContent:     fields.OptimizedVersion,
		Suggestions:          fields.Suggestions,
		AlgorithmScore:       fields.AlgorithmScore,
		EngagementPrediction: fields.EngagementPrediction,
	}

	if err := s.persist(ctx, user, analysis); err != nil {
		s.metrics.RecordOutcome(ctx, observability.OutcomeUnsaved)
		s.logger.Error("Failed to save analysis",
			zap.String("user_id", user.ID),
			zap.String("platform", string(platform)),
			zap.Error(err),
		)
	} else {
		outcome.Saved = true
		s.metrics.RecordOutcome(ctx, observability.OutcomeSaved)
	}

	if err := s.latest.Save(ctx, user.ID, &outcome.Result); err != nil {
		s.logger.Warn("Failed to store latest result", zap.String("user_id", user.ID), zap.Error(err))
	}

	return outcome, nil
}

func (s *analysisService) complete(ctx context.Context, platform domain.Platform, content string) (string, error) {
	system, user := llm.AnalysisPrompt(platform, content)

	var reply string
	start := time.Now()
	err := s.cfg.Retry.Do(ctx, s.cfg.ModelTimeout, llm.Retryable, func(ctx context.Context) error {
		var err error
		reply, err = s.model.Complete(ctx, system, user)
		return err
	})
	s.metrics.RecordModelLatency(ctx, time.Since(start), err == nil)

	if err != nil {
		if errors.Is(err, ErrTimeout) {
			s.metrics.RecordOutcome(ctx, observability.OutcomeTimeout)
			return "", err
		}
		s.metrics.RecordOutcome(ctx, observability.OutcomeUpstream)
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return reply, nil
}

func (s *analysisService) persist(ctx context.Context, user domain.User, analysis *domain.Analysis) error {
	return s.cfg.Retry.Do(ctx, s.cfg.WriteTimeout, retryableWrite, func(ctx context.Context) error {
		err := s.analyses.Create(ctx, user, analysis)
		if errors.Is(err, repository.ErrDuplicate) {
			// an earlier attempt committed before its reply was lost
			return nil
		}
		return err
	})
}

// retryableWrite treats rejected rows as final.
func retryableWrite(err error) bool {
	return !errors.Is(err, repository.ErrConstraint) &&
		!errors.Is(err, repository.ErrForbidden) &&
		!errors.Is(err, context.Canceled)
}

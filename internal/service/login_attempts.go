package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/pkg/database"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Login attempt states as seen by the extension
const (
	AttemptLoggingIn = "logging-in"
	AttemptLoggedIn  = "logged-in"
)

type loginAttempt struct {
	State        string       `json:"state"`
	Token        string       `json:"token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         *domain.User `json:"user,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// loginRelayService implements LoginRelayService on top of Redis
type loginRelayService struct {
	redis    *database.Redis
	ttl      time.Duration
	loginURL string
	logger   *zap.Logger
}

// NewLoginRelayService creates a new login relay service
func NewLoginRelayService(redis *database.Redis, ttl time.Duration, loginURL string, logger *zap.Logger) LoginRelayService {
	return &loginRelayService{
		redis:    redis,
		ttl:      ttl,
		loginURL: loginURL,
		logger:   logger,
	}
}

func loginAttemptKey(id string) string {
	return "login:attempt:" + id
}

// Start opens a new attempt in the logging-in state
func (s *loginRelayService) Start(ctx context.Context) (*dto.LoginAttemptResponse, error) {
	id := uuid.NewString()
	attempt := loginAttempt{State: AttemptLoggingIn, CreatedAt: time.Now().UTC()}

	payload, err := json.Marshal(attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode login attempt: %w", err)
	}
	if err := s.redis.Client.Set(ctx, loginAttemptKey(id), payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store login attempt: %w", err)
	}

	loginURL, err := s.attemptURL(id)
	if err != nil {
		return nil, err
	}

	return &dto.LoginAttemptResponse{
		AttemptID: id,
		State:     AttemptLoggingIn,
		LoginURL:  loginURL,
		ExpiresIn: int(s.ttl.Seconds()),
	}, nil
}

func (s *loginRelayService) attemptURL(id string) (string, error) {
	u, err := url.Parse(s.loginURL)
	if err != nil {
		return "", fmt.Errorf("invalid login url: %w", err)
	}
	q := u.Query()
	q.Set("attempt", id)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Complete attaches the web session to a pending attempt. The attempt keeps
// its original expiry. Only one of several concurrent completions wins.
func (s *loginRelayService) Complete(ctx context.Context, attemptID, token, refreshToken string, claims *domain.TokenClaims) error {
	key := loginAttemptKey(attemptID)
	user := claims.User()

	err := s.redis.Client.Watch(ctx, func(tx *redis.Tx) error {
		attempt, err := s.load(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		if attempt.State != AttemptLoggingIn {
			return fmt.Errorf("%w: login attempt already completed", ErrValidation)
		}

		attempt.State = AttemptLoggedIn
		attempt.Token = token
		attempt.RefreshToken = refreshToken
		attempt.User = &user

		payload, err := json.Marshal(attempt)
		if err != nil {
			return fmt.Errorf("failed to encode login attempt: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, payload, redis.SetArgs{Mode: "XX", KeepTTL: true})
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: login attempt already completed", ErrValidation)
	case errors.Is(err, redis.Nil):
		return fmt.Errorf("login attempt %s expired: %w", attemptID, ErrNotFound)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return err
	case err != nil:
		return fmt.Errorf("failed to update login attempt: %w", err)
	}

	s.logger.Info("Login attempt completed",
		zap.String("attempt_id", attemptID),
		zap.String("user_id", user.ID),
	)
	return nil
}

// Poll reports the attempt state. A completed attempt is handed out once.
func (s *loginRelayService) Poll(ctx context.Context, attemptID string) (*dto.LoginAttemptResponse, error) {
	attempt, err := s.load(ctx, s.redis.Client, attemptID)
	if err != nil {
		return nil, err
	}

	resp := &dto.LoginAttemptResponse{AttemptID: attemptID, State: attempt.State}
	if attempt.State != AttemptLoggedIn {
		return resp, nil
	}

	deleted, err := s.redis.Client.Del(ctx, loginAttemptKey(attemptID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to consume login attempt: %w", err)
	}
	if deleted == 0 {
		return nil, fmt.Errorf("login attempt %s already consumed: %w", attemptID, ErrNotFound)
	}

	resp.Token = attempt.Token
	resp.RefreshToken = attempt.RefreshToken
	if attempt.User != nil {
		resp.User = &dto.UserInfo{
			ID:            attempt.User.ID,
			Email:         attempt.User.Email,
			EmailVerified: attempt.User.IsEmailVerified,
		}
	}
	return resp, nil
}

func (s *loginRelayService) load(ctx context.Context, rdb redis.StringCmdable, attemptID string) (*loginAttempt, error) {
	if _, err := uuid.Parse(attemptID); err != nil {
		return nil, fmt.Errorf("login attempt %q: %w", attemptID, ErrNotFound)
	}

	payload, err := rdb.Get(ctx, loginAttemptKey(attemptID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("login attempt %s not found: %w", attemptID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read login attempt: %w", err)
	}

	var attempt loginAttempt
	if err := json.Unmarshal(payload, &attempt); err != nil {
		return nil, fmt.Errorf("failed to decode login attempt: %w", err)
	}
	return &attempt, nil
}

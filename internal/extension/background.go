// Package extension is the client side of the browser extension: the
// background task reacting to context-menu selections and login messages,
// and the popup surface.
package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"go.uber.org/zap"
)

// State of the extension
type State string

const (
	LoggedOut State = "logged-out"
	LoggingIn State = "logging-in"
	LoggedIn  State = "logged-in"
)

const (
	// SelectionPlatform is the platform sent for context-menu analyses.
	SelectionPlatform = "twitter"

	NotificationTitle   = "PostOptima Result"
	NetworkErrorMessage = "Network error"
	LoginStateLoggedIn  = "logged-in"
)

// ErrUnknownAttempt is returned for messages about a login attempt the
// background task did not start or already finished.
var ErrUnknownAttempt = errors.New("unknown login attempt")

// Shell is the browser surface the background task drives.
type Shell interface {
	OpenPopup(ctx context.Context) error
	OpenTab(ctx context.Context, url string) (tabID int, err error)
	CloseTab(ctx context.Context, tabID int) error
	Notify(ctx context.Context, title, message string) error
}

type pendingLogin struct {
	tabID     int
	startedAt time.Time
}

// Background handles messages for the extension. Every login attempt is
// tracked separately so two login tabs never overwrite each other.
type Background struct {
	api    Backend
	store  Store
	shell  Shell
	logger *zap.Logger

	mu       sync.Mutex
	attempts map[string]pendingLogin
}

func NewBackground(api Backend, store Store, shell Shell, logger *zap.Logger) *Background {
	return &Background{
		api:      api,
		store:    store,
		shell:    shell,
		logger:   logger,
		attempts: make(map[string]pendingLogin),
	}
}

// State reports LoggedIn when a token is stored, LoggingIn while an attempt
// is pending and LoggedOut otherwise.
func (b *Background) State() State {
	if token, _ := b.token(); token != "" {
		return LoggedIn
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.attempts) > 0 {
		return LoggingIn
	}
	return LoggedOut
}

// PendingAttempts returns the ids of login attempts still waiting.
func (b *Background) PendingAttempts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.attempts))
	for id := range b.attempts {
		ids = append(ids, id)
	}
	return ids
}

// Dispatch routes a message to its handler.
func (b *Background) Dispatch(ctx context.Context, env Envelope) error {
	msg, err := env.Message()
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case Selection:
		return b.onSelection(ctx, m)
	case InitiateLogin:
		_, err := b.InitiateLogin(ctx)
		return err
	case AuthSuccess:
		return b.onAuthSuccess(ctx, m)
	case AuthError:
		return b.onAuthError(ctx, m)
	case Logout:
		return b.logout()
	default:
		return fmt.Errorf("%w: unhandled kind %q", ErrInvalidMessage, msg.Kind())
	}
}

func (b *Background) onSelection(ctx context.Context, sel Selection) error {
	token, err := b.token()
	if err != nil {
		return err
	}

	if token == "" {
		if err := b.store.Set(KeyPrefillText, sel.Text); err != nil {
			return fmt.Errorf("failed to store selection: %w", err)
		}
		return b.shell.OpenPopup(ctx)
	}

	result, err := b.api.Analyze(ctx, token, SelectionPlatform, sel.Text)
	if err != nil {
		b.logger.Warn("Selection analysis failed", zap.Error(err))
		return b.shell.Notify(ctx, NotificationTitle, NetworkErrorMessage)
	}

	if err := b.store.Set(KeyLatestResult, result); err != nil {
		b.logger.Warn("Failed to store latest result", zap.Error(err))
	}

	message := fmt.Sprintf("Score: %d, Engage: %d%%", result.AlgorithmScore, result.EngagementPrediction)
	return b.shell.Notify(ctx, NotificationTitle, message)
}

// InitiateLogin opens the web login page for a new attempt and returns the
// attempt id.
func (b *Background) InitiateLogin(ctx context.Context) (string, error) {
	attempt, err := b.api.StartLogin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start login: %w", err)
	}

	tabID, err := b.shell.OpenTab(ctx, attempt.LoginURL)
	if err != nil {
		return "", fmt.Errorf("failed to open login tab: %w", err)
	}

	b.mu.Lock()
	b.attempts[attempt.AttemptID] = pendingLogin{tabID: tabID, startedAt: time.Now()}
	b.mu.Unlock()

	b.logger.Info("Login attempt started",
		zap.String("attempt_id", attempt.AttemptID),
		zap.Int("tab_id", tabID),
	)
	return attempt.AttemptID, nil
}

func (b *Background) finish(attemptID string) (pendingLogin, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending, ok := b.attempts[attemptID]
	if ok {
		delete(b.attempts, attemptID)
	}
	return pending, ok
}

func (b *Background) onAuthSuccess(ctx context.Context, msg AuthSuccess) error {
	pending, ok := b.finish(msg.AttemptID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAttempt, msg.AttemptID)
	}

	if err := b.store.Set(KeyToken, msg.Token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if msg.RefreshToken != "" {
		if err := b.store.Set(KeyRefreshToken, msg.RefreshToken); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
	}
	if msg.User != nil {
		if err := b.store.Set(KeyUser, msg.User); err != nil {
			return fmt.Errorf("failed to store user: %w", err)
		}
	}

	if err := b.shell.CloseTab(ctx, pending.tabID); err != nil {
		b.logger.Warn("Failed to close login tab", zap.Int("tab_id", pending.tabID), zap.Error(err))
	}

	b.logger.Info("Login attempt completed",
		zap.String("attempt_id", msg.AttemptID),
		zap.Duration("elapsed", time.Since(pending.startedAt)),
	)
	return nil
}

func (b *Background) onAuthError(ctx context.Context, msg AuthError) error {
	pending, ok := b.finish(msg.AttemptID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAttempt, msg.AttemptID)
	}

	b.logger.Warn("Login attempt failed",
		zap.String("attempt_id", msg.AttemptID),
		zap.String("error", msg.Error),
	)
	if err := b.shell.CloseTab(ctx, pending.tabID); err != nil {
		b.logger.Warn("Failed to close login tab", zap.Int("tab_id", pending.tabID), zap.Error(err))
	}
	return b.shell.Notify(ctx, "PostOptima Login", "Login failed: "+msg.Error)
}

func (b *Background) logout() error {
	if err := b.store.Remove(KeyToken, KeyRefreshToken, KeyUser, KeyLatestResult); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// TabClosed drops every attempt whose login tab was closed by the user.
func (b *Background) TabClosed(tabID int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, pending := range b.attempts {
		if pending.tabID == tabID {
			delete(b.attempts, id)
			b.logger.Info("Login tab closed", zap.String("attempt_id", id))
		}
	}
}

// PollAttempts asks the backend about every pending attempt and completes
// the ones the web page has handed a session to. Attempts the backend no
// longer knows are dropped.
func (b *Background) PollAttempts(ctx context.Context) error {
	for _, id := range b.PendingAttempts() {
		resp, err := b.api.PollLogin(ctx, id)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
				b.finish(id)
				b.logger.Info("Login attempt expired", zap.String("attempt_id", id))
				continue
			}
			return fmt.Errorf("failed to poll attempt %s: %w", id, err)
		}

		if resp.State != LoginStateLoggedIn {
			continue
		}
		if err := b.onAuthSuccess(ctx, authSuccessFrom(id, resp)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Background) token() (string, error) {
	var token string
	if _, err := b.store.Get(KeyToken, &token); err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

func authSuccessFrom(id string, resp *dto.LoginAttemptResponse) AuthSuccess {
	msg := AuthSuccess{AttemptID: id, Token: resp.Token, RefreshToken: resp.RefreshToken}
	if resp.User != nil {
		msg.User = &domain.User{
			ID:              resp.User.ID,
			Email:           resp.User.Email,
			IsEmailVerified: resp.User.EmailVerified,
		}
	}
	return msg
}

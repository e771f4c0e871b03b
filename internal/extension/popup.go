package extension

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/postoptima-api/internal/authprovider"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/session"
	"github.com/prperemyshlev/postoptima-api/internal/utils"
	"go.uber.org/zap"
)

var (
	ErrMissingCredentials = errors.New("enter email and password")
	ErrInvalidEmail       = errors.New("enter a valid email address")
	ErrEmptyPost          = errors.New("enter some text to analyze")
	ErrNotLoggedIn        = errors.New("please log in first")
	ErrNetwork            = errors.New("network error")
)

// PasswordAuthenticator signs a user in against the hosted auth provider.
type PasswordAuthenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*authprovider.Session, error)
}

// View is what the popup renders after loading.
type View struct {
	State        State
	User         *domain.User
	PostText     string
	LatestResult *dto.AnalyzeResponse
	ShowUpgrade  bool
}

// Popup is the extension's interactive surface.
type Popup struct {
	api        Backend
	auth       PasswordAuthenticator
	store      Store
	shell      Shell
	session    *session.Holder
	pricingURL string
	logger     *zap.Logger
}

func NewPopup(api Backend, auth PasswordAuthenticator, store Store, shell Shell, holder *session.Holder, pricingURL string, logger *zap.Logger) *Popup {
	return &Popup{
		api:        api,
		auth:       auth,
		store:      store,
		shell:      shell,
		session:    holder,
		pricingURL: pricingURL,
		logger:     logger,
	}
}

// Load builds the initial view. The prefilled selection and the latest
// result are hand-off values and are removed once read.
func (p *Popup) Load(ctx context.Context) (*View, error) {
	view := &View{State: LoggedOut}

	token, err := p.token()
	if err != nil {
		return nil, err
	}

	if token != "" {
		if err := p.session.Init(ctx); err != nil {
			p.logger.Warn("Failed to resolve session user", zap.Error(err))
		}
		if state, ok := p.session.Current().(session.Authenticated); ok {
			view.User = &state.User
		}
		// A rejected token is cleared by Init.
		if token, _ = p.token(); token != "" {
			view.State = LoggedIn
			view.ShowUpgrade = p.showUpgrade(ctx, token)
		}
	}

	if _, err := take(p.store, KeyPrefillText, &view.PostText); err != nil {
		return nil, fmt.Errorf("failed to read prefill text: %w", err)
	}

	var latest dto.AnalyzeResponse
	ok, err := take(p.store, KeyLatestResult, &latest)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest result: %w", err)
	}
	if ok {
		view.LatestResult = &latest
	}

	return view, nil
}

func (p *Popup) showUpgrade(ctx context.Context, token string) bool {
	profile, err := p.api.Profile(ctx, token)
	if err != nil {
		p.logger.Warn("Profile load failed", zap.Error(err))
		return false
	}
	return profile.Plan == string(domain.PlanFree)
}

// Login signs in with email and password and stores the session.
func (p *Popup) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = utils.SanitizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if !utils.ValidateEmail(email) {
		return nil, ErrInvalidEmail
	}

	sess, err := p.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if err := p.session.Set(sess.User, sess.Tokens.AccessToken); err != nil {
		return nil, err
	}
	if err := p.store.Set(KeyRefreshToken, sess.Tokens.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	if err := p.store.Set(KeyUser, sess.User); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	return &sess.User, nil
}

// Analyze scores content for the selection platform and keeps the result
// as the latest one.
func (p *Popup) Analyze(ctx context.Context, content string) (*dto.AnalyzeResponse, error) {
	token, err := p.token()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotLoggedIn
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyPost
	}

	result, err := p.api.Analyze(ctx, token, SelectionPlatform, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if err := p.store.Set(KeyLatestResult, result); err != nil {
		p.logger.Warn("Failed to store latest result", zap.Error(err))
	}
	return result, nil
}

// Logout forgets the session and the latest result.
func (p *Popup) Logout() error {
	if err := p.session.Clear(); err != nil {
		return err
	}
	return p.store.Remove(KeyLatestResult)
}

// Upgrade opens the pricing page.
func (p *Popup) Upgrade(ctx context.Context) error {
	_, err := p.shell.OpenTab(ctx, p.pricingURL)
	return err
}

func (p *Popup) token() (string, error) {
	token, _, err := TokenStore{Store: p.store}.Token()
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

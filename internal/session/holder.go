// Package session keeps the signed-in user of a client and tells
// subscribers whenever it changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prperemyshlev/postoptima-api/internal/authprovider"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
)

// ErrLoginRequired means the caller has to be sent to the login page.
var ErrLoginRequired = errors.New("login required")

// State is either Unauthenticated or Authenticated.
type State interface {
	isState()
}

type Unauthenticated struct{}

type Authenticated struct {
	User domain.User
}

func (Unauthenticated) isState() {}
func (Authenticated) isState()   {}

// Provider resolves the user owning an access token.
type Provider interface {
	GetUser(ctx context.Context, token string) (*domain.User, error)
}

// TokenStore persists the access token between runs.
type TokenStore interface {
	Token() (string, bool, error)
	SetToken(token string) error
	ClearToken() error
}

// Holder owns the current State.
type Holder struct {
	provider Provider
	store    TokenStore

	mu          sync.RWMutex
	state       State
	subscribers map[int]func(State)
	nextID      int
}

func NewHolder(provider Provider, store TokenStore) *Holder {
	return &Holder{
		provider:    provider,
		store:       store,
		state:       Unauthenticated{},
		subscribers: make(map[int]func(State)),
	}
}

// Init resolves the user behind the stored token. A token the provider
// rejects is dropped and leaves the holder unauthenticated.
func (h *Holder) Init(ctx context.Context) error {
	token, ok, err := h.store.Token()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if !ok {
		h.publish(Unauthenticated{})
		return nil
	}

	user, err := h.provider.GetUser(ctx, token)
	if err != nil {
		if errors.Is(err, authprovider.ErrUnauthorized) {
			if err := h.store.ClearToken(); err != nil {
				return fmt.Errorf("failed to drop rejected token: %w", err)
			}
			h.publish(Unauthenticated{})
			return nil
		}
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	h.publish(Authenticated{User: *user})
	return nil
}

// Current returns the current state.
func (h *Holder) Current() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Subscribe registers fn for every later state change. The returned func
// removes it and is safe to call more than once.
func (h *Holder) Subscribe(fn func(State)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
		})
	}
}

// Set stores token and switches to the given user.
func (h *Holder) Set(user domain.User, token string) error {
	if err := h.store.SetToken(token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	h.publish(Authenticated{User: user})
	return nil
}

// Clear forgets the token.
func (h *Holder) Clear() error {
	if err := h.store.ClearToken(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	h.publish(Unauthenticated{})
	return nil
}

// RequireVerified returns the user when signed in with a verified email,
// ErrLoginRequired otherwise.
func (h *Holder) RequireVerified() (domain.User, error) {
	switch s := h.Current().(type) {
	case Authenticated:
		if !s.User.IsEmailVerified {
			return domain.User{}, fmt.Errorf("%w: email not verified", ErrLoginRequired)
		}
		return s.User, nil
	default:
		return domain.User{}, ErrLoginRequired
	}
}

func (h *Holder) publish(state State) {
	h.mu.Lock()
	h.state = state
	subs := make([]func(State), 0, len(h.subscribers))
	for _, fn := range h.subscribers {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

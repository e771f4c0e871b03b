package extension

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/postoptima-api/internal/domain"
)

// ErrInvalidMessage is returned for envelopes that fail validation.
var ErrInvalidMessage = errors.New("invalid message")

// Kind identifies the message carried by an Envelope
type Kind string

const (
	KindSelection     Kind = "selection"
	KindInitiateLogin Kind = "initiate_login"
	KindAuthSuccess   Kind = "auth_success"
	KindAuthError     Kind = "auth_error"
	KindLogout        Kind = "logout"
)

// Envelope is the wire form of every message exchanged between the
// background task, the popup and the login page.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is a decoded, validated envelope payload
type Message interface {
	Kind() Kind
	validate() error
}

// Selection is text picked from a page through the context menu
type Selection struct {
	Text string `json:"text"`
}

type InitiateLogin struct{}

// AuthSuccess hands the tokens of a finished login attempt over
type AuthSuccess struct {
	AttemptID    string       `json:"attempt_id"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	User         *domain.User `json:"user,omitempty"`
}

type AuthError struct {
	AttemptID string `json:"attempt_id"`
	Error     string `json:"error"`
}

type Logout struct{}

func (Selection) Kind() Kind     { return KindSelection }
func (InitiateLogin) Kind() Kind { return KindInitiateLogin }
func (AuthSuccess) Kind() Kind   { return KindAuthSuccess }
func (AuthError) Kind() Kind     { return KindAuthError }
func (Logout) Kind() Kind        { return KindLogout }

func (s Selection) validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return errors.New("selection text is empty")
	}
	return nil
}

func (InitiateLogin) validate() error { return nil }

func (a AuthSuccess) validate() error {
	if a.AttemptID == "" {
		return errors.New("attempt_id is required")
	}
	if a.Token == "" {
		return errors.New("token is required")
	}
	return nil
}

func (a AuthError) validate() error {
	if a.AttemptID == "" {
		return errors.New("attempt_id is required")
	}
	return nil
}

func (Logout) validate() error { return nil }

// Wrap builds the envelope for msg.
func Wrap(msg Message) (Envelope, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", msg.Kind(), err)
	}
	return Envelope{Kind: msg.Kind(), Payload: payload}, nil
}

// Decode parses raw JSON into a validated message.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return env.Message()
}

// Message decodes and validates the payload according to Kind.
func (e Envelope) Message() (Message, error) {
	var msg Message
	switch e.Kind {
	case KindSelection:
		var m Selection
		if err := e.unmarshal(&m); err != nil {
			return nil, err
		}
		msg = m
	case KindInitiateLogin:
		msg = InitiateLogin{}
	case KindAuthSuccess:
		var m AuthSuccess
		if err := e.unmarshal(&m); err != nil {
			return nil, err
		}
		msg = m
	case KindAuthError:
		var m AuthError
		if err := e.unmarshal(&m); err != nil {
			return nil, err
		}
		msg = m
	case KindLogout:
		msg = Logout{}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, e.Kind)
	}

	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, e.Kind, err)
	}
	return msg, nil
}

func (e Envelope) unmarshal(target any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s: missing payload", ErrInvalidMessage, e.Kind)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMessage, e.Kind, err)
	}
	return nil
}

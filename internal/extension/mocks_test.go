package extension

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prperemyshlev/postoptima-api/internal/authprovider"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Analyze(ctx context.Context, token, platform, content string) (*dto.AnalyzeResponse, error) {
	args := m.Called(ctx, token, platform, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AnalyzeResponse), args.Error(1)
}

func (m *MockBackend) Profile(ctx context.Context, token string) (*dto.ProfileResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ProfileResponse), args.Error(1)
}

func (m *MockBackend) StartLogin(ctx context.Context) (*dto.LoginAttemptResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LoginAttemptResponse), args.Error(1)
}

func (m *MockBackend) PollLogin(ctx context.Context, attemptID string) (*dto.LoginAttemptResponse, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LoginAttemptResponse), args.Error(1)
}

type MockShell struct {
	mock.Mock
}

func (m *MockShell) OpenPopup(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockShell) OpenTab(ctx context.Context, url string) (int, error) {
	args := m.Called(ctx, url)
	return args.Int(0), args.Error(1)
}

func (m *MockShell) CloseTab(ctx context.Context, tabID int) error {
	return m.Called(ctx, tabID).Error(0)
}

func (m *MockShell) Notify(ctx context.Context, title, message string) error {
	return m.Called(ctx, title, message).Error(0)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) SignInWithPassword(ctx context.Context, email, password string) (*authprovider.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authprovider.Session), args.Error(1)
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "storage.json"))
}

func storeString(t *testing.T, store Store, key string) (string, bool) {
	t.Helper()
	var value string
	ok, err := store.Get(key, &value)
	require.NoError(t, err)
	return value, ok
}

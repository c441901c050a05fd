package mocks

import (
	"context"
	"sync"

	"github.com/SergeiKhy/linkshort-web/internal/api"
	"github.com/SergeiKhy/linkshort-web/internal/models"
	"github.com/SergeiKhy/linkshort-web/internal/repository"
)

// MockTokenStore implements repository.TokenStore in memory
type MockTokenStore struct {
	mu       sync.RWMutex
	token    string
	LoadErr  error
	SaveErr  error
	ClearErr error
	Clears   int
}

func NewMockTokenStore(token string) *MockTokenStore {
	return &MockTokenStore{token: token}
}

func (m *MockTokenStore) Load(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.LoadErr != nil {
		return "", m.LoadErr
	}
	if m.token == "" {
		return "", repository.ErrNoToken
	}
	return m.token, nil
}

func (m *MockTokenStore) Save(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.token = token
	return nil
}

func (m *MockTokenStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Clears++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.token = ""
	return nil
}

func (m *MockTokenStore) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// MockAuthGateway implements service.AuthGateway with canned answers
type MockAuthGateway struct {
	mu sync.Mutex

	// Users maps valid tokens to identities for Me
	Users map[string]*models.User
	MeErr error

	LoginResp    *models.AuthResponse
	LoginErr     error
	RegisterResp *models.AuthResponse
	RegisterErr  error

	// Block, when set, is waited on by every call before answering
	Block chan struct{}

	MeCalls       int
	LoginCalls    int
	RegisterCalls int
}

func NewMockAuthGateway() *MockAuthGateway {
	return &MockAuthGateway{Users: make(map[string]*models.User)}
}

func (m *MockAuthGateway) wait(ctx context.Context) {
	if m.Block == nil {
		return
	}
	select {
	case <-m.Block:
	case <-ctx.Done():
	}
}

func (m *MockAuthGateway) Me(ctx context.Context, token string) (*models.User, error) {
	m.mu.Lock()
	m.MeCalls++
	m.mu.Unlock()
	m.wait(ctx)

	if m.MeErr != nil {
		return nil, m.MeErr
	}
	user, ok := m.Users[token]
	if !ok {
		return nil, &api.Error{StatusCode: 401, Detail: "Invalid token"}
	}
	return user, nil
}

func (m *MockAuthGateway) Login(ctx context.Context, input models.LoginInput) (*models.AuthResponse, error) {
	m.mu.Lock()
	m.LoginCalls++
	m.mu.Unlock()
	m.wait(ctx)
	return m.LoginResp, m.LoginErr
}

func (m *MockAuthGateway) Register(ctx context.Context, input models.RegisterInput) (*models.AuthResponse, error) {
	m.mu.Lock()
	m.RegisterCalls++
	m.mu.Unlock()
	m.wait(ctx)
	return m.RegisterResp, m.RegisterErr
}

func (m *MockAuthGateway) Calls() (me, login, register int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.MeCalls, m.LoginCalls, m.RegisterCalls
}

// MockAccessGateway implements service.AccessGateway
type MockAccessGateway struct {
	mu sync.Mutex

	LookupResp *models.LookupResult
	LookupErr  error

	// Passwords maps accepted passwords to redirect targets
	Passwords map[string]string
	VerifyErr error

	LookupCalls int
	VerifyCalls int
}

func NewMockAccessGateway() *MockAccessGateway {
	return &MockAccessGateway{Passwords: make(map[string]string)}
}

func (m *MockAccessGateway) Lookup(ctx context.Context, shortCode string) (*models.LookupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LookupCalls++
	return m.LookupResp, m.LookupErr
}

func (m *MockAccessGateway) VerifyPassword(ctx context.Context, shortCode, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VerifyCalls++

	if target, ok := m.Passwords[password]; ok {
		return target, nil
	}
	if m.VerifyErr != nil {
		return "", m.VerifyErr
	}
	return "", &api.Error{StatusCode: 401}
}

func (m *MockAccessGateway) Calls() (lookup, verify int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LookupCalls, m.VerifyCalls
}

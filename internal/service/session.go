package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/SergeiKhy/linkshort-web/internal/api"
	"github.com/SergeiKhy/linkshort-web/internal/metrics"
	"github.com/SergeiKhy/linkshort-web/internal/models"
	"github.com/SergeiKhy/linkshort-web/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Session errors
var (
	ErrAuthInFlight   = errors.New("another authentication request is in progress")
	ErrSessionLoading = errors.New("session is still initializing")
)

// Fallback messages when the backend gives no detail
const (
	loginFailedMessage    = "Login failed"
	registerFailedMessage = "Registration failed"
)

// AuthError is a failed login or registration. Message is safe to show to the user.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// SessionManager owns the auth token and the current user for the whole process.
type SessionManager interface {
	// Bootstrap restores a persisted session. Only the first call does anything.
	Bootstrap(ctx context.Context) error
	// Recheck re-validates the current token against the backend.
	Recheck(ctx context.Context) error
	Login(ctx context.Context, username, password string) (*models.User, error)
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	// Logout drops the session locally. It never calls the backend.
	Logout(ctx context.Context)
	AuthHeader() http.Header
	Snapshot() models.Session
	Loading() bool
	// Ready is closed once Bootstrap has finished.
	Ready() <-chan struct{}
	// Wait blocks until the session is not loading.
	Wait(ctx context.Context) (models.Session, error)
}

type sessionManager struct {
	gateway AuthGateway
	store   repository.TokenStore
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	state models.Session
	idle  chan struct{} // closed while state.Loading is false

	bootOnce sync.Once
	ready    chan struct{}

	// held by Login, Register and Recheck
	inFlight sync.Mutex
}

func NewSessionManager(
	gateway AuthGateway,
	store repository.TokenStore,
	logger *zap.Logger,
	m *metrics.Metrics,
) SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sessionManager{
		gateway: gateway,
		store:   store,
		logger:  logger,
		metrics: m,
		state:   models.Session{Loading: true},
		idle:    make(chan struct{}),
		ready:   make(chan struct{}),
	}
}

func (s *sessionManager) Bootstrap(ctx context.Context) error {
	var err error
	s.bootOnce.Do(func() {
		err = s.bootstrap(ctx)
	})
	return err
}

func (s *sessionManager) bootstrap(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNoToken) {
			s.logger.Warn("Failed to read persisted token", zap.Error(err))
			if clearErr := s.store.Clear(ctx); clearErr != nil {
				s.logger.Warn("Failed to clear persisted token", zap.Error(clearErr))
			}
		}
		s.settle(models.Session{})
		close(s.ready)
		s.metrics.IncrementSession("anonymous")
		return nil
	}

	user, err := s.gateway.Me(ctx, token)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// The owner went away; drop whatever arrived.
		return ctxErr
	}

	if err != nil {
		s.logger.Info("Persisted session is no longer valid", zap.Error(err))
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			s.logger.Warn("Failed to clear persisted token", zap.Error(clearErr))
		}
		s.settle(models.Session{})
		close(s.ready)
		s.metrics.IncrementSession("invalidated")
		return nil
	}

	s.settle(models.Session{Token: token, User: user, ExpiresAt: tokenExpiry(token)})
	close(s.ready)
	s.metrics.IncrementSession("restored")
	s.logger.Info("Session restored", zap.String("username", user.Username))
	return nil
}

func (s *sessionManager) Recheck(ctx context.Context) error {
	select {
	case <-s.ready:
	default:
		return ErrSessionLoading
	}

	if !s.inFlight.TryLock() {
		return ErrAuthInFlight
	}
	defer s.inFlight.Unlock()

	s.mu.Lock()
	token := s.state.Token
	if token == "" {
		s.mu.Unlock()
		return nil
	}
	s.state.Loading = true
	s.idle = make(chan struct{})
	s.mu.Unlock()

	user, err := s.gateway.Me(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state
	current.Loading = false

	switch {
	case ctx.Err() != nil:
		// Result discarded; only leave the loading state.
		s.setLocked(current)
		return ctx.Err()
	case current.Token != token:
		// Logged out while the check was running.
		s.setLocked(current)
		return nil
	case err != nil:
		s.logger.Info("Session invalidated on re-check", zap.Error(err))
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			s.logger.Warn("Failed to clear persisted token", zap.Error(clearErr))
		}
		s.setLocked(models.Session{})
		s.metrics.IncrementSession("invalidated")
		return nil
	default:
		current.User = user
		s.setLocked(current)
		s.metrics.IncrementSession("restored")
		return nil
	}
}

func (s *sessionManager) Login(ctx context.Context, username, password string) (*models.User, error) {
	return s.authenticate(ctx, "login", loginFailedMessage, func() (*models.AuthResponse, error) {
		return s.gateway.Login(ctx, models.LoginInput{Username: username, Password: password})
	})
}

func (s *sessionManager) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	return s.authenticate(ctx, "register", registerFailedMessage, func() (*models.AuthResponse, error) {
		return s.gateway.Register(ctx, models.RegisterInput{Username: username, Email: email, Password: password})
	})
}

func (s *sessionManager) authenticate(
	ctx context.Context,
	operation, fallback string,
	call func() (*models.AuthResponse, error),
) (*models.User, error) {
	select {
	case <-s.ready:
	default:
		return nil, ErrSessionLoading
	}

	if !s.inFlight.TryLock() {
		return nil, ErrAuthInFlight
	}
	defer s.inFlight.Unlock()

	resp, err := call()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err == nil && (resp == nil || resp.AccessToken == "" || resp.User == nil) {
		err = api.ErrUnexpectedResponse
	}
	if err != nil {
		s.metrics.IncrementAuth(operation, "failure")
		message := api.Detail(err)
		if message == "" {
			message = fallback
		}
		s.logger.Info("Authentication failed",
			zap.String("operation", operation),
			zap.Int("status", api.StatusCode(err)),
			zap.Error(err),
		)
		return nil, &AuthError{Message: message, Err: err}
	}

	if err := s.store.Save(ctx, resp.AccessToken); err != nil {
		// The session still works for this process; it just won't survive a restart.
		s.logger.Warn("Failed to persist token", zap.Error(err))
	}

	s.mu.Lock()
	s.setLocked(models.Session{
		Token:     resp.AccessToken,
		User:      resp.User,
		ExpiresAt: tokenExpiry(resp.AccessToken),
	})
	s.mu.Unlock()

	s.metrics.IncrementAuth(operation, "success")
	s.logger.Info("Authenticated",
		zap.String("operation", operation),
		zap.String("username", resp.User.Username),
	)
	return resp.User, nil
}

func (s *sessionManager) Logout(ctx context.Context) {
	s.mu.Lock()
	s.state.Token = ""
	s.state.User = nil
	s.state.ExpiresAt = nil
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("Failed to clear persisted token", zap.Error(err))
	}
	s.logger.Info("Logged out")
}

func (s *sessionManager) AuthHeader() http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return api.BearerHeader(s.state.Token)
}

func (s *sessionManager) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *sessionManager) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

func (s *sessionManager) Ready() <-chan struct{} {
	return s.ready
}

func (s *sessionManager) Wait(ctx context.Context) (models.Session, error) {
	for {
		s.mu.RLock()
		state, idle := s.state, s.idle
		s.mu.RUnlock()

		if !state.Loading {
			return state, nil
		}

		select {
		case <-idle:
		case <-ctx.Done():
			return models.Session{}, ctx.Err()
		}
	}
}

// settle stores a finished state and releases waiters.
func (s *sessionManager) settle(state models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(state)
}

// setLocked replaces the state; s.mu must be held.
func (s *sessionManager) setLocked(state models.Session) {
	wasLoading := s.state.Loading
	if state.Token == "" {
		state.User = nil
		state.ExpiresAt = nil
	}
	s.state = state
	if wasLoading && !state.Loading {
		close(s.idle)
	}
}

// tokenExpiry reads the exp claim of a JWT without verifying it. Display only.
func tokenExpiry(token string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}

package service

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/SergeiKhy/linkshort-web/internal/api"
	"github.com/SergeiKhy/linkshort-web/internal/metrics"
	"go.uber.org/zap"
)

// Resolver errors. Both indicate a caller bug or a rejected input,
// never a link condition: those are reported through the stage.
var (
	ErrInvalidTransition = errors.New("operation not allowed in the current stage")
	ErrEmptyPassword     = errors.New("password is required")
)

// User-facing messages
const (
	NotFoundMessage      = "This link could not be found"
	GoneMessage          = "This link is no longer active"
	GenericErrorMessage  = "Something went wrong"
	EmptyPasswordMessage = "Please enter a password"
	VerifyFailedMessage  = "Password could not be verified"
)

type Stage int

const (
	StageChecking Stage = iota
	StagePasswordRequired
	StageVerifying
	StageNotFound
	StageGone
	StageError
	// StageRedirecting is reached once a navigation target was handed out.
	StageRedirecting
)

var stageNames = map[Stage]string{
	StageChecking:         "checking",
	StagePasswordRequired: "password_required",
	StageVerifying:        "verifying",
	StageNotFound:         "not_found",
	StageGone:             "gone",
	StageError:            "error",
	StageRedirecting:      "redirecting",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further calls will be made for the visit.
func (s Stage) Terminal() bool {
	switch s {
	case StageNotFound, StageGone, StageError, StageRedirecting:
		return true
	}
	return false
}

// AccessAttempt is the observable state of one short link visit.
type AccessAttempt struct {
	ShortCode string `json:"short_code"`
	Stage     Stage  `json:"stage"`
	Message   string `json:"message,omitempty"`
}

// Navigation is a full page navigation the caller must perform.
// The zero value means "stay on the page".
type Navigation struct {
	URL string
}

func (n Navigation) Empty() bool {
	return n.URL == ""
}

// RedirectResolver drives a single anonymous visit to a short link.
type RedirectResolver struct {
	gateway AccessGateway
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	attempt AccessAttempt
}

func NewRedirectResolver(gateway AccessGateway, shortCode string, logger *zap.Logger, m *metrics.Metrics) *RedirectResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectResolver{
		gateway: gateway,
		logger:  logger,
		metrics: m,
		attempt: AccessAttempt{ShortCode: shortCode, Stage: StageChecking},
	}
}

// Attempt returns a copy of the current state.
func (r *RedirectResolver) Attempt() AccessAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}

// Visit looks the short code up. It is valid only while checking.
func (r *RedirectResolver) Visit(ctx context.Context) (Navigation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.attempt.Stage != StageChecking {
		return Navigation{}, ErrInvalidTransition
	}

	result, err := r.gateway.Lookup(ctx, r.attempt.ShortCode)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Navigation{}, ctxErr
	}

	var nav Navigation
	switch {
	case err != nil:
		r.lookupFailed(err)
	case result == nil:
		r.attempt.Stage = StageError
		r.attempt.Message = GenericErrorMessage
	case result.RedirectURL != "":
		r.attempt.Stage = StageRedirecting
		nav.URL = result.RedirectURL
	case result.RequiresPassword:
		r.attempt.Stage = StagePasswordRequired
	default:
		r.attempt.Stage = StageError
		r.attempt.Message = GenericErrorMessage
	}

	r.metrics.IncrementResolver(r.attempt.Stage.String())
	r.logger.Debug("Short link looked up",
		zap.String("short_code", r.attempt.ShortCode),
		zap.Stringer("stage", r.attempt.Stage),
	)
	return nav, nil
}

func (r *RedirectResolver) lookupFailed(err error) {
	switch api.StatusCode(err) {
	case http.StatusNotFound:
		r.attempt.Stage = StageNotFound
		r.attempt.Message = NotFoundMessage
	case http.StatusGone:
		r.attempt.Stage = StageGone
		r.attempt.Message = api.Detail(err)
		if r.attempt.Message == "" {
			r.attempt.Message = GoneMessage
		}
	default:
		r.logger.Warn("Short link lookup failed",
			zap.String("short_code", r.attempt.ShortCode),
			zap.Error(err),
		)
		r.attempt.Stage = StageError
		r.attempt.Message = GenericErrorMessage
	}
}

// Submit verifies a password. It is valid only while a password is required;
// a failed verification returns to that stage with the reason in the message.
func (r *RedirectResolver) Submit(ctx context.Context, password string) (Navigation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.attempt.Stage != StagePasswordRequired {
		return Navigation{}, ErrInvalidTransition
	}
	if password == "" {
		r.attempt.Message = EmptyPasswordMessage
		return Navigation{}, ErrEmptyPassword
	}

	r.attempt.Stage = StageVerifying
	r.attempt.Message = ""

	target, err := r.gateway.VerifyPassword(ctx, r.attempt.ShortCode, password)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Navigation{}, ctxErr
	}

	if err != nil {
		r.attempt.Stage = StagePasswordRequired
		r.attempt.Message = api.Detail(err)
		if r.attempt.Message == "" {
			r.attempt.Message = VerifyFailedMessage
		}
		r.metrics.IncrementResolver("password_rejected")
		r.logger.Debug("Password verification failed",
			zap.String("short_code", r.attempt.ShortCode),
			zap.Int("status", api.StatusCode(err)),
		)
		return Navigation{}, nil
	}

	r.attempt.Stage = StageRedirecting
	r.metrics.IncrementResolver(r.attempt.Stage.String())
	return Navigation{URL: target}, nil
}

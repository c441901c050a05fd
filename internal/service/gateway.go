package service

import (
	"context"

	"github.com/SergeiKhy/linkshort-web/internal/api"
	"github.com/SergeiKhy/linkshort-web/internal/models"
)

// AuthGateway is the part of the backend the session depends on.
type AuthGateway interface {
	Me(ctx context.Context, token string) (*models.User, error)
	Login(ctx context.Context, input models.LoginInput) (*models.AuthResponse, error)
	Register(ctx context.Context, input models.RegisterInput) (*models.AuthResponse, error)
}

// AccessGateway is the anonymous short link API used by the resolver.
type AccessGateway interface {
	Lookup(ctx context.Context, shortCode string) (*models.LookupResult, error)
	VerifyPassword(ctx context.Context, shortCode, password string) (string, error)
}

var (
	_ AuthGateway   = (*api.Client)(nil)
	_ AccessGateway = (*api.Client)(nil)
)

// Package auth issues and resolves user sessions.
package auth

import (
	"context"

	"github.com/UkralStul/blog-service/internal/domain"
)

// Provider is the auth side of the remote data service. Callers validate
// forms before calling it.
type Provider interface {
	SignUp(ctx context.Context, form domain.SignupForm) (*domain.Session, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// Session resolves an access token. Invalid or revoked tokens return
	// an error with status 401.
	Session(ctx context.Context, accessToken string) (*domain.Session, error)
}

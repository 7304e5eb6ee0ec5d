package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long a locally issued session is valid.
const TokenTTL = 24 * time.Hour

type claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Local is a Provider backed by a Users store. Sessions are HS256 tokens;
// signing out revokes the token's id until it would have expired anyway.
type Local struct {
	users  storage.Users
	secret []byte
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // map[jti]expiresAt
}

// NewLocal creates a provider that signs tokens with secret.
func NewLocal(users storage.Users, secret string) *Local {
	return &Local{
		users:   users,
		secret:  []byte(secret),
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (l *Local) SignUp(ctx context.Context, form domain.SignupForm) (*domain.Session, error) {
	existing, err := l.users.GetUserByEmail(ctx, form.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, &domain.APIError{Code: "user_already_exists", Message: "User already registered", Status: 422, StatusText: "Unprocessable Entity"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := l.users.CreateUser(ctx, &domain.User{
		Name:         form.Name,
		Email:        form.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && apiErr.Code == domain.CodeUniqueViolation {
			return nil, &domain.APIError{Code: "user_already_exists", Message: "User already registered", Status: 422, StatusText: "Unprocessable Entity"}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return l.issue(user)
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	user, err := l.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, &domain.APIError{Code: "invalid_credentials", Message: "Invalid login credentials", Status: 400, StatusText: "Bad Request"}
	}
	return l.issue(user)
}

func (l *Local) SignOut(ctx context.Context, accessToken string) error {
	c, err := l.parse(accessToken)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for jti, exp := range l.revoked {
		if now.After(exp) {
			delete(l.revoked, jti)
		}
	}
	l.revoked[c.ID] = c.ExpiresAt.Time
	return nil
}

func (l *Local) Session(ctx context.Context, accessToken string) (*domain.Session, error) {
	c, err := l.parse(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := l.users.GetUserByID(ctx, c.Subject)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUnauthorized("user not found")
	}

	return &domain.Session{
		AccessToken: accessToken,
		ExpiresAt:   c.ExpiresAt.Time,
		User:        *user,
	}, nil
}

func (l *Local) issue(user *domain.User) (*domain.Session, error) {
	now := l.now()
	expiresAt := now.Add(TokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name:  user.Name,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(l.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &domain.Session{
		AccessToken: signed,
		ExpiresAt:   expiresAt.UTC(),
		User:        *user,
	}, nil
}

func (l *Local) parse(accessToken string) (*claims, error) {
	if accessToken == "" {
		return nil, domain.ErrUnauthorized("not authenticated")
	}

	var c claims
	_, err := jwt.ParseWithClaims(accessToken, &c,
		func(t *jwt.Token) (any, error) {
			return l.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(l.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrUnauthorized("JWT expired")
		}
		return nil, domain.ErrUnauthorized("invalid JWT")
	}

	l.mu.Lock()
	_, revoked := l.revoked[c.ID]
	l.mu.Unlock()
	if revoked {
		return nil, domain.ErrUnauthorized("session not found")
	}
	return &c, nil
}

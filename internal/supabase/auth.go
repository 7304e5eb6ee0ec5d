package supabase

import (
	"context"
	"time"

	"github.com/supabase-community/gotrue-go/types"

	"github.com/UkralStul/blog-service/internal/domain"
)

func toUser(u types.User) domain.User {
	name, _ := u.UserMetadata["name"].(string)
	return domain.User{
		ID:        u.ID.String(),
		Name:      name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func toSession(s types.Session) *domain.Session {
	session := &domain.Session{
		AccessToken: s.AccessToken,
		User:        toUser(s.User),
	}
	switch {
	case s.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(int64(s.ExpiresAt), 0).UTC()
	case s.ExpiresIn > 0:
		session.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
	}
	return session
}

// SignUp registers an account. When the project requires email
// confirmation the returned session has no access token.
func (c *Client) SignUp(ctx context.Context, form domain.SignupForm) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.auth("").Signup(types.SignupRequest{
		Email:    form.Email,
		Password: form.Password,
		Data:     map[string]interface{}{"name": form.Name},
	})
	if err != nil {
		return nil, decodeError(err)
	}

	// GoTrue answers with a session, or with the bare user when the
	// account still has to be confirmed.
	if resp.AccessToken != "" {
		return toSession(resp.Session), nil
	}
	return &domain.Session{User: toUser(resp.User)}, nil
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.auth("").Token(types.TokenRequest{
		GrantType: "password",
		Email:     email,
		Password:  password,
	})
	if err != nil {
		return nil, decodeError(err)
	}
	return toSession(resp.Session), nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return decodeError(c.auth(accessToken).Logout())
}

// Session resolves accessToken to its user.
func (c *Client) Session(ctx context.Context, accessToken string) (*domain.Session, error) {
	if accessToken == "" {
		return nil, domain.ErrUnauthorized("not authenticated")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.auth(accessToken).GetUser()
	if err != nil {
		return nil, decodeError(err)
	}
	return &domain.Session{AccessToken: accessToken, User: toUser(resp.User)}, nil
}

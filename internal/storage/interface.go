package storage

import (
	"context"
	"io"

	"github.com/UkralStul/blog-service/internal/domain"
)

// Posts is the row-level contract of the remote data service. Every read
// returns posts joined with their author's display name, newest first.
type Posts interface {
	ListPosts(ctx context.Context) ([]domain.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]domain.Post, error)
	// GetPostBySlug expects exactly one row; zero rows is a not-found error.
	GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error)

	// Mutations act on behalf of the Caller stored in ctx. The backend sets
	// author_id from the caller and rejects changes to posts it does not own.
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// Users backs the local auth provider.
type Users interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Storage is implemented by the database-backed backends.
type Storage interface {
	Posts
	Users
}

// Blobs stores uploaded cover images.
type Blobs interface {
	// Upload writes the object at path, replacing any existing one.
	Upload(ctx context.Context, path, contentType string, r io.Reader) error
	PublicURL(path string) string
}

// Caller is the identity a mutation is performed as.
type Caller struct {
	UserID      string
	AccessToken string
}

type callerKey struct{}

// WithCaller attaches the caller to ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller attached to ctx, if any.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok && c.UserID != ""
}

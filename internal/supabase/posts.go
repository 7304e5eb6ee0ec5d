package supabase

import (
	"context"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
)

const (
	postsTable  = "posts"
	postsSelect = "*,author:author_id(name)"
)

var newestFirst = &postgrest.OrderOpts{Ascending: false}

type postPayload struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	CoverImage  string     `json:"cover_image"`
	AuthorID    string     `json:"author_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func token(ctx context.Context) string {
	caller, _ := storage.CallerFrom(ctx)
	return caller.AccessToken
}

func (c *Client) ListPosts(ctx context.Context) ([]domain.Post, error) {
	return c.listPosts(ctx, "")
}

func (c *Client) ListPostsByAuthor(ctx context.Context, authorID string) ([]domain.Post, error) {
	return c.listPosts(ctx, authorID)
}

func (c *Client) listPosts(ctx context.Context, authorID string) ([]domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := c.rest(token(ctx))
	if err != nil {
		return nil, err
	}

	query := client.From(postsTable).Select(postsSelect, "", false)
	if authorID != "" {
		query = query.Eq("author_id", authorID)
	}
	var posts []domain.Post
	if _, err := query.Order("created_at", newestFirst).ExecuteTo(&posts); err != nil {
		return nil, decodeError(err)
	}
	return nonNil(posts), nil
}

func (c *Client) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := c.rest(token(ctx))
	if err != nil {
		return nil, err
	}

	var post domain.Post
	_, err = client.From(postsTable).
		Select(postsSelect, "", false).
		Eq("slug", slug).
		Single().
		ExecuteTo(&post)
	if err != nil {
		return nil, decodeError(err)
	}
	return &post, nil
}

func (c *Client) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return nil, domain.ErrPermissionDenied("posts")
	}
	client, err := c.rest(caller.AccessToken)
	if err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC()
	if !post.CreatedAt.IsZero() {
		createdAt = post.CreatedAt
	}
	payload := postPayload{
		Title:       post.Title,
		Description: post.Description,
		Slug:        post.Slug,
		Content:     post.Content,
		CoverImage:  post.CoverImage,
		AuthorID:    caller.UserID,
		CreatedAt:   &createdAt,
	}

	var created domain.Post
	_, err = client.From(postsTable).
		Insert(payload, false, "", "representation", "").
		Single().
		ExecuteTo(&created)
	if err != nil {
		return nil, decodeError(err)
	}
	return &created, nil
}

func (c *Client) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return nil, domain.ErrPermissionDenied("posts")
	}
	client, err := c.rest(caller.AccessToken)
	if err != nil {
		return nil, err
	}

	updatedAt := time.Now().UTC()
	if post.UpdatedAt != nil {
		updatedAt = *post.UpdatedAt
	}
	payload := postPayload{
		Title:       post.Title,
		Description: post.Description,
		Slug:        post.Slug,
		Content:     post.Content,
		CoverImage:  post.CoverImage,
		UpdatedAt:   &updatedAt,
	}

	var updated []domain.Post
	_, err = client.From(postsTable).
		Update(payload, "representation", "").
		Eq("id", post.ID).
		ExecuteTo(&updated)
	if err != nil {
		return nil, decodeError(err)
	}
	// Row level security hides posts the caller does not own.
	if len(updated) == 0 {
		return nil, domain.ErrNotFound("post")
	}
	return &updated[0], nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	caller, ok := storage.CallerFrom(ctx)
	if !ok {
		return domain.ErrPermissionDenied("posts")
	}
	client, err := c.rest(caller.AccessToken)
	if err != nil {
		return err
	}

	_, _, err = client.From(postsTable).Delete("minimal", "").Eq("id", id).Execute()
	return decodeError(err)
}

func nonNil(posts []domain.Post) []domain.Post {
	if posts == nil {
		return []domain.Post{}
	}
	return posts
}

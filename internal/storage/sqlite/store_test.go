package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, context.Context, *domain.User) {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	user, err := store.CreateUser(context.Background(), &domain.User{
		Name:         "Ada",
		Email:        "Ada@Example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	return store, storage.WithCaller(context.Background(), storage.Caller{UserID: user.ID}), user
}

func samplePost(slug string) *domain.Post {
	return &domain.Post{Slug: slug, Title: slug, Description: "desc", Content: "[]", CoverImage: "c.png"}
}

func TestStore_CreateListAndGet(t *testing.T) {
	store, ctx, user := newTestStore(t)

	for _, slug := range []string{"one", "two", "three"} {
		_, err := store.CreatePost(ctx, samplePost(slug))
		require.NoError(t, err)
	}

	all, err := store.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Slug)
	assert.Equal(t, "one", all[2].Slug)
	require.NotNil(t, all[0].Author)
	assert.Equal(t, "Ada", all[0].Author.Name)
	assert.Nil(t, all[0].UpdatedAt)

	mine, err := store.ListPostsByAuthor(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	nobody, err := store.ListPostsByAuthor(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, nobody)

	got, err := store.GetPostBySlug(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.AuthorID)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 3, 0, 0, time.UTC), got.CreatedAt)

	_, err = store.GetPostBySlug(context.Background(), "missing")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestStore_DuplicateSlug(t *testing.T) {
	store, ctx, _ := newTestStore(t)

	_, err := store.CreatePost(ctx, samplePost("same"))
	require.NoError(t, err)

	_, err = store.CreatePost(ctx, samplePost("same"))
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeUniqueViolation, apiErr.Code)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	store, ctx, _ := newTestStore(t)

	created, err := store.CreatePost(ctx, samplePost("draft"))
	require.NoError(t, err)

	edit := *created
	edit.Slug = "final"
	edit.Title = "Final"
	updated, err := store.UpdatePost(ctx, &edit)
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	require.NotNil(t, updated.UpdatedAt)

	intruder := storage.WithCaller(context.Background(), storage.Caller{UserID: "other"})
	_, err = store.UpdatePost(intruder, &edit)
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodePermissionDenied, apiErr.Code)

	require.ErrorAs(t, store.DeletePost(intruder, created.ID), &apiErr)
	require.NoError(t, store.DeletePost(ctx, created.ID))
	require.NoError(t, store.DeletePost(ctx, created.ID))

	_, err = store.GetPostBySlug(context.Background(), "final")
	assert.Error(t, err)
}

func TestStore_Users(t *testing.T) {
	store, _, user := newTestStore(t)
	ctx := context.Background()

	found, err := store.GetUserByEmail(ctx, "ada@EXAMPLE.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)

	_, err = store.CreateUser(ctx, &domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"})
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeUniqueViolation, apiErr.Code)

	missing, err := store.GetUserByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UkralStul/blog-service/internal/auth"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/UkralStul/blog-service/internal/storage/inmemory"
)

// fillWithMockData seeds the in-memory backend with a demo account and a
// couple of posts. The demo account signs in with demo@example.com / Demo123.
func fillWithMockData(ctx context.Context, store *inmemory.Store, provider *auth.Local, logger *slog.Logger) error {
	session, err := provider.SignUp(ctx, domain.SignupForm{
		Name:            "Demo Author",
		Email:           "demo@example.com",
		Password:        "Demo123",
		ConfirmPassword: "Demo123",
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create demo user: %w", err)
	}
	ctx = storage.WithCaller(ctx, storage.Caller{UserID: session.User.ID})

	posts := []domain.Post{
		{
			Slug:        "hello-world",
			Title:       "Hello, world",
			Description: "The first post on this blog.",
			Content: `[{"id":"1","type":"heading","props":{"level":1},"content":[{"text":"Hello, world"}]},` +
				`{"id":"2","type":"paragraph","content":[{"text":"Posts are stored as "},{"text":"block documents","styles":{"bold":true}},{"text":"."}]}]`,
		},
		{
			Slug:        "writing-with-blocks",
			Title:       "Writing with blocks",
			Description: "Headings, paragraphs and lists.",
			Content: `[{"id":"1","type":"paragraph","content":[{"text":"A short list:"}]},` +
				`{"id":"2","type":"list","props":{"listType":"numbered"},"content":[{"text":"first"}]},` +
				`{"id":"3","type":"list","props":{"listType":"numbered"},"content":[{"text":"second"}]}]`,
		},
	}
	for _, p := range posts {
		if _, err := store.CreatePost(ctx, &p); err != nil {
			return fmt.Errorf("fillWithMockData: failed to create post %q: %w", p.Slug, err)
		}
	}

	logger.Info("mock data filled", "user_id", session.User.ID, "posts", len(posts))
	return nil
}

// Package service runs post mutations end to end: validation, cover upload,
// persistence, cache refresh and event publication.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/postcache"
	"github.com/UkralStul/blog-service/internal/slug"
	"github.com/UkralStul/blog-service/internal/storage"
)

// Publisher receives completed mutations.
type Publisher interface {
	Publish(e domain.Event)
}

// PostService mutates posts on behalf of a signed-in caller.
type PostService struct {
	store     storage.Posts
	blobs     storage.Blobs
	cache     *postcache.Orchestrator
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewPostService wires the service. blobs may be nil when cover uploads
// are not available.
func NewPostService(store storage.Posts, blobs storage.Blobs, cache *postcache.Orchestrator, publisher Publisher, logger *slog.Logger) *PostService {
	return &PostService{
		store:     store,
		blobs:     blobs,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ErrUploadsDisabled is returned when no blob store is configured.
var ErrUploadsDisabled = errors.New("cover uploads are not configured")

// Save creates the post when form.ID is empty and updates it otherwise.
// An attached cover file is uploaded first and replaces form.CoverImage.
func (s *PostService) Save(ctx context.Context, caller storage.Caller, form domain.PostForm) (*domain.Post, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	if form.CoverFile != nil {
		url, err := s.UploadCover(ctx, caller, *form.CoverFile)
		if err != nil {
			return nil, err
		}
		form.CoverImage = url
	}

	now := s.now()
	post := &domain.Post{
		ID:          form.ID,
		Slug:        slug.Slugify(form.Title),
		Title:       form.Title,
		Description: form.Description,
		Content:     form.Content,
		CoverImage:  form.CoverImage,
	}

	ctx = storage.WithCaller(ctx, caller)

	var (
		saved     *domain.Post
		err       error
		eventType domain.EventType
	)
	if form.ID == "" {
		post.CreatedAt = now
		saved, err = s.store.CreatePost(ctx, post)
		eventType = domain.EventPostCreated
	} else {
		post.UpdatedAt = &now
		saved, err = s.store.UpdatePost(ctx, post)
		eventType = domain.EventPostUpdated
	}
	if err != nil {
		return nil, err
	}

	s.refetch(ctx, postcache.RefetchOptions{AuthorID: caller.UserID, Slug: saved.Slug})
	s.publisher.Publish(domain.Event{
		Type:     eventType,
		PostID:   saved.ID,
		Slug:     saved.Slug,
		AuthorID: caller.UserID,
	})
	return saved, nil
}

// Delete removes the post with the given id.
func (s *PostService) Delete(ctx context.Context, caller storage.Caller, id string) error {
	ctx = storage.WithCaller(ctx, caller)
	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}

	s.refetch(ctx, postcache.RefetchOptions{AuthorID: caller.UserID})
	s.publisher.Publish(domain.Event{
		Type:     domain.EventPostDeleted,
		PostID:   id,
		AuthorID: caller.UserID,
	})
	return nil
}

// UploadCover stores file under the caller's folder and returns its public URL.
func (s *PostService) UploadCover(ctx context.Context, caller storage.Caller, file domain.CoverFile) (string, error) {
	if s.blobs == nil {
		return "", ErrUploadsDisabled
	}

	path := CoverPath(caller.UserID, file.Name, s.now())
	ctx = storage.WithCaller(ctx, caller)
	if err := s.blobs.Upload(ctx, path, file.ContentType, bytes.NewReader(file.Data)); err != nil {
		return "", fmt.Errorf("upload cover: %w", err)
	}
	return s.blobs.PublicURL(path), nil
}

// CoverPath is <userID>/<unix millis>.<extension of name>.
func CoverPath(userID, name string, at time.Time) string {
	ext := name[strings.LastIndex(name, ".")+1:]
	return fmt.Sprintf("%s/%d.%s", userID, at.UnixMilli(), ext)
}

// refetch rebuilds the cache after a mutation that already succeeded. A
// failure here only leaves the affected views empty.
func (s *PostService) refetch(ctx context.Context, opts postcache.RefetchOptions) {
	if err := s.cache.Refetch(ctx, opts); err != nil {
		s.logger.Warn("refetch after mutation failed", "error", err, "author_id", opts.AuthorID, "slug", opts.Slug)
	}
}
